// handlers/user_routes.go
package handlers

import (
	"bounty-review-system/middleware"
	"bounty-review-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	app.Get("/users/me/wallet", middleware.UserContextMiddleware(), userService.GetMyWallet)
	app.Put("/users/me/wallet", middleware.UserContextMiddleware(), userService.UpdateMyWallet)
}

// AdminGroup is the /admin router shared by the route tables.
func AdminGroup(app *fiber.App) fiber.Router {
	return app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())
}
