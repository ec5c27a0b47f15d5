// handlers/bounty_routes.go
package handlers

import (
	"bounty-review-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBountyRoutes(app *fiber.App, admin fiber.Router, bountyService *services.BountyService) {
	// 🔓 Public reads, still behind Gateway auth
	app.Get("/bounties", bountyService.GetBounties)
	app.Get("/bounties/:id", bountyService.GetBounty)

	// 🔒 Admin-only bounty CRUD (admin is already gated by RequireAdmin)
	admin.Get("/bounties", bountyService.GetBounties)
	admin.Post("/bounties", bountyService.CreateBounty)
	admin.Put("/bounties/:id", bountyService.UpdateBounty)
	admin.Delete("/bounties/:id", bountyService.DeleteBounty)
}
