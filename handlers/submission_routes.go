// handlers/submission_routes.go
package handlers

import (
	"bounty-review-system/middleware"
	"bounty-review-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSubmissionRoutes(app *fiber.App, admin fiber.Router, submissionService *services.SubmissionService) {
	// 🔐 Creator routes
	app.Post("/bounties/:id/submissions", middleware.UserContextMiddleware(), submissionService.CreateSubmission)
	app.Get("/users/me/submissions", middleware.UserContextMiddleware(), submissionService.GetMySubmissions)

	// 🔒 Admin review routes
	admin.Get("/bounties/:id/submissions", submissionService.GetBountySubmissions)
	admin.Get("/submissions", submissionService.GetSubmissionsByStatus)

	// Bulk routes are registered before /:id so "bulk" is not taken for an id.
	admin.Post("/submissions/bulk/approve", submissionService.BulkApproveSubmissions)
	admin.Post("/submissions/bulk/reject", submissionService.BulkRejectSubmissions)

	admin.Get("/submissions/:id", submissionService.GetSubmission)
	admin.Patch("/submissions/:id", submissionService.UpdateSubmission)
	admin.Delete("/submissions/:id", submissionService.DeleteSubmission)
	admin.Post("/submissions/:id/approve", submissionService.ApproveSubmission)
	admin.Post("/submissions/:id/reject", submissionService.RejectSubmission)
	admin.Get("/submissions/:id/wallet", submissionService.ValidateSubmissionWallet)
	admin.Get("/submissions/:id/payments", submissionService.GetPaymentAttempts)
}
