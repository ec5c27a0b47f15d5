// services/submission_service.go
package services

import (
	"strings"

	"bounty-review-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// SubmissionService exposes the submission store and the review workflow over HTTP.
type SubmissionService struct {
	store   *SubmissionStore
	review  *ReviewService
	wallets *WalletValidator
}

func NewSubmissionService(store *SubmissionStore, review *ReviewService, wallets *WalletValidator) *SubmissionService {
	return &SubmissionService{store: store, review: review, wallets: wallets}
}

// --- Creator Handlers ---

// CreateSubmission records a pending submission for the authenticated creator.
func (s *SubmissionService) CreateSubmission(c *fiber.Ctx) error {
	bountyID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, _ := c.Locals("user_id").(string)

	var req struct {
		SubmittedURL string `json:"submitted_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "kind": KindValidation})
	}

	sub, err := s.store.Create(c.UserContext(), bountyID, userID, req.SubmittedURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// GetMySubmissions lists the authenticated creator's submissions.
func (s *SubmissionService) GetMySubmissions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	subs, err := s.store.ListByCreator(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subs)
}

// --- Admin Handlers ---

func (s *SubmissionService) GetBountySubmissions(c *fiber.Ctx) error {
	bountyID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	subs, err := s.store.ListByBounty(c.UserContext(), bountyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subs)
}

// GetSubmissionsByStatus lists submissions in one status, pending by default.
func (s *SubmissionService) GetSubmissionsByStatus(c *fiber.Ctx) error {
	status := models.SubmissionStatus(strings.ToLower(c.Query("status", string(models.SubmissionStatusPending))))
	subs, err := s.store.ListByStatus(c.UserContext(), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subs)
}

func (s *SubmissionService) GetSubmission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	sub, err := s.store.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

type approveBody struct {
	PaymentAmount *decimal.Decimal `json:"payment_amount"`
	Recipient     string           `json:"recipient"`
	TokenAddress  string           `json:"token_address"`
}

func (b approveBody) request(id string) (ApproveRequest, error) {
	if b.PaymentAmount == nil {
		return ApproveRequest{}, newError(KindValidation, nil, "payment_amount is required")
	}
	return ApproveRequest{
		SubmissionID: id,
		Amount:       *b.PaymentAmount,
		Recipient:    b.Recipient,
		TokenAddress: b.TokenAddress,
	}, nil
}

// UpdateSubmission applies a status change. "claimed" runs the full payout
// flow; a client-supplied tx hash is never trusted.
func (s *SubmissionService) UpdateSubmission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Status models.SubmissionStatus `json:"status"`
		approveBody
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "kind": KindValidation})
	}

	var sub *models.Submission
	switch req.Status {
	case models.SubmissionStatusClaimed:
		approve, err := req.approveBody.request(id)
		if err != nil {
			return respondError(c, err)
		}
		sub, err = s.review.Approve(c.UserContext(), approve)
		if err != nil {
			return respondError(c, err)
		}
	case models.SubmissionStatusRejected:
		sub, err = s.review.Reject(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
	case models.SubmissionStatusPending:
		return respondError(c, newError(KindInvalidTransition, nil, "submissions cannot be moved back to pending"))
	default:
		return respondError(c, newError(KindValidation, nil, "status must be claimed or rejected"))
	}
	return c.JSON(sub)
}

func (s *SubmissionService) ApproveSubmission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var body approveBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "kind": KindValidation})
	}
	req, err := body.request(id)
	if err != nil {
		return respondError(c, err)
	}

	sub, err := s.review.Approve(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

func (s *SubmissionService) RejectSubmission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	sub, err := s.review.Reject(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

type bulkBody struct {
	IDs           []string         `json:"ids"`
	PaymentAmount *decimal.Decimal `json:"payment_amount"`
	TokenAddress  string           `json:"token_address"`
}

func (s *SubmissionService) BulkApproveSubmissions(c *fiber.Ctx) error {
	var req bulkBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "kind": KindValidation})
	}
	if len(req.IDs) == 0 {
		return respondError(c, newError(KindValidation, nil, "ids must not be empty"))
	}
	if req.PaymentAmount == nil || !req.PaymentAmount.IsPositive() {
		return respondError(c, newError(KindValidation, nil, "payment_amount must be positive"))
	}

	result := s.review.BulkApprove(c.UserContext(), req.IDs, *req.PaymentAmount, req.TokenAddress)
	return respondBulk(c, result)
}

func (s *SubmissionService) BulkRejectSubmissions(c *fiber.Ctx) error {
	var req bulkBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "kind": KindValidation})
	}
	if len(req.IDs) == 0 {
		return respondError(c, newError(KindValidation, nil, "ids must not be empty"))
	}

	result := s.review.BulkReject(c.UserContext(), req.IDs)
	return respondBulk(c, result)
}

// respondBulk answers 200 when every item succeeded, 207 on partial success
// and 422 when nothing succeeded.
func respondBulk(c *fiber.Ctx, result BulkResult) error {
	status := fiber.StatusOK
	switch result.Outcome() {
	case "partial":
		status = fiber.StatusMultiStatus
	case "failed":
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{
		"outcome":   result.Outcome(),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"items":     result.Items,
	})
}

func (s *SubmissionService) DeleteSubmission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.store.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Submission deleted successfully"})
}

// ValidateSubmissionWallet lets an admin check the payee before approving.
// A negative validation is a 200 with valid=false.
func (s *SubmissionService) ValidateSubmissionWallet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	result, err := s.wallets.Validate(c.UserContext(), id)
	if err != nil {
		return respondError(c, newError(KindInternal, err, "wallet validation failed"))
	}
	return c.JSON(result)
}

func (s *SubmissionService) GetPaymentAttempts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	attempts, err := s.review.PaymentAttempts(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(attempts)
}
