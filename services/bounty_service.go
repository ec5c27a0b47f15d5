// services/bounty_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"bounty-review-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BountyService struct {
	DB         *gorm.DB
	store      *SubmissionStore
	aggregates AggregateMaintainer
}

func NewBountyService(db *gorm.DB, store *SubmissionStore, aggregates AggregateMaintainer) *BountyService {
	return &BountyService{DB: db, store: store, aggregates: aggregates}
}

// BountyInput holds the admin-editable fields of a bounty. Nil fields are left unchanged on update.
type BountyInput struct {
	Title            *string              `json:"title"`
	Description      *string              `json:"description"`
	Requirements     []string             `json:"requirements"`
	BountyPool       *decimal.Decimal     `json:"bounty_pool"`
	TokenSymbol      *string              `json:"token_symbol"`
	Status           *models.BountyStatus `json:"status"`
	TotalSubmissions *int64               `json:"total_submissions"`
	EndDate          *time.Time           `json:"end_date"`
}

// Create stores a new bounty with zeroed aggregates.
func (s *BountyService) Create(ctx context.Context, in BountyInput, createdBy string) (*models.Bounty, error) {
	if in.Title == nil || in.Description == nil || in.BountyPool == nil || in.TokenSymbol == nil || in.TotalSubmissions == nil {
		return nil, newError(KindValidation, nil, "title, description, bounty_pool, token_symbol and total_submissions are required")
	}

	bounty := &models.Bounty{
		ID:                   uuid.NewString(),
		Status:               models.BountyStatusDraft,
		CompletionPercentage: decimal.Zero,
		CreatedBy:            createdBy,
	}
	if err := applyBountyInput(bounty, in); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Create(bounty).Error; err != nil {
		return nil, newError(KindInternal, err, "failed to create bounty")
	}
	zap.L().Info("bounty created", zap.String("bounty_id", bounty.ID), zap.String("created_by", createdBy))
	return bounty, nil
}

// Update edits the non-derived fields. A change of total_submissions
// recomputes the aggregate in the same transaction.
func (s *BountyService) Update(ctx context.Context, id string, in BountyInput) (*models.Bounty, error) {
	var bounty models.Bounty
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bounty, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, err, "bounty %s not found", id)
			}
			return err
		}
		previousTotal := bounty.TotalSubmissions

		if err := applyBountyInput(&bounty, in); err != nil {
			return err
		}
		// Derived columns are owned by the aggregator.
		if err := tx.Model(&models.Bounty{}).Where("id = ?", id).
			Select("title", "description", "requirements", "bounty_pool", "token_symbol",
				"status", "total_submissions", "end_date", "updated_at").
			Updates(&bounty).Error; err != nil {
			return err
		}

		if bounty.TotalSubmissions != previousTotal {
			updated, err := s.aggregates.Recompute(tx, id)
			if err != nil {
				return err
			}
			bounty.SubmissionsCount = updated.SubmissionsCount
			bounty.CompletionPercentage = updated.CompletionPercentage
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to update bounty")
	}
	return &bounty, nil
}

func (s *BountyService) Get(ctx context.Context, id string) (*models.Bounty, error) {
	var bounty models.Bounty
	if err := s.DB.WithContext(ctx).First(&bounty, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, err, "bounty %s not found", id)
		}
		return nil, newError(KindInternal, err, "failed to load bounty")
	}
	return &bounty, nil
}

// List returns bounties newest first, optionally filtered by status.
func (s *BountyService) List(ctx context.Context, status models.BountyStatus) ([]models.Bounty, error) {
	query := s.DB.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		if !status.Valid() {
			return nil, newError(KindValidation, nil, "unknown bounty status %q", status)
		}
		query = query.Where("status = ?", status)
	}
	var bounties []models.Bounty
	if err := query.Find(&bounties).Error; err != nil {
		return nil, newError(KindInternal, err, "failed to list bounties")
	}
	return bounties, nil
}

func applyBountyInput(b *models.Bounty, in BountyInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return newError(KindValidation, nil, "title must not be empty")
		}
		b.Title = title
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			return newError(KindValidation, nil, "description must not be empty")
		}
		b.Description = desc
	}
	if in.Requirements != nil {
		raw, err := json.Marshal(in.Requirements)
		if err != nil {
			return newError(KindValidation, err, "invalid requirements")
		}
		b.Requirements = string(raw)
	}
	if in.BountyPool != nil {
		if !in.BountyPool.IsPositive() {
			return newError(KindValidation, nil, "bounty_pool must be positive")
		}
		b.BountyPool = *in.BountyPool
	}
	if in.TokenSymbol != nil {
		symbol := strings.ToUpper(strings.TrimSpace(*in.TokenSymbol))
		if symbol == "" {
			return newError(KindValidation, nil, "token_symbol must not be empty")
		}
		b.TokenSymbol = symbol
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return newError(KindValidation, nil, "unknown bounty status %q", *in.Status)
		}
		b.Status = *in.Status
	}
	if in.TotalSubmissions != nil {
		if *in.TotalSubmissions <= 0 {
			return newError(KindValidation, nil, "total_submissions must be positive")
		}
		b.TotalSubmissions = *in.TotalSubmissions
	}
	if in.EndDate != nil {
		b.EndDate = in.EndDate
	}
	b.UpdatedAt = time.Now()
	return nil
}

// --- HTTP handlers ---

// CreateBounty creates a new bounty (Admin only)
func (s *BountyService) CreateBounty(c *fiber.Ctx) error {
	var req BountyInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "kind": KindValidation})
	}
	userID, _ := c.Locals("user_id").(string)

	bounty, err := s.Create(c.UserContext(), req, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bounty)
}

// UpdateBounty edits an existing bounty (Admin only)
func (s *BountyService) UpdateBounty(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req BountyInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "kind": KindValidation})
	}

	bounty, err := s.Update(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bounty)
}

// DeleteBounty deletes a bounty and all of its submissions (Admin only)
func (s *BountyService) DeleteBounty(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.store.DeleteBounty(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Bounty deleted successfully"})
}

func (s *BountyService) GetBounty(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	bounty, err := s.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bounty)
}

// GetBounties lists bounties; ?status= filters by lifecycle state.
func (s *BountyService) GetBounties(c *fiber.Ctx) error {
	status := models.BountyStatus(strings.ToLower(c.Query("status")))
	bounties, err := s.List(c.UserContext(), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bounties)
}

// paramID reads a uuid route parameter.
func paramID(c *fiber.Ctx, name string) (string, error) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", newError(KindValidation, err, "invalid %s", name)
	}
	return id, nil
}
