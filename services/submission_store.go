// services/submission_store.go
package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"bounty-review-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Settlement carries the payment reference written when a submission is claimed.
type Settlement struct {
	TxHash        string
	PaymentAmount decimal.Decimal
}

// SubmissionStore owns submission records. Every mutation commits together with
// the aggregate recompute of the affected bounty, or not at all.
type SubmissionStore struct {
	DB         *gorm.DB
	aggregates AggregateMaintainer
}

func NewSubmissionStore(db *gorm.DB, aggregates AggregateMaintainer) *SubmissionStore {
	return &SubmissionStore{DB: db, aggregates: aggregates}
}

// Create records a pending submission. A creator may only resubmit to a bounty
// once their previous submission for it was rejected.
func (s *SubmissionStore) Create(ctx context.Context, bountyID, creatorID, submittedURL string) (*models.Submission, error) {
	submittedURL = strings.TrimSpace(submittedURL)
	if err := validateSubmittedURL(submittedURL); err != nil {
		return nil, err
	}
	if bountyID == "" || creatorID == "" {
		return nil, newError(KindValidation, nil, "bounty and creator are required")
	}

	sub := &models.Submission{
		ID:           uuid.NewString(),
		BountyID:     bountyID,
		CreatorID:    creatorID,
		SubmittedURL: submittedURL,
		Status:       models.SubmissionStatusPending,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bounty models.Bounty
		if err := tx.First(&bounty, "id = ?", bountyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, err, "bounty %s not found", bountyID)
			}
			return err
		}
		if bounty.Status != models.BountyStatusActive {
			return newError(KindValidation, nil, "bounty is %s and not accepting submissions", bounty.Status)
		}

		var creator models.User
		if err := tx.First(&creator, "id = ?", creatorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, err, "creator %s not found", creatorID)
			}
			return err
		}
		sub.Creator = creator.Handle

		var active int64
		if err := tx.Model(&models.Submission{}).
			Where("bounty_id = ? AND creator_id = ? AND status <> ?", bountyID, creatorID, models.SubmissionStatusRejected).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return newError(KindConflict, nil, "creator already has an active submission for this bounty")
		}

		if err := tx.Create(sub).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(KindConflict, err, "creator already has an active submission for this bounty")
			}
			return err
		}

		_, err := s.aggregates.Recompute(tx, bountyID)
		return err
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to create submission")
	}

	zap.L().Info("submission created",
		zap.String("submission_id", sub.ID),
		zap.String("bounty_id", bountyID),
		zap.String("creator_id", creatorID))
	return sub, nil
}

// UpdateStatus applies a status transition. Claimed is terminal; rejecting an
// already rejected submission is a no-op.
func (s *SubmissionStore) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, settlement *Settlement) (*models.Submission, error) {
	if !status.Valid() {
		return nil, newError(KindValidation, nil, "unknown status %q", status)
	}
	if status == models.SubmissionStatusClaimed {
		if err := validateSettlement(settlement); err != nil {
			return nil, err
		}
	}

	var sub models.Submission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, err, "submission %s not found", id)
			}
			return err
		}

		if err := checkTransition(sub.Status, status); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}
		if status == models.SubmissionStatusClaimed {
			updates["tx_hash"] = settlement.TxHash
			updates["payment_amount"] = settlement.PaymentAmount
		}

		// The status guard in WHERE protects against a concurrent transition
		// that committed after our read.
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", id, sub.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return newError(KindInvalidTransition, nil, "submission %s changed status concurrently", id)
		}

		if _, err := s.aggregates.Recompute(tx, sub.BountyID); err != nil {
			return err
		}
		return tx.First(&sub, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to update submission status")
	}
	return &sub, nil
}

func checkTransition(from, to models.SubmissionStatus) error {
	switch {
	case from == models.SubmissionStatusClaimed:
		return newError(KindInvalidTransition, nil, "submission is already claimed")
	case from == models.SubmissionStatusPending && (to == models.SubmissionStatusClaimed || to == models.SubmissionStatusRejected):
		return nil
	case from == models.SubmissionStatusRejected && to == models.SubmissionStatusRejected:
		return nil
	default:
		return newError(KindInvalidTransition, nil, "cannot move submission from %s to %s", from, to)
	}
}

func (s *SubmissionStore) Get(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := s.DB.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, err, "submission %s not found", id)
		}
		return nil, newError(KindInternal, err, "failed to load submission")
	}
	return &sub, nil
}

func (s *SubmissionStore) ListByBounty(ctx context.Context, bountyID string) ([]models.Submission, error) {
	return s.list(ctx, "bounty_id = ?", bountyID)
}

func (s *SubmissionStore) ListByStatus(ctx context.Context, status models.SubmissionStatus) ([]models.Submission, error) {
	if !status.Valid() {
		return nil, newError(KindValidation, nil, "unknown status %q", status)
	}
	return s.list(ctx, "status = ?", status)
}

func (s *SubmissionStore) ListByCreator(ctx context.Context, creatorID string) ([]models.Submission, error) {
	return s.list(ctx, "creator_id = ?", creatorID)
}

func (s *SubmissionStore) list(ctx context.Context, query string, arg interface{}) ([]models.Submission, error) {
	var subs []models.Submission
	if err := s.DB.WithContext(ctx).Where(query, arg).Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, newError(KindInternal, err, "failed to list submissions")
	}
	return subs, nil
}

// Delete removes a submission that has not been paid out.
func (s *SubmissionStore) Delete(ctx context.Context, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, err, "submission %s not found", id)
			}
			return err
		}
		if sub.Status == models.SubmissionStatusClaimed {
			return newError(KindInvalidTransition, nil, "claimed submissions cannot be deleted")
		}
		if err := tx.Delete(&models.Submission{}, "id = ?", id).Error; err != nil {
			return err
		}
		_, err := s.aggregates.Recompute(tx, sub.BountyID)
		return err
	})
	if err != nil {
		return wrapStoreError(err, "failed to delete submission")
	}
	return nil
}

// DeleteBounty removes a bounty together with all of its submissions.
func (s *SubmissionStore) DeleteBounty(ctx context.Context, bountyID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Bounty{}, "id = ?", bountyID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return newError(KindNotFound, nil, "bounty %s not found", bountyID)
		}
		return tx.Delete(&models.Submission{}, "bounty_id = ?", bountyID).Error
	})
	if err != nil {
		return wrapStoreError(err, "failed to delete bounty")
	}
	zap.L().Info("bounty deleted", zap.String("bounty_id", bountyID))
	return nil
}

func validateSubmittedURL(raw string) error {
	if raw == "" {
		return newError(KindValidation, nil, "submitted_url is required")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return newError(KindValidation, err, "submitted_url must be an http(s) URL")
	}
	return nil
}

func validateSettlement(settlement *Settlement) error {
	if settlement == nil || strings.TrimSpace(settlement.TxHash) == "" {
		return newError(KindValidation, nil, "tx_hash is required to claim a submission")
	}
	if !settlement.PaymentAmount.IsPositive() {
		return newError(KindValidation, nil, "payment_amount must be positive")
	}
	return nil
}

// wrapStoreError keeps classified errors and marks anything else internal.
func wrapStoreError(err error, msg string) error {
	var re *ReviewError
	if errors.As(err, &re) {
		return err
	}
	return newError(KindInternal, err, "%s", msg)
}
