// services/aggregate.go
package services

import (
	"errors"
	"time"

	"bounty-review-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AggregateMaintainer recomputes a bounty's derived submission statistics.
// Recompute must be called with the transaction that changed the submissions.
type AggregateMaintainer interface {
	Recompute(tx *gorm.DB, bountyID string) (*models.Bounty, error)
}

type BountyAggregator struct {
	now func() time.Time
}

func NewBountyAggregator() *BountyAggregator {
	return &BountyAggregator{now: time.Now}
}

var hundred = decimal.NewFromInt(100)

// CompletionPercentage is round(count*100/total, 2), or 0 when total is not positive.
func CompletionPercentage(count, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(count).Mul(hundred).Div(decimal.NewFromInt(total)).Round(2)
}

// Recompute counts every submission of the bounty, whatever its status, and
// writes submissions_count and completion_percentage. Running it twice with no
// submission change writes the same values.
func (a *BountyAggregator) Recompute(tx *gorm.DB, bountyID string) (*models.Bounty, error) {
	var bounty models.Bounty
	// Row lock serializes concurrent writers of the same bounty (no-op on SQLite).
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&bounty, "id = ?", bountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindAggregateInconsistency, err, "bounty %s not found during recompute", bountyID)
		}
		return nil, newError(KindAggregateInconsistency, err, "failed to lock bounty %s", bountyID)
	}

	var count int64
	if err := tx.Model(&models.Submission{}).Where("bounty_id = ?", bountyID).Count(&count).Error; err != nil {
		return nil, newError(KindAggregateInconsistency, err, "failed to count submissions for bounty %s", bountyID)
	}

	pct := CompletionPercentage(count, bounty.TotalSubmissions)
	now := a.now()
	if err := tx.Model(&models.Bounty{}).Where("id = ?", bountyID).Updates(map[string]interface{}{
		"submissions_count":     count,
		"completion_percentage": pct,
		"updated_at":            now,
	}).Error; err != nil {
		return nil, newError(KindAggregateInconsistency, err, "failed to write aggregates for bounty %s", bountyID)
	}

	bounty.SubmissionsCount = count
	bounty.CompletionPercentage = pct
	bounty.UpdatedAt = now
	return &bounty, nil
}
