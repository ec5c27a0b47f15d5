package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BountyStatus is the lifecycle state of a campaign
type BountyStatus string

const (
	BountyStatusDraft     BountyStatus = "draft"
	BountyStatusActive    BountyStatus = "active"
	BountyStatusPaused    BountyStatus = "paused"
	BountyStatusCompleted BountyStatus = "completed"
	BountyStatusEnded     BountyStatus = "ended"
)

// Valid reports whether s is one of the known statuses.
func (s BountyStatus) Valid() bool {
	switch s {
	case BountyStatusDraft, BountyStatusActive, BountyStatusPaused, BountyStatusCompleted, BountyStatusEnded:
		return true
	}
	return false
}

// Bounty is a reward campaign creators submit content against.
// SubmissionsCount and CompletionPercentage are derived and only written by the aggregate maintainer.
type Bounty struct {
	ID                   string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title                string          `gorm:"not null" json:"title"`
	Description          string          `gorm:"type:text;not null" json:"description"`
	Requirements         string          `gorm:"type:text" json:"requirements"` // JSON array of strings
	BountyPool           decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"bounty_pool"`
	TokenSymbol          string          `gorm:"type:varchar(16);not null" json:"token_symbol"`
	Status               BountyStatus    `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	TotalSubmissions     int64           `gorm:"not null" json:"total_submissions"`
	SubmissionsCount     int64           `gorm:"not null;default:0" json:"submissions_count"`
	CompletionPercentage decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0" json:"completion_percentage"`
	EndDate              *time.Time      `json:"end_date,omitempty"`
	CreatedBy            string          `gorm:"type:varchar(64)" json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
