package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusClaimed  SubmissionStatus = "claimed"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusClaimed, SubmissionStatusRejected:
		return true
	}
	return false
}

// Submission is a creator's entry against a bounty.
// TxHash and PaymentAmount are only set once the submission is claimed.
type Submission struct {
	ID            string              `gorm:"primaryKey;type:varchar(64)" json:"id"`
	BountyID      string              `gorm:"type:varchar(64);not null;index;index:idx_submissions_active,unique,where:status <> 'rejected'" json:"bounty_id"`
	CreatorID     string              `gorm:"type:varchar(64);not null;index;index:idx_submissions_active,unique,where:status <> 'rejected'" json:"creator_id"`
	Creator       string              `json:"creator"` // handle at submission time
	SubmittedURL  string              `gorm:"type:text;not null" json:"submitted_url"`
	Status        SubmissionStatus    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	TxHash        *string             `gorm:"type:varchar(80)" json:"tx_hash,omitempty"`
	PaymentAmount decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"payment_amount"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
