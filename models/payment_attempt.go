package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentAttemptStatus string

const (
	PaymentAttemptDispatched  PaymentAttemptStatus = "dispatched"
	PaymentAttemptConfirmed   PaymentAttemptStatus = "confirmed"
	PaymentAttemptFailed      PaymentAttemptStatus = "failed"
	PaymentAttemptUnconfirmed PaymentAttemptStatus = "unconfirmed" // poll budget ran out, payment may still land
	PaymentAttemptRejected    PaymentAttemptStatus = "rejected"    // backend refused the send
)

// PaymentAttempt records every payout sent for a submission so operators can
// trace payments whose confirmation was never observed.
type PaymentAttempt struct {
	ID           string               `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SubmissionID string               `gorm:"type:varchar(64);index;not null" json:"submission_id"`
	BountyID     string               `gorm:"type:varchar(64);index;not null" json:"bounty_id"`
	Recipient    string               `gorm:"type:varchar(128);not null" json:"recipient"`
	Amount       decimal.Decimal      `gorm:"type:numeric(20,8);not null" json:"amount"`
	TokenAddress string               `gorm:"type:varchar(128)" json:"token_address,omitempty"`
	TxHash       string               `gorm:"type:varchar(80);index" json:"tx_hash,omitempty"`
	Status       PaymentAttemptStatus `gorm:"type:varchar(16);not null" json:"status"`
	PollAttempts int                  `json:"poll_attempts"`
	LastError    string               `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt    time.Time            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `json:"updated_at" gorm:"autoUpdateTime"`
}
