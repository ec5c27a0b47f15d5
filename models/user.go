package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleCreator UserRole = "creator"
)

// User is a local mirror of the profile service's user, kept in sync by the workers.
// WalletAddress stays nil until the creator sets a payout address.
type User struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Handle        string    `gorm:"index;not null" json:"handle"`
	WalletAddress *string   `gorm:"type:varchar(128)" json:"wallet_address,omitempty"`
	Role          UserRole  `gorm:"type:varchar(16);not null;default:'creator'" json:"role"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Wallet returns the trimmed wallet address, or "" when none is on file.
func (u *User) Wallet() string {
	if u.WalletAddress == nil {
		return ""
	}
	return strings.TrimSpace(*u.WalletAddress)
}
