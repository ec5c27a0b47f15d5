// services/wallet_validator.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bounty-review-system/models"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WalletValidation is the structured result of resolving a submission's payee.
// A negative result is not an error: Valid is false and Error says why.
type WalletValidation struct {
	Valid         bool   `json:"valid"`
	WalletAddress string `json:"wallet_address,omitempty"`
	CreatorID     string `json:"creator_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WalletValidator resolves the payout address of a submission's creator.
type WalletValidator struct {
	DB *gorm.DB
}

func NewWalletValidator(db *gorm.DB) *WalletValidator {
	return &WalletValidator{DB: db}
}

// Validate reads the creator's wallet as currently stored. Lookup failures
// other than missing rows are returned as errors.
func (v *WalletValidator) Validate(ctx context.Context, submissionID string) (WalletValidation, error) {
	var sub models.Submission
	if err := v.DB.WithContext(ctx).Select("id", "creator_id", "creator").
		First(&sub, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WalletValidation{Error: "submission not found"}, nil
		}
		return WalletValidation{}, fmt.Errorf("failed to load submission %s: %w", submissionID, err)
	}

	var creator models.User
	if err := v.DB.WithContext(ctx).First(&creator, "id = ?", sub.CreatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WalletValidation{CreatorID: sub.CreatorID, Error: "creator not found"}, nil
		}
		return WalletValidation{}, fmt.Errorf("failed to load creator %s: %w", sub.CreatorID, err)
	}

	address := creator.Wallet()
	if address == "" {
		return WalletValidation{
			CreatorID: creator.ID,
			Error:     fmt.Sprintf("creator %s has not set their wallet address yet", creator.Handle),
		}, nil
	}
	if !common.IsHexAddress(address) {
		return WalletValidation{
			CreatorID: creator.ID,
			Error:     fmt.Sprintf("creator %s has a malformed wallet address", creator.Handle),
		}, nil
	}

	return WalletValidation{Valid: true, WalletAddress: address, CreatorID: creator.ID}, nil
}

// ResolveRecipient picks the address to pay. The validated address always wins
// over one supplied by the caller.
func ResolveRecipient(v WalletValidation, supplied string) (string, bool) {
	supplied = strings.TrimSpace(supplied)
	if supplied != "" && !strings.EqualFold(supplied, v.WalletAddress) {
		zap.L().Warn("recipient address mismatch, using validated wallet address",
			zap.String("creator_id", v.CreatorID),
			zap.String("supplied", supplied),
			zap.String("validated", v.WalletAddress))
		return v.WalletAddress, true
	}
	return v.WalletAddress, false
}
