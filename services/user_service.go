// services/user_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"bounty-review-system/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, err, "user %s not found", id)
		}
		return nil, newError(KindInternal, err, "failed to load user")
	}
	return &user, nil
}

// SetWallet stores the payout address in its checksummed form.
func (s *UserService) SetWallet(ctx context.Context, id, address string) (*models.User, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return nil, newError(KindValidation, nil, "wallet_address must be a 0x-prefixed 20-byte hex address")
	}
	checksummed := common.HexToAddress(address).Hex()

	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("wallet_address", checksummed)
	if res.Error != nil {
		return nil, newError(KindInternal, res.Error, "failed to save wallet address")
	}
	if res.RowsAffected == 0 {
		return nil, newError(KindNotFound, nil, "user %s not found", id)
	}

	zap.L().Info("wallet address updated", zap.String("user_id", id), zap.String("wallet_address", checksummed))
	return s.Get(ctx, id)
}

// GetMyWallet returns the authenticated user's payout address.
func (s *UserService) GetMyWallet(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	user, err := s.Get(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id":        user.ID,
		"wallet_address": user.Wallet(),
		"has_wallet":     user.Wallet() != "",
	})
}

// UpdateMyWallet sets the authenticated user's payout address.
func (s *UserService) UpdateMyWallet(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "kind": KindValidation})
	}

	user, err := s.SetWallet(c.UserContext(), userID, req.WalletAddress)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id":        user.ID,
		"wallet_address": user.Wallet(),
		"has_wallet":     true,
	})
}
