// workers/wallet_sync_worker.go
package workers

import (
	"context"
	"strings"
	"time"

	"bounty-review-system/models"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const walletsPath = "/api/v1/public/wallets"

// RemoteWallet is one entry of the sync service's wallet feed.
type RemoteWallet struct {
	UserID     string    `json:"user_id"`
	Address    string    `json:"address"`
	Chain      string    `json:"chain"`
	IsTreasury bool      `json:"is_treasury"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type walletChanges struct {
	Wallets []RemoteWallet `json:"wallets"`
}

// WalletSyncWorker fills in payout addresses for users who have not set one
// themselves. An address a creator set locally is never overwritten.
type WalletSyncWorker struct {
	db       *gorm.DB
	client   *SyncClient
	interval time.Duration
	since    time.Time
}

func NewWalletSyncWorker(db *gorm.DB, client *SyncClient, interval time.Duration) *WalletSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &WalletSyncWorker{
		db:       db,
		client:   client,
		interval: interval,
		since:    time.Now().UTC().Add(-24 * time.Hour),
	}
}

func (w *WalletSyncWorker) Start(ctx context.Context) {
	zap.L().Info("wallet sync worker started", zap.Duration("interval", w.interval))
	go w.run(ctx)
}

func (w *WalletSyncWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("wallet sync worker stopped")
			return
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				zap.L().Error("wallet sync failed", zap.Error(err))
			}
		}
	}
}

// SyncOnce applies wallet changes since the last successful poll and returns
// the number of users whose address was filled in.
func (w *WalletSyncWorker) SyncOnce(ctx context.Context) (int64, error) {
	polledAt := time.Now().UTC()

	var changes walletChanges
	if err := w.client.getChanges(ctx, walletsPath, w.since, &changes); err != nil {
		return 0, err
	}

	var filled int64
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, wallet := range changes.Wallets {
			address := strings.TrimSpace(wallet.Address)
			if !wallet.IsActive || wallet.IsTreasury || wallet.UserID == "" {
				continue
			}
			if !common.IsHexAddress(address) {
				zap.L().Warn("skipping malformed wallet from sync service",
					zap.String("user_id", wallet.UserID),
					zap.String("address", address))
				continue
			}

			res := tx.Model(&models.User{}).
				Where("id = ? AND (wallet_address IS NULL OR wallet_address = '')", wallet.UserID).
				Update("wallet_address", common.HexToAddress(address).Hex())
			if res.Error != nil {
				return res.Error
			}
			filled += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		// Keep the window so the same changes are retried next tick.
		return 0, err
	}

	w.since = polledAt
	if len(changes.Wallets) > 0 {
		zap.L().Info("wallets synced", zap.Int("received", len(changes.Wallets)), zap.Int64("filled", filled))
	}
	return filled, nil
}
