// workers/profile_sync_worker.go
package workers

import (
	"context"
	"strings"
	"time"

	"bounty-review-system/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const profilesPath = "/api/v1/public/profiles"

// RemoteProfile is one entry of the sync service's profile feed.
type RemoteProfile struct {
	ExternalID    string    `json:"external_id"`
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	AccountStatus string    `json:"account_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type profileChanges struct {
	Users []RemoteProfile `json:"users"`
}

// ProfileSyncWorker mirrors profiles into the users table so submissions can
// resolve their creator.
type ProfileSyncWorker struct {
	db       *gorm.DB
	client   *SyncClient
	interval time.Duration
	since    time.Time
}

func NewProfileSyncWorker(db *gorm.DB, client *SyncClient, interval time.Duration) *ProfileSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ProfileSyncWorker{db: db, client: client, interval: interval}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	zap.L().Info("profile sync worker started", zap.Duration("interval", w.interval))
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time.
	if _, err := w.SyncOnce(ctx); err != nil {
		zap.L().Warn("initial profile sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				zap.L().Error("profile sync batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			zap.L().Info("profile sync worker stopped")
			return
		}
	}
}

// SyncOnce pulls profile changes since the last successful batch and upserts
// them. It returns the number of users written.
func (w *ProfileSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	var changes profileChanges
	if err := w.client.getChanges(ctx, profilesPath, w.since, &changes); err != nil {
		return 0, err
	}
	if len(changes.Users) == 0 {
		return 0, nil
	}

	var upserted, failed int
	latest := w.since
	for _, p := range changes.Users {
		if p.ExternalID == "" {
			continue
		}
		user := models.User{
			ID:        p.ExternalID,
			Handle:    p.Username,
			Role:      roleFromProfile(p.Role),
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		// wallet_address is never touched here; it belongs to the wallet feed and the user.
		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"handle", "role", "updated_at"}),
		}).Create(&user).Error; err != nil {
			failed++
			zap.L().Warn("failed to upsert user",
				zap.String("external_id", p.ExternalID),
				zap.String("username", p.Username),
				zap.Error(err))
			continue
		}
		upserted++
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}

	// A failed row is retried with the next window.
	if failed == 0 {
		w.since = latest
	}
	zap.L().Info("profiles synced",
		zap.Int("received", len(changes.Users)),
		zap.Int("upserted", upserted),
		zap.Int("failed", failed))
	return upserted, nil
}

func roleFromProfile(role string) models.UserRole {
	if strings.EqualFold(strings.TrimSpace(role), string(models.UserRoleAdmin)) {
		return models.UserRoleAdmin
	}
	return models.UserRoleCreator
}
