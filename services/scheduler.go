// services/scheduler.go
package services

import (
	"context"
	"time"

	"bounty-review-system/models"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// EndExpiredBounties moves active or paused bounties whose end date has passed
// to ended. It returns the number of bounties changed.
func (s *BountyService) EndExpiredBounties(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Bounty{}).
		Where("status IN ? AND end_date IS NOT NULL AND end_date <= ?",
			[]models.BountyStatus{models.BountyStatusActive, models.BountyStatusPaused}, now).
		Updates(map[string]interface{}{
			"status":     models.BountyStatusEnded,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// StartEndDateScheduler runs EndExpiredBounties every interval until ctx is done.
func (s *BountyService) StartEndDateScheduler(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ended, err := s.EndExpiredBounties(ctx, time.Now())
			if err != nil {
				zap.L().Error("scheduler: failed to end expired bounties", zap.Error(err))
				return
			}
			if ended > 0 {
				zap.L().Info("scheduler: ended expired bounties", zap.Int64("count", ended))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			zap.L().Warn("scheduler shutdown failed", zap.Error(err))
		}
	}()
	return sched, nil
}
