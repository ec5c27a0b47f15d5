// services/confirmation_poller.go
package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultConfirmationAttempts = 10
	DefaultConfirmationInterval = 2 * time.Second
)

// ConfirmationOutcome is the terminal state of a confirmation poll.
type ConfirmationOutcome string

const (
	OutcomeConfirmed ConfirmationOutcome = "confirmed"
	OutcomeFailed    ConfirmationOutcome = "failed"
	OutcomeTimedOut  ConfirmationOutcome = "timed_out"
)

// Confirmation reports how a poll ended. Err is set only when the caller's
// context stopped the poll early.
type Confirmation struct {
	TxHash     string
	Outcome    ConfirmationOutcome
	Attempts   int
	LastStatus TxStatus
	Err        error
}

// ConfirmationPoller watches a dispatched transaction until it settles.
type ConfirmationPoller struct {
	backend     PaymentBackend
	MaxAttempts int
	Interval    time.Duration
}

func NewConfirmationPoller(backend PaymentBackend, maxAttempts int, interval time.Duration) *ConfirmationPoller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultConfirmationAttempts
	}
	if interval < 0 {
		interval = DefaultConfirmationInterval
	}
	return &ConfirmationPoller{backend: backend, MaxAttempts: maxAttempts, Interval: interval}
}

// Await polls with the poller's configured budget.
func (p *ConfirmationPoller) Await(ctx context.Context, txHash string) Confirmation {
	return p.AwaitConfirmation(ctx, txHash, p.MaxAttempts, p.Interval)
}

// AwaitConfirmation queries the transaction status at most maxAttempts times,
// sleeping interval between queries. Success/confirmed ends in confirmed,
// failed/error in failed; pending, not_found and query errors keep polling.
// Exhausting the budget yields timed_out. Only the calling goroutine waits.
func (p *ConfirmationPoller) AwaitConfirmation(ctx context.Context, txHash string, maxAttempts int, interval time.Duration) Confirmation {
	if maxAttempts <= 0 {
		maxAttempts = DefaultConfirmationAttempts
	}
	log := zap.L().With(zap.String("tx_hash", txHash))
	result := Confirmation{TxHash: txHash, Outcome: OutcomeTimedOut}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		status, err := p.backend.GetTransactionStatus(ctx, txHash)
		if err != nil {
			log.Warn("transaction status check failed", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			result.LastStatus = status
			log.Debug("transaction status", zap.Int("attempt", attempt), zap.String("status", string(status)))

			switch status {
			case TxStatusSuccess, TxStatusConfirmed:
				result.Outcome = OutcomeConfirmed
				return p.finish(result)
			case TxStatusFailed, TxStatusError:
				result.Outcome = OutcomeFailed
				return p.finish(result)
			}
		}

		if attempt == maxAttempts {
			break
		}
		if err := wait(ctx, interval); err != nil {
			result.Err = err
			log.Warn("confirmation polling cancelled", zap.Int("attempt", attempt), zap.Error(err))
			return p.finish(result)
		}
	}

	return p.finish(result)
}

func (p *ConfirmationPoller) finish(c Confirmation) Confirmation {
	confirmationOutcomes.WithLabelValues(string(c.Outcome)).Inc()
	confirmationAttempts.Observe(float64(c.Attempts))
	return c
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
