// services/review_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"bounty-review-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApproveRequest is an admin's decision to pay out a submission.
// Recipient is advisory: the validated wallet always wins.
type ApproveRequest struct {
	SubmissionID string
	Amount       decimal.Decimal
	Recipient    string
	TokenAddress string
}

// ReviewService turns pending submissions into claimed or rejected ones.
type ReviewService struct {
	DB         *gorm.DB
	store      *SubmissionStore
	wallets    *WalletValidator
	dispatcher *PaymentDispatcher
	poller     *ConfirmationPoller

	// DefaultTokenAddress is used when a request names no token; empty means native payments.
	DefaultTokenAddress string

	inflight sync.Map // submission id -> struct{}
}

func NewReviewService(db *gorm.DB, store *SubmissionStore, wallets *WalletValidator, dispatcher *PaymentDispatcher, poller *ConfirmationPoller) *ReviewService {
	return &ReviewService{
		DB:         db,
		store:      store,
		wallets:    wallets,
		dispatcher: dispatcher,
		poller:     poller,
	}
}

// Approve validates the payee, pays, waits for confirmation and only then
// marks the submission claimed. Any failure leaves the submission pending.
func (s *ReviewService) Approve(ctx context.Context, req ApproveRequest) (sub *models.Submission, err error) {
	defer func() { reviewDecisions.WithLabelValues("approve", resultLabel(err)).Inc() }()

	if !req.Amount.IsPositive() {
		return nil, newError(KindValidation, nil, "payment amount must be positive")
	}

	if _, busy := s.inflight.LoadOrStore(req.SubmissionID, struct{}{}); busy {
		return nil, newError(KindConflict, nil, "an approval for submission %s is already in progress", req.SubmissionID)
	}
	defer s.inflight.Delete(req.SubmissionID)

	current, err := s.store.Get(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.SubmissionStatusPending {
		return nil, newError(KindInvalidTransition, nil, "submission is %s, only pending submissions can be approved", current.Status)
	}

	log := zap.L().With(zap.String("submission_id", current.ID), zap.String("bounty_id", current.BountyID))

	validation, err := s.wallets.Validate(ctx, current.ID)
	if err != nil {
		return nil, newError(KindInternal, err, "wallet validation failed")
	}
	if !validation.Valid {
		log.Warn("wallet validation failed", zap.String("reason", validation.Error))
		return nil, newError(KindWalletInvalid, nil, "%s", validation.Error)
	}
	recipient, _ := ResolveRecipient(validation, req.Recipient)

	tokenAddress := strings.TrimSpace(req.TokenAddress)
	if tokenAddress == "" {
		tokenAddress = s.DefaultTokenAddress
	}

	attempt := &models.PaymentAttempt{
		ID:           uuid.NewString(),
		SubmissionID: current.ID,
		BountyID:     current.BountyID,
		Recipient:    recipient,
		Amount:       req.Amount,
		TokenAddress: tokenAddress,
		Status:       models.PaymentAttemptDispatched,
	}
	s.warnOnUnconfirmedAttempts(ctx, log, current.ID)

	txHash, err := s.dispatcher.Dispatch(ctx, recipient, req.Amount, tokenAddress)
	if err != nil {
		attempt.Status = models.PaymentAttemptRejected
		attempt.LastError = err.Error()
		s.recordAttempt(ctx, attempt)
		return nil, newError(KindPaymentDispatch, err, "payment could not be sent: %v", err)
	}
	attempt.TxHash = txHash
	s.recordAttempt(ctx, attempt)

	confirmation := s.poller.Await(ctx, txHash)
	attempt.PollAttempts = confirmation.Attempts

	switch confirmation.Outcome {
	case OutcomeConfirmed:
	case OutcomeFailed:
		attempt.Status = models.PaymentAttemptFailed
		attempt.LastError = fmt.Sprintf("transaction reported %s", confirmation.LastStatus)
		s.recordAttempt(ctx, attempt)
		log.Error("payment transaction failed", zap.String("tx_hash", txHash), zap.String("status", string(confirmation.LastStatus)))
		return nil, newError(KindPaymentFailed, nil, "payment transaction %s failed on settlement", txHash)
	default:
		attempt.Status = models.PaymentAttemptUnconfirmed
		attempt.LastError = fmt.Sprintf("no terminal status after %d attempts", confirmation.Attempts)
		s.recordAttempt(ctx, attempt)
		log.Error("payment confirmation timed out, payment may still be in flight",
			zap.String("tx_hash", txHash),
			zap.Int("attempts", confirmation.Attempts),
			zap.Error(confirmation.Err))
		return nil, newError(KindConfirmationTimeout, confirmation.Err,
			"payment %s was sent but not confirmed after %d checks; it may still settle", txHash, confirmation.Attempts)
	}

	sub, err = s.store.UpdateStatus(ctx, current.ID, models.SubmissionStatusClaimed, &Settlement{
		TxHash:        txHash,
		PaymentAmount: req.Amount,
	})
	if err != nil {
		// The payment has settled; the submission could not be marked. Keep the
		// attempt row as the record of the payout.
		attempt.Status = models.PaymentAttemptConfirmed
		attempt.LastError = err.Error()
		s.recordAttempt(ctx, attempt)
		log.Error("payment confirmed but submission update failed", zap.String("tx_hash", txHash), zap.Error(err))
		return nil, err
	}

	attempt.Status = models.PaymentAttemptConfirmed
	s.recordAttempt(ctx, attempt)
	log.Info("submission claimed", zap.String("tx_hash", txHash), zap.String("amount", req.Amount.String()))
	return sub, nil
}

// Reject marks a submission rejected. No payment is involved.
func (s *ReviewService) Reject(ctx context.Context, submissionID string) (sub *models.Submission, err error) {
	defer func() { reviewDecisions.WithLabelValues("reject", resultLabel(err)).Inc() }()

	if _, busy := s.inflight.Load(submissionID); busy {
		return nil, newError(KindConflict, nil, "submission %s is being approved", submissionID)
	}
	sub, err = s.store.UpdateStatus(ctx, submissionID, models.SubmissionStatusRejected, nil)
	if err != nil {
		return nil, err
	}
	zap.L().Info("submission rejected", zap.String("submission_id", sub.ID), zap.String("bounty_id", sub.BountyID))
	return sub, nil
}

// BulkItemResult is the outcome of one submission in a bulk action.
type BulkItemResult struct {
	SubmissionID string                  `json:"submission_id"`
	OK           bool                    `json:"ok"`
	Status       models.SubmissionStatus `json:"status,omitempty"`
	TxHash       string                  `json:"tx_hash,omitempty"`
	Kind         ErrorKind               `json:"kind,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

type BulkResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BulkItemResult `json:"items"`
}

// Outcome is "success", "partial", "failed", or "empty" for no items.
func (r BulkResult) Outcome() string {
	switch {
	case r.Succeeded == 0 && r.Failed == 0:
		return "empty"
	case r.Failed == 0:
		return "success"
	case r.Succeeded == 0:
		return "failed"
	default:
		return "partial"
	}
}

// BulkApprove approves each submission in turn with the same amount.
// One item failing never stops the rest.
func (s *ReviewService) BulkApprove(ctx context.Context, ids []string, amount decimal.Decimal, tokenAddress string) BulkResult {
	return s.bulk(ctx, "approve", ids, func(id string) (*models.Submission, error) {
		return s.Approve(ctx, ApproveRequest{SubmissionID: id, Amount: amount, TokenAddress: tokenAddress})
	})
}

func (s *ReviewService) BulkReject(ctx context.Context, ids []string) BulkResult {
	return s.bulk(ctx, "reject", ids, func(id string) (*models.Submission, error) {
		return s.Reject(ctx, id)
	})
}

// bulk runs op sequentially over the deduplicated ids.
func (s *ReviewService) bulk(ctx context.Context, action string, ids []string, op func(id string) (*models.Submission, error)) BulkResult {
	ids = dedupe(ids)
	bulkBatchSize.WithLabelValues(action).Observe(float64(len(ids)))

	result := BulkResult{Items: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		item := BulkItemResult{SubmissionID: id}
		if err := ctx.Err(); err != nil {
			item.Kind, item.Error = KindInternal, fmt.Sprintf("bulk %s cancelled: %v", action, err)
		} else if sub, err := op(id); err != nil {
			item.Kind, item.Error = KindOf(err), err.Error()
		} else {
			item.OK, item.Status = true, sub.Status
			if sub.TxHash != nil {
				item.TxHash = *sub.TxHash
			}
		}

		if item.OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Items = append(result.Items, item)
	}

	zap.L().Info("bulk review finished",
		zap.String("action", action),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result
}

// PaymentAttempts lists the payouts sent for a submission, newest first.
func (s *ReviewService) PaymentAttempts(ctx context.Context, submissionID string) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	if err := s.DB.WithContext(ctx).Where("submission_id = ?", submissionID).
		Order("created_at DESC").Find(&attempts).Error; err != nil {
		return nil, newError(KindInternal, err, "failed to list payment attempts")
	}
	return attempts, nil
}

// recordAttempt upserts the audit row. It never fails the approval.
func (s *ReviewService) recordAttempt(ctx context.Context, attempt *models.PaymentAttempt) {
	if err := s.DB.WithContext(context.WithoutCancel(ctx)).Save(attempt).Error; err != nil {
		zap.L().Error("failed to record payment attempt",
			zap.String("submission_id", attempt.SubmissionID),
			zap.String("tx_hash", attempt.TxHash),
			zap.Error(err))
	}
}

// warnOnUnconfirmedAttempts flags retries of a submission whose earlier
// payment was never confirmed.
func (s *ReviewService) warnOnUnconfirmedAttempts(ctx context.Context, log *zap.Logger, submissionID string) {
	var previous []models.PaymentAttempt
	if err := s.DB.WithContext(ctx).
		Where("submission_id = ? AND status = ?", submissionID, models.PaymentAttemptUnconfirmed).
		Find(&previous).Error; err != nil {
		return
	}
	for _, p := range previous {
		log.Warn("earlier payment for this submission was never confirmed",
			zap.String("previous_tx_hash", p.TxHash),
			zap.String("previous_amount", p.Amount.String()))
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
