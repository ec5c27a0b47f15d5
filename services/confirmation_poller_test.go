package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAwaitConfirmation_Outcomes(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []TxStatus
		wantOutcome  ConfirmationOutcome
		wantAttempts int
	}{
		{"confirmed on second attempt", []TxStatus{TxStatusPending, TxStatusConfirmed}, OutcomeConfirmed, 2},
		{"success counts as confirmed", []TxStatus{TxStatusSuccess}, OutcomeConfirmed, 1},
		{"explicit failure", []TxStatus{TxStatusNotFound, TxStatusFailed}, OutcomeFailed, 2},
		{"error status", []TxStatus{TxStatusError}, OutcomeFailed, 1},
		{"never terminal", []TxStatus{TxStatusPending}, OutcomeTimedOut, 10},
		{"never found", []TxStatus{TxStatusNotFound}, OutcomeTimedOut, 10},
		{"unknown status keeps polling", []TxStatus{"queued", "queued", TxStatusSuccess}, OutcomeConfirmed, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{statuses: tt.statuses}
			p := NewConfirmationPoller(backend, 10, 0)

			got := p.AwaitConfirmation(context.Background(), sampleTxHash, 10, 0)
			assert.Equal(t, tt.wantOutcome, got.Outcome)
			assert.Equal(t, tt.wantAttempts, got.Attempts)
			assert.Equal(t, tt.wantAttempts, backend.statusCalls)
			assert.NoError(t, got.Err)
		})
	}
}

func TestAwaitConfirmation_TransientErrorsConsumeAttempts(t *testing.T) {
	backend := &fakeBackend{statusFn: func(call int) (TxStatus, error) {
		if call < 3 {
			return "", errors.New("status endpoint unavailable")
		}
		return TxStatusConfirmed, nil
	}}
	got := NewConfirmationPoller(backend, 5, 0).Await(context.Background(), sampleTxHash)
	assert.Equal(t, OutcomeConfirmed, got.Outcome)
	assert.Equal(t, 3, got.Attempts)
}

func TestAwaitConfirmation_ErrorOnFinalAttemptTimesOut(t *testing.T) {
	backend := &fakeBackend{statusFn: func(int) (TxStatus, error) {
		return "", errors.New("boom")
	}}
	got := NewConfirmationPoller(backend, 4, 0).Await(context.Background(), sampleTxHash)
	assert.Equal(t, OutcomeTimedOut, got.Outcome)
	assert.Equal(t, 4, got.Attempts)
	assert.NoError(t, got.Err)
}

func TestAwaitConfirmation_WaitsBetweenAttempts(t *testing.T) {
	backend := &fakeBackend{statuses: []TxStatus{TxStatusPending, TxStatusPending, TxStatusConfirmed}}
	start := time.Now()
	got := NewConfirmationPoller(backend, 10, 0).AwaitConfirmation(context.Background(), sampleTxHash, 10, 20*time.Millisecond)
	assert.Equal(t, OutcomeConfirmed, got.Outcome)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestAwaitConfirmation_CancelledByCaller(t *testing.T) {
	backend := &fakeBackend{statuses: []TxStatus{TxStatusPending}}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	got := NewConfirmationPoller(backend, 10, 0).AwaitConfirmation(ctx, sampleTxHash, 10, time.Hour)
	assert.Equal(t, OutcomeTimedOut, got.Outcome)
	assert.Equal(t, 1, got.Attempts)
	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
}

func TestNewConfirmationPoller_Defaults(t *testing.T) {
	p := NewConfirmationPoller(&fakeBackend{}, 0, -1)
	assert.Equal(t, DefaultConfirmationAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultConfirmationInterval, p.Interval)
}
