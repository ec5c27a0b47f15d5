package services

import (
	"context"
	"errors"
	"testing"

	"bounty-review-system/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type failingAggregator struct{}

func (failingAggregator) Recompute(*gorm.DB, string) (*models.Bounty, error) {
	return nil, newError(KindAggregateInconsistency, errors.New("store unavailable"), "recompute failed")
}

func newTestStore(t *testing.T) (*gorm.DB, *SubmissionStore) {
	db := setupTestDB(t)
	return db, NewSubmissionStore(db, NewBountyAggregator())
}

func TestSubmissionStore_CreateUpdatesAggregate(t *testing.T) {
	db, store := newTestStore(t)
	ctx := context.Background()
	bounty := seedBounty(t, db, 4)
	alice := seedUser(t, db, "alice", validWallet)

	sub, err := store.Create(ctx, bounty.ID, alice.ID, " https://x.com/alice/status/42 ")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, sub.Status)
	assert.Equal(t, "alice", sub.Creator)
	assert.Equal(t, "https://x.com/alice/status/42", sub.SubmittedURL)
	assert.Nil(t, sub.TxHash)

	stored := reloadBounty(t, db, bounty.ID)
	assert.Equal(t, int64(1), stored.SubmissionsCount)
	assert.Equal(t, "25.00", stored.CompletionPercentage.StringFixed(2))
}

func TestSubmissionStore_CreateValidation(t *testing.T) {
	db, store := newTestStore(t)
	ctx := context.Background()
	bounty := seedBounty(t, db, 4)
	alice := seedUser(t, db, "alice", validWallet)

	for _, raw := range []string{"", "   ", "not a url", "ftp://files.example.com/a", "https://"} {
		_, err := store.Create(ctx, bounty.ID, alice.ID, raw)
		assert.ErrorIs(t, err, ErrValidation, "url %q", raw)
	}

	_, err := store.Create(ctx, "00000000-0000-0000-0000-000000000000", alice.ID, "https://x.com/a")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Create(ctx, bounty.ID, "00000000-0000-0000-0000-000000000000", "https://x.com/a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Model(&models.Bounty{}).Where("id = ?", bounty.ID).
		Update("status", models.BountyStatusPaused).Error)
	_, err = store.Create(ctx, bounty.ID, alice.ID, "https://x.com/a")
	assert.ErrorIs(t, err, ErrValidation)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmissionStore_SingleActiveSubmission(t *testing.T) {
	db, store := newTestStore(t)
	ctx := context.Background()
	bounty := seedBounty(t, db, 10)
	alice := seedUser(t, db, "alice", validWallet)

	first, err := store.Create(ctx, bounty.ID, alice.ID, "https://x.com/alice/1")
	require.NoError(t, err)

	_, err = store.Create(ctx, bounty.ID, alice.ID, "https://x.com/alice/2")
	assert.ErrorIs(t, err, ErrConflict)

	// Resubmission is allowed once the earlier entry was rejected.
	_, err = store.UpdateStatus(ctx, first.ID, models.SubmissionStatusRejected, nil)
	require.NoError(t, err)

	second, err := store.Create(ctx, bounty.ID, alice.ID, "https://x.com/alice/2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	stored := reloadBounty(t, db, bounty.ID)
	assert.Equal(t, int64(2), stored.SubmissionsCount)
	assert.Equal(t, "20.00", stored.CompletionPercentage.StringFixed(2))
}

func TestSubmissionStore_UniqueIndexBacksActiveRule(t *testing.T) {
	db, _ := newTestStore(t)
	bounty := seedBounty(t, db, 10)
	alice := seedUser(t, db, "alice", validWallet)
	seedSubmission(t, db, bounty.ID, alice.ID, models.SubmissionStatusPending)

	dup := &models.Submission{
		ID:           "dup",
		BountyID:     bounty.ID,
		CreatorID:    alice.ID,
		SubmittedURL: "https://x.com/alice/dup",
		Status:       models.SubmissionStatusPending,
	}
	err := db.Create(dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestSubmissionStore_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.SubmissionStatus
		to      models.SubmissionStatus
		wantErr error
	}{
		{"pending to claimed", models.SubmissionStatusPending, models.SubmissionStatusClaimed, nil},
		{"pending to rejected", models.SubmissionStatusPending, models.SubmissionStatusRejected, nil},
		{"rejected again", models.SubmissionStatusRejected, models.SubmissionStatusRejected, nil},
		{"pending to pending", models.SubmissionStatusPending, models.SubmissionStatusPending, ErrInvalidTransition},
		{"rejected to claimed", models.SubmissionStatusRejected, models.SubmissionStatusClaimed, ErrInvalidTransition},
		{"rejected to pending", models.SubmissionStatusRejected, models.SubmissionStatusPending, ErrInvalidTransition},
		{"claimed to rejected", models.SubmissionStatusClaimed, models.SubmissionStatusRejected, ErrInvalidTransition},
		{"claimed to claimed", models.SubmissionStatusClaimed, models.SubmissionStatusClaimed, ErrInvalidTransition},
		{"claimed to pending", models.SubmissionStatusClaimed, models.SubmissionStatusPending, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, store := newTestStore(t)
			bounty := seedBounty(t, db, 10)
			alice := seedUser(t, db, "alice", validWallet)
			sub := seedSubmission(t, db, bounty.ID, alice.ID, tt.from)
			before := reloadSubmission(t, db, sub.ID)

			var settlement *Settlement
			if tt.to == models.SubmissionStatusClaimed {
				settlement = &Settlement{TxHash: "0xabc", PaymentAmount: decimal.RequireFromString("12.5")}
			}

			updated, err := store.UpdateStatus(context.Background(), sub.ID, tt.to, settlement)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				after := reloadSubmission(t, db, sub.ID)
				assert.Equal(t, before.Status, after.Status)
				assert.Equal(t, before.TxHash, after.TxHash)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.Status)
			if tt.to == models.SubmissionStatusClaimed {
				require.NotNil(t, updated.TxHash)
				assert.Equal(t, "0xabc", *updated.TxHash)
				assert.Equal(t, "12.5", updated.PaymentAmount.Decimal.String())
			}
		})
	}
}

func TestSubmissionStore_ClaimRequiresSettlement(t *testing.T) {
	db, store := newTestStore(t)
	ctx := context.Background()
	bounty := seedBounty(t, db, 10)
	alice := seedUser(t, db, "alice", validWallet)
	sub := seedSubmission(t, db, bounty.ID, alice.ID, models.SubmissionStatusPending)

	_, err := store.UpdateStatus(ctx, sub.ID, models.SubmissionStatusClaimed, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.UpdateStatus(ctx, sub.ID, models.SubmissionStatusClaimed, &Settlement{TxHash: "0xabc"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.UpdateStatus(ctx, sub.ID, "approved", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.UpdateStatus(ctx, "missing", models.SubmissionStatusRejected, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, models.SubmissionStatusPending, reloadSubmission(t, db, sub.ID).Status)
}

func TestSubmissionStore_RecomputeFailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := NewSubmissionStore(db, failingAggregator{})
	ctx := context.Background()
	bounty := seedBounty(t, db, 10)
	alice := seedUser(t, db, "alice", validWallet)
	bob := seedUser(t, db, "bob", validWallet)
	pending := seedSubmission(t, db, bounty.ID, bob.ID, models.SubmissionStatusPending)

	_, err := store.Create(ctx, bounty.ID, alice.ID, "https://x.com/alice/1")
	assert.ErrorIs(t, err, ErrAggregateInconsistency)
	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Where("creator_id = ?", alice.ID).Count(&count).Error)
	assert.Zero(t, count, "insert must roll back with the recompute")

	_, err = store.UpdateStatus(ctx, pending.ID, models.SubmissionStatusRejected, nil)
	assert.ErrorIs(t, err, ErrAggregateInconsistency)
	assert.Equal(t, models.SubmissionStatusPending, reloadSubmission(t, db, pending.ID).Status)

	err = store.Delete(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrAggregateInconsistency)
	reloadSubmission(t, db, pending.ID)
}

func TestSubmissionStore_Lists(t *testing.T) {
	db, store := newTestStore(t)
	ctx := context.Background()
	b1 := seedBounty(t, db, 10)
	b2 := seedBounty(t, db, 10)
	alice := seedUser(t, db, "alice", validWallet)
	bob := seedUser(t, db, "bob", validWallet)

	seedSubmission(t, db, b1.ID, alice.ID, models.SubmissionStatusPending)
	seedSubmission(t, db, b1.ID, bob.ID, models.SubmissionStatusClaimed)
	seedSubmission(t, db, b2.ID, alice.ID, models.SubmissionStatusRejected)

	byBounty, err := store.ListByBounty(ctx, b1.ID)
	require.NoError(t, err)
	assert.Len(t, byBounty, 2)

	pending, err := store.ListByStatus(ctx, models.SubmissionStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, alice.ID, pending[0].CreatorID)

	mine, err := store.ListByCreator(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = store.ListByStatus(ctx, "unknown")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmissionStore_Delete(t *testing.T) {
	db, store := newTestStore(t)
	ctx := context.Background()
	bounty := seedBounty(t, db, 4)
	alice := seedUser(t, db, "alice", validWallet)
	bob := seedUser(t, db, "bob", validWallet)

	sub, err := store.Create(ctx, bounty.ID, alice.ID, "https://x.com/alice/1")
	require.NoError(t, err)
	claimed := seedSubmission(t, db, bounty.ID, bob.ID, models.SubmissionStatusClaimed)

	err = store.Delete(ctx, claimed.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, store.Delete(ctx, sub.ID))
	_, err = store.Get(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	stored := reloadBounty(t, db, bounty.ID)
	assert.Equal(t, int64(1), stored.SubmissionsCount)
	assert.Equal(t, "25.00", stored.CompletionPercentage.StringFixed(2))

	assert.ErrorIs(t, store.Delete(ctx, sub.ID), ErrNotFound)
}

func TestSubmissionStore_DeleteBountyCascades(t *testing.T) {
	db, store := newTestStore(t)
	ctx := context.Background()
	bounty := seedBounty(t, db, 4)
	other := seedBounty(t, db, 4)
	alice := seedUser(t, db, "alice", validWallet)
	seedSubmission(t, db, bounty.ID, alice.ID, models.SubmissionStatusPending)
	seedSubmission(t, db, other.ID, alice.ID, models.SubmissionStatusPending)

	require.NoError(t, store.DeleteBounty(ctx, bounty.ID))

	var remaining int64
	require.NoError(t, db.Model(&models.Submission{}).Where("bounty_id = ?", bounty.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, db.Model(&models.Submission{}).Where("bounty_id = ?", other.ID).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	assert.ErrorIs(t, store.DeleteBounty(ctx, bounty.ID), ErrNotFound)
}
