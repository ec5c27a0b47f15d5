package services

import (
	"context"
	"testing"

	"bounty-review-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletValidator_Validate(t *testing.T) {
	db := setupTestDB(t)
	v := NewWalletValidator(db)
	ctx := context.Background()
	bounty := seedBounty(t, db, 10)

	withWallet := seedUser(t, db, "alice", validWallet)
	noWallet := seedUser(t, db, "bob", "")
	blankWallet := seedUser(t, db, "carol", "   ")
	badWallet := seedUser(t, db, "dave", "0x1234")

	okSub := seedSubmission(t, db, bounty.ID, withWallet.ID, models.SubmissionStatusPending)
	noSub := seedSubmission(t, db, bounty.ID, noWallet.ID, models.SubmissionStatusPending)
	blankSub := seedSubmission(t, db, bounty.ID, blankWallet.ID, models.SubmissionStatusPending)
	badSub := seedSubmission(t, db, bounty.ID, badWallet.ID, models.SubmissionStatusPending)
	orphan := seedSubmission(t, db, bounty.ID, "ghost", models.SubmissionStatusPending)

	got, err := v.Validate(ctx, okSub.ID)
	require.NoError(t, err)
	assert.True(t, got.Valid)
	assert.Equal(t, validWallet, got.WalletAddress)
	assert.Equal(t, withWallet.ID, got.CreatorID)

	for name, id := range map[string]string{
		"absent":    noSub.ID,
		"blank":     blankSub.ID,
		"malformed": badSub.ID,
		"orphan":    orphan.ID,
		"missing":   "no-such-submission",
	} {
		got, err := v.Validate(ctx, id)
		require.NoError(t, err, name)
		assert.False(t, got.Valid, name)
		assert.Empty(t, got.WalletAddress, name)
		assert.NotEmpty(t, got.Error, name)
	}

	got, err = v.Validate(ctx, noSub.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Error, "has not set their wallet address")

	got, err = v.Validate(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, "creator not found", got.Error)
}

func TestResolveRecipient(t *testing.T) {
	v := WalletValidation{Valid: true, WalletAddress: validWallet, CreatorID: "c1"}

	addr, overridden := ResolveRecipient(v, "")
	assert.Equal(t, validWallet, addr)
	assert.False(t, overridden)

	addr, overridden = ResolveRecipient(v, "0x52908400098527886e0f7030069857d2e4169ee7")
	assert.Equal(t, validWallet, addr)
	assert.False(t, overridden, "case differences are the same address")

	addr, overridden = ResolveRecipient(v, "0x000000000000000000000000000000000000dEaD")
	assert.Equal(t, validWallet, addr)
	assert.True(t, overridden)
}
