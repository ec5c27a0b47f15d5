package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"bounty-review-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Bounty{},
		&models.Submission{},
		&models.PaymentAttempt{},
	))
	return db
}

const (
	validWallet  = "0x52908400098527886E0F7030069857D2E4169EE7"
	sampleTxHash = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"
	tokenAddress = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
)

func seedUser(t *testing.T, db *gorm.DB, handle, wallet string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.NewString(), Handle: handle, Role: models.UserRoleCreator}
	if wallet != "" {
		u.WalletAddress = &wallet
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedBounty(t *testing.T, db *gorm.DB, total int64) *models.Bounty {
	t.Helper()
	b := &models.Bounty{
		ID:                   uuid.NewString(),
		Title:                "Launch thread",
		Description:          "Write a thread about the launch",
		BountyPool:           decimal.NewFromInt(1000),
		TokenSymbol:          "XPL",
		Status:               models.BountyStatusActive,
		TotalSubmissions:     total,
		CompletionPercentage: decimal.Zero,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

// seedSubmission inserts a row directly, bypassing the store and its recompute.
func seedSubmission(t *testing.T, db *gorm.DB, bountyID, creatorID string, status models.SubmissionStatus) *models.Submission {
	t.Helper()
	s := &models.Submission{
		ID:           uuid.NewString(),
		BountyID:     bountyID,
		CreatorID:    creatorID,
		SubmittedURL: "https://x.com/creator/status/1",
		Status:       status,
	}
	if status == models.SubmissionStatusClaimed {
		hash := sampleTxHash
		s.TxHash = &hash
		s.PaymentAmount = decimal.NewNullDecimal(decimal.NewFromInt(10))
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func reloadBounty(t *testing.T, db *gorm.DB, id string) models.Bounty {
	t.Helper()
	var b models.Bounty
	require.NoError(t, db.First(&b, "id = ?", id).Error)
	return b
}

func reloadSubmission(t *testing.T, db *gorm.DB, id string) models.Submission {
	t.Helper()
	var s models.Submission
	require.NoError(t, db.First(&s, "id = ?", id).Error)
	return s
}

// fakeBackend is a scripted PaymentBackend.
type fakeBackend struct {
	mu sync.Mutex

	sendErr  error
	txHash   string
	statuses []TxStatus // returned in order, the last one repeats
	statusFn func(call int) (TxStatus, error)

	nativeCalls int
	tokenCalls  int
	statusCalls int
	recipients  []string
	healthErr   error
}

func (f *fakeBackend) SendNativePayment(_ context.Context, recipient string, _ decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nativeCalls++
	f.recipients = append(f.recipients, recipient)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.hash(), nil
}

func (f *fakeBackend) SendTokenPayment(_ context.Context, recipient string, _ decimal.Decimal, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++
	f.recipients = append(f.recipients, recipient)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.hash(), nil
}

func (f *fakeBackend) hash() string {
	if f.txHash != "" {
		return f.txHash
	}
	return sampleTxHash
}

func (f *fakeBackend) GetTransactionStatus(_ context.Context, _ string) (TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusFn != nil {
		return f.statusFn(f.statusCalls)
	}
	if len(f.statuses) == 0 {
		return TxStatusConfirmed, nil
	}
	i := f.statusCalls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeBackend) Health(context.Context) error {
	return f.healthErr
}

func (f *fakeBackend) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nativeCalls + f.tokenCalls
}

type reviewFixture struct {
	db      *gorm.DB
	backend *fakeBackend
	store   *SubmissionStore
	review  *ReviewService
}

func newReviewFixture(t *testing.T, backend *fakeBackend) *reviewFixture {
	t.Helper()
	db := setupTestDB(t)
	store := NewSubmissionStore(db, NewBountyAggregator())
	review := NewReviewService(db, store, NewWalletValidator(db),
		NewPaymentDispatcher(backend), NewConfirmationPoller(backend, DefaultConfirmationAttempts, 0))
	return &reviewFixture{db: db, backend: backend, store: store, review: review}
}
