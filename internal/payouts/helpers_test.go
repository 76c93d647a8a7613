package payouts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/payouts-backend/pkg/db/dbtest"
	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
)

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return dbtest.Open(t, &models.PendingPayout{}, &models.PayoutEvent{})
}

type payoutOption func(*models.PendingPayout)

func withHoldUntil(ts time.Time) payoutOption {
	return func(p *models.PendingPayout) { p.HoldUntil = ts }
}

func withNextAttempt(ts time.Time) payoutOption {
	return func(p *models.PendingPayout) { p.NextAttemptAt = &ts }
}

func withStatus(status enums.PayoutStatus) payoutOption {
	return func(p *models.PendingPayout) { p.Status = status }
}

func withReason(reason string) payoutOption {
	return func(p *models.PendingPayout) { p.BlockedReason = &reason }
}

func withRecipient(account string) payoutOption {
	return func(p *models.PendingPayout) {
		if account == "" {
			p.RecipientAccountID = nil
			return
		}
		p.RecipientAccountID = &account
	}
}

func withAmount(cents int64) payoutOption {
	return func(p *models.PendingPayout) { p.AmountCents = cents }
}

func withRetryCount(n int) payoutOption {
	return func(p *models.PendingPayout) { p.RetryCount = n }
}

func withUpdatedAt(ts time.Time) payoutOption {
	return func(p *models.PendingPayout) { p.UpdatedAt = ts }
}

func seedPayout(t *testing.T, repo Repository, opts ...payoutOption) models.PendingPayout {
	t.Helper()
	account := "acct_ready"
	ref := "pi_" + uuid.NewString()
	payout := models.PendingPayout{
		ID:                     uuid.New(),
		AmountCents:            12_500,
		Currency:               "eur",
		RecipientAccountID:     &account,
		SourcePaymentReference: &ref,
		Status:                 enums.PayoutStatusHeld,
		HoldUntil:              testNow.Add(-time.Hour),
		CreatedAt:              testNow.Add(-8 * 24 * time.Hour),
		UpdatedAt:              testNow.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(&payout)
	}
	if err := repo.Create(context.Background(), &payout); err != nil {
		t.Fatalf("seed payout: %v", err)
	}
	return payout
}

func mustFind(t *testing.T, repo Repository, id uuid.UUID) *models.PendingPayout {
	t.Helper()
	payout, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find payout %s: %v", id, err)
	}
	return payout
}

// fakeGateway is safe for concurrent use.
type fakeGateway struct {
	mu          sync.Mutex
	statuses    map[string]AccountStatus
	accountErr  error
	transferErr error
	transferFn  func(req TransferRequest) (string, error)
	transfers   []TransferRequest
	accountHits int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		statuses: map[string]AccountStatus{
			"acct_ready": {PayoutsEnabled: true, DetailsSubmitted: true, TransfersCapability: "active"},
		},
	}
}

func (g *fakeGateway) GetAccountStatus(ctx context.Context, accountID string) (AccountStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accountHits++
	if g.accountErr != nil {
		return AccountStatus{}, g.accountErr
	}
	return g.statuses[accountID], nil
}

func (g *fakeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transfers = append(g.transfers, req)
	if g.transferFn != nil {
		return g.transferFn(req)
	}
	if g.transferErr != nil {
		return "", g.transferErr
	}
	return "tr_" + req.IdempotencyKey, nil
}

func (g *fakeGateway) transferCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.transfers)
}

type fakeScanner struct {
	calls int
	err   error
	onRun func()
}

func (f *fakeScanner) Scan(ctx context.Context, now time.Time) (ScanReport, error) {
	f.calls++
	if f.onRun != nil {
		f.onRun()
	}
	return ScanReport{}, f.err
}

func newTestService(t *testing.T, repo Repository, gateway Gateway, monitor StuckScanner) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:         logger.Nop(),
		Repo:           repo,
		Gateway:        gateway,
		Monitor:        monitor,
		GatewayTimeout: time.Second,
		DefaultHold:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}
