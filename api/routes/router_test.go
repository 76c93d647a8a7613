package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/payouts-backend/internal/payouts"
	"github.com/angelmondragon/payouts-backend/pkg/config"
	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/payouts-backend/pkg/errors"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
	"github.com/angelmondragon/payouts-backend/pkg/metrics"
)

const testToken = "internal-secret"

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubLimiter struct {
	allow bool
}

func (s stubLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return s.allow, 1, nil
}

type stubPayoutsService struct {
	single      payouts.Result
	batch       []payouts.Result
	batchErr    error
	lastLimit   int
	lastOptions payouts.ReleaseOptions
	lastRef     string
	lastReason  string
	holdErr     error
	summary     *payouts.Summary
}

func (s *stubPayoutsService) ReleaseSinglePayout(ctx context.Context, id uuid.UUID, opts payouts.ReleaseOptions, now time.Time) payouts.Result {
	s.lastOptions = opts
	res := s.single
	res.PayoutID = id
	return res
}

func (s *stubPayoutsService) ReleaseDuePayouts(ctx context.Context, limit int, now time.Time) ([]payouts.Result, error) {
	s.lastLimit = limit
	return s.batch, s.batchErr
}

func (s *stubPayoutsService) CreateHeld(ctx context.Context, input payouts.CreateHeldInput, now time.Time) (*models.PendingPayout, error) {
	s.lastRef = input.SourcePaymentReference
	if s.holdErr != nil {
		return nil, s.holdErr
	}
	return &models.PendingPayout{ID: uuid.New(), Status: enums.PayoutStatusHeld, AmountCents: input.AmountCents, Currency: input.Currency}, nil
}

func (s *stubPayoutsService) Block(ctx context.Context, ref, reason string, now time.Time) (*models.PendingPayout, error) {
	s.lastRef, s.lastReason = ref, reason
	if s.holdErr != nil {
		return nil, s.holdErr
	}
	return &models.PendingPayout{ID: uuid.New(), Status: enums.PayoutStatusBlocked}, nil
}

func (s *stubPayoutsService) Unblock(ctx context.Context, ref string, now time.Time) (*models.PendingPayout, error) {
	s.lastRef = ref
	if s.holdErr != nil {
		return nil, s.holdErr
	}
	return &models.PendingPayout{ID: uuid.New(), Status: enums.PayoutStatusHeld}, nil
}

func (s *stubPayoutsService) Cancel(ctx context.Context, ref, reason string, now time.Time) (*models.PendingPayout, error) {
	s.lastRef, s.lastReason = ref, reason
	if s.holdErr != nil {
		return nil, s.holdErr
	}
	return &models.PendingPayout{ID: uuid.New(), Status: enums.PayoutStatusCancelled}, nil
}

func (s *stubPayoutsService) Summary(ctx context.Context, accountID string, now time.Time) (*payouts.Summary, error) {
	if s.summary == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	out := *s.summary
	out.AccountID = accountID
	return &out, nil
}

type stubScanner struct {
	report payouts.ScanReport
}

func (s stubScanner) Scan(context.Context, time.Time) (payouts.ScanReport, error) {
	return s.report, nil
}

type stubSweeper struct {
	reclaimed int
	err       error
}

func (s stubSweeper) Sweep(context.Context, time.Time) (int, error) {
	return s.reclaimed, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test", Port: "0"},
		Payouts:  config.PayoutsConfig{BatchLimit: 50},
		Internal: config.InternalAPIConfig{Token: testToken, ReleaseRateLimit: 5, ReleaseRateWindow: time.Minute},
	}
}

type routerOption func(*Deps)

func newTestRouter(t *testing.T, svc *stubPayoutsService, opts ...routerOption) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	metrics.NewPayoutMetrics(reg).ObserveRelease(string(payouts.OutcomeReleased), "")
	deps := Deps{
		Config:     testConfig(),
		Logger:     logg,
		DB:         stubPinger{},
		Redis:      stubPinger{},
		Limiter:    stubLimiter{allow: true},
		Payouts:    svc,
		Monitor:    stubScanner{report: payouts.ScanReport{Stuck: 2, Escalated: 1}},
		Reconciler: stubSweeper{reclaimed: 3},
		Gatherer:   reg,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewRouter(deps)
}

func doRequest(router http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubPayoutsService{})
	if resp := doRequest(router, http.MethodGet, "/health/live", "", false); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := doRequest(router, http.MethodGet, "/health/ready", "", false); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	router := newTestRouter(t, &stubPayoutsService{}, func(d *Deps) {
		d.Redis = stubPinger{err: errors.New("connection refused")}
	})
	resp := doRequest(router, http.MethodGet, "/health/ready", "", false)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestMetricsEndpointExposesPayoutCounters(t *testing.T) {
	router := newTestRouter(t, &stubPayoutsService{})
	resp := doRequest(router, http.MethodGet, "/metrics", "", false)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "payouts_release_total") {
		t.Fatalf("expected payout counter in metrics output")
	}
}

func TestInternalRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, &stubPayoutsService{})
	resp := doRequest(router, http.MethodPost, "/internal/payouts/release", "", false)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestReleaseBatchCountsOutcomes(t *testing.T) {
	svc := &stubPayoutsService{batch: []payouts.Result{
		{PayoutID: uuid.New(), Status: payouts.OutcomeReleased, TransferID: "tr_1"},
		{PayoutID: uuid.New(), Status: payouts.OutcomeSkipped, Error: payouts.ReasonClaimFailed},
		{PayoutID: uuid.New(), Status: payouts.OutcomeFailed, Error: payouts.ReasonRetryScheduled},
	}}
	router := newTestRouter(t, svc)

	resp := doRequest(router, http.MethodPost, "/internal/payouts/release?limit=10", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Released int `json:"released"`
		Skipped  int `json:"skipped"`
		Failed   int `json:"failed"`
	}
	decodeData(t, resp, &out)
	if out.Released != 1 || out.Skipped != 1 || out.Failed != 1 {
		t.Fatalf("unexpected counts %+v", out)
	}
	if svc.lastLimit != 10 {
		t.Fatalf("expected limit 10 got %d", svc.lastLimit)
	}
}

func TestReleaseBatchDefaultsAndValidatesLimit(t *testing.T) {
	svc := &stubPayoutsService{}
	router := newTestRouter(t, svc)

	if resp := doRequest(router, http.MethodPost, "/internal/payouts/release", "", true); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastLimit != 50 {
		t.Fatalf("expected configured default limit, got %d", svc.lastLimit)
	}
	if resp := doRequest(router, http.MethodPost, "/internal/payouts/release?limit=0", "", true); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero limit got %d", resp.Code)
	}
}

func TestReleaseBatchSurfacesStoreFailure(t *testing.T) {
	svc := &stubPayoutsService{batchErr: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "find due payouts")}
	router := newTestRouter(t, svc)
	resp := doRequest(router, http.MethodPost, "/internal/payouts/release", "", true)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestReleaseSingleForwardsForce(t *testing.T) {
	svc := &stubPayoutsService{single: payouts.Result{Status: payouts.OutcomeReleased, TransferID: "tr_9"}}
	router := newTestRouter(t, svc)
	id := uuid.New()

	resp := doRequest(router, http.MethodPost, "/internal/payouts/"+id.String()+"/release", `{"force":true}`, true)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.lastOptions.Force {
		t.Fatalf("expected force to be forwarded")
	}
	var out payouts.Result
	decodeData(t, resp, &out)
	if out.PayoutID != id || out.TransferID != "tr_9" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestReleaseSingleWithoutBody(t *testing.T) {
	svc := &stubPayoutsService{single: payouts.Result{Status: payouts.OutcomeSkipped, Error: payouts.ReasonNotDue}}
	router := newTestRouter(t, svc)
	resp := doRequest(router, http.MethodPost, "/internal/payouts/"+uuid.NewString()+"/release", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastOptions.Force {
		t.Fatalf("force should default to false")
	}
}

func TestReleaseSingleNotFoundAndBadID(t *testing.T) {
	svc := &stubPayoutsService{single: payouts.Result{Status: payouts.OutcomeFailed, Error: payouts.ReasonNotFound}}
	router := newTestRouter(t, svc)

	if resp := doRequest(router, http.MethodPost, "/internal/payouts/"+uuid.NewString()+"/release", "", true); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if resp := doRequest(router, http.MethodPost, "/internal/payouts/not-a-uuid/release", "", true); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestReleaseSingleRateLimited(t *testing.T) {
	router := newTestRouter(t, &stubPayoutsService{}, func(d *Deps) {
		d.Limiter = stubLimiter{allow: false}
	})
	resp := doRequest(router, http.MethodPost, "/internal/payouts/"+uuid.NewString()+"/release", "", true)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestReconcileAndStuckScan(t *testing.T) {
	router := newTestRouter(t, &stubPayoutsService{})

	resp := doRequest(router, http.MethodPost, "/internal/payouts/reconcile", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("reconcile: expected 200 got %d", resp.Code)
	}
	var reconciled map[string]int
	decodeData(t, resp, &reconciled)
	if reconciled["reclaimed"] != 3 {
		t.Fatalf("unexpected reconcile response %v", reconciled)
	}

	resp = doRequest(router, http.MethodPost, "/internal/payouts/stuck-scan", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("stuck-scan: expected 200 got %d", resp.Code)
	}
	var report payouts.ScanReport
	decodeData(t, resp, &report)
	if report.Stuck != 2 || report.Escalated != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSummaryRoute(t *testing.T) {
	svc := &stubPayoutsService{summary: &payouts.Summary{PendingCount: 2, PendingByCurrency: map[string]int64{"eur": 2500}}}
	router := newTestRouter(t, svc)
	resp := doRequest(router, http.MethodGet, "/internal/payouts/summary/acct_123", "", true)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var out payouts.Summary
	decodeData(t, resp, &out)
	if out.AccountID != "acct_123" || out.PendingCount != 2 {
		t.Fatalf("unexpected summary %+v", out)
	}
}

func TestHoldRoutes(t *testing.T) {
	svc := &stubPayoutsService{}
	router := newTestRouter(t, svc)

	body := `{"amountCents":12500,"currency":"eur","recipientAccountId":"acct_1","sourcePaymentReference":"pi_1"}`
	if resp := doRequest(router, http.MethodPost, "/internal/payouts/holds", body, true); resp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastRef != "pi_1" {
		t.Fatalf("expected source reference pi_1, got %q", svc.lastRef)
	}

	if resp := doRequest(router, http.MethodPost, "/internal/payouts/holds/pi_1/block", `{"reason":"  dispute opened  "}`, true); resp.Code != http.StatusOK {
		t.Fatalf("block: expected 200 got %d", resp.Code)
	}
	if svc.lastReason != "dispute opened" {
		t.Fatalf("expected trimmed reason, got %q", svc.lastReason)
	}

	if resp := doRequest(router, http.MethodPost, "/internal/payouts/holds/pi_1/unblock", "", true); resp.Code != http.StatusOK {
		t.Fatalf("unblock: expected 200 got %d", resp.Code)
	}

	if resp := doRequest(router, http.MethodPost, "/internal/payouts/holds/pi_1/cancel", `{}`, true); resp.Code != http.StatusBadRequest {
		t.Fatalf("cancel without reason: expected 400 got %d", resp.Code)
	}
}

func TestHoldRoutesMapServiceErrors(t *testing.T) {
	svc := &stubPayoutsService{holdErr: pkgerrors.New(pkgerrors.CodeStateConflict, "payout is not blocked")}
	router := newTestRouter(t, svc)
	resp := doRequest(router, http.MethodPost, "/internal/payouts/holds/pi_1/unblock", "", true)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
