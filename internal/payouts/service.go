package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/payouts-backend/pkg/errors"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
	"github.com/angelmondragon/payouts-backend/pkg/metrics"
)

const defaultRetryWarnThreshold = 3

// Service releases held payouts and manages their hold lifecycle.
type Service interface {
	ReleaseSinglePayout(ctx context.Context, id uuid.UUID, opts ReleaseOptions, now time.Time) Result
	ReleaseDuePayouts(ctx context.Context, limit int, now time.Time) ([]Result, error)

	CreateHeld(ctx context.Context, input CreateHeldInput, now time.Time) (*models.PendingPayout, error)
	Block(ctx context.Context, sourceReference, reason string, now time.Time) (*models.PendingPayout, error)
	Unblock(ctx context.Context, sourceReference string, now time.Time) (*models.PendingPayout, error)
	Cancel(ctx context.Context, sourceReference, reason string, now time.Time) (*models.PendingPayout, error)

	Summary(ctx context.Context, accountID string, now time.Time) (*Summary, error)
}

// StuckScanner surfaces payouts that have been waiting on the recipient too long.
type StuckScanner interface {
	Scan(ctx context.Context, now time.Time) (ScanReport, error)
}

// ServiceParams wires the release flow.
type ServiceParams struct {
	Logger             *logger.Logger
	Repo               Repository
	Gateway            Gateway
	Monitor            StuckScanner
	Metrics            *metrics.PayoutMetrics
	GatewayTimeout     time.Duration
	RetryWarnThreshold int
	DefaultHold        time.Duration
}

type service struct {
	logg          *logger.Logger
	repo          Repository
	readiness     *ReadinessChecker
	executor      *TransferExecutor
	monitor       StuckScanner
	metrics       *metrics.PayoutMetrics
	warnThreshold int
	defaultHold   time.Duration
}

// NewService validates dependencies and returns the payout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repo == nil {
		return nil, errors.New("payout repository is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	warn := params.RetryWarnThreshold
	if warn <= 0 {
		warn = defaultRetryWarnThreshold
	}
	return &service{
		logg:          params.Logger,
		repo:          params.Repo,
		readiness:     NewReadinessChecker(params.Gateway, params.GatewayTimeout),
		executor:      NewTransferExecutor(params.Gateway, params.GatewayTimeout),
		monitor:       params.Monitor,
		metrics:       params.Metrics,
		warnThreshold: warn,
		defaultHold:   params.DefaultHold,
	}, nil
}

func (s *service) ReleaseSinglePayout(ctx context.Context, id uuid.UUID, opts ReleaseOptions, now time.Time) Result {
	now = now.UTC()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payout_id": id.String(),
		"force":     opts.Force,
	})

	payout, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return s.observe(ctx, failed(id, ReasonNotFound))
	}
	if err != nil {
		s.logg.Error(ctx, "payouts.release.load_failed", err)
		return s.observe(ctx, failed(id, ReasonStoreError))
	}

	if !opts.Force {
		if now.Before(payout.HoldUntil) {
			return s.observe(ctx, skipped(id, ReasonNotDue))
		}
		if payout.NextAttemptAt != nil && now.Before(*payout.NextAttemptAt) {
			return s.observe(ctx, skipped(id, ReasonRetryScheduled))
		}
	}

	return s.observe(ctx, s.release(ctx, *payout, opts, now))
}

func (s *service) ReleaseDuePayouts(ctx context.Context, limit int, now time.Time) ([]Result, error) {
	if limit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}
	now = now.UTC()

	s.scanIsolated(ctx, now)

	due, err := s.repo.FindDue(ctx, now, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find due payouts")
	}

	results := make([]Result, 0, len(due))
	for _, payout := range due {
		itemCtx := s.logg.WithPayoutID(ctx, payout.ID.String())
		results = append(results, s.observe(itemCtx, s.releaseIsolated(itemCtx, payout, now)))
	}

	counts := map[Outcome]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event":    "payouts.batch.completed",
		"selected": len(due),
		"released": counts[OutcomeReleased],
		"skipped":  counts[OutcomeSkipped],
		"failed":   counts[OutcomeFailed],
	}), "payout release batch completed")

	return results, nil
}

// scanIsolated runs the stuck monitor without letting it fail or abort the batch.
func (s *service) scanIsolated(ctx context.Context, now time.Time) {
	if s.monitor == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(ctx, "payouts.stuck_scan.panic", fmt.Errorf("panic: %v", r))
		}
	}()
	if _, err := s.monitor.Scan(ctx, now); err != nil {
		s.logg.Error(ctx, "payouts.stuck_scan.failed", err)
	}
}

// releaseIsolated keeps one payout's panic from aborting the batch.
func (s *service) releaseIsolated(ctx context.Context, payout models.PendingPayout, now time.Time) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(ctx, "payouts.release.panic", fmt.Errorf("panic: %v", r))
			result = failed(payout.ID, ReasonInternalError)
		}
	}()
	return s.release(ctx, payout, ReleaseOptions{}, now)
}

func (s *service) release(ctx context.Context, payout models.PendingPayout, opts ReleaseOptions, now time.Time) Result {
	allowed := []enums.PayoutStatus{enums.PayoutStatusHeld}
	if opts.Force {
		allowed = append(allowed, enums.PayoutStatusBlocked)
	}

	claimed, err := s.repo.TryClaim(ctx, ClaimRequest{
		ID:              payout.ID,
		Allowed:         allowed,
		Now:             now,
		EnforceSchedule: !opts.Force,
	})
	if err != nil {
		s.logg.Error(ctx, "payouts.release.claim_error", err)
		return failed(payout.ID, ReasonStoreError)
	}
	if !claimed {
		return skipped(payout.ID, ReasonClaimFailed)
	}

	if !hasReleasableShape(payout) {
		if err := s.repo.CommitCancel(ctx, payout.ID, ReasonInvalidRecipientOrAmount, now); err != nil {
			s.logg.Error(ctx, "payouts.release.cancel_failed", err)
		}
		s.logg.Warn(s.logg.WithField(ctx, "amount_cents", payout.AmountCents), "payout cancelled: missing recipient or non-positive amount")
		return failed(payout.ID, ReasonInvalidRecipientOrAmount)
	}

	accountID := payout.Recipient()
	ctx = s.logg.WithAccountID(ctx, accountID)

	status, err := s.readiness.Check(ctx, accountID)
	if err != nil {
		class, detail := ClassifyTransferError(err)
		return s.scheduleRetry(ctx, payout, class, "readiness_check: "+detail, now, err)
	}
	if !status.Ready() {
		return s.scheduleRetry(ctx, payout, FailureAccountNotReady, status.Missing(), now, nil)
	}

	transferID, err := s.executor.Execute(ctx, payout)
	if err != nil {
		class, detail := ClassifyTransferError(err)
		return s.scheduleRetry(ctx, payout, class, detail, now, err)
	}

	ctx = s.logg.WithField(ctx, "transfer_id", transferID)
	if err := s.repo.CommitSuccess(ctx, payout.ID, transferID, now); err != nil {
		// funds moved; the idempotency key makes the next attempt resolve to this transfer
		s.logg.Error(ctx, "payouts.release.commit_failed", err)
		res := failed(payout.ID, ReasonStoreError)
		if errors.Is(err, ErrClaimLost) {
			res.Error = ReasonClaimLost
		}
		res.TransferID = transferID
		return res
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event":        "payouts.released",
		"amount_cents": payout.AmountCents,
		"currency":     payout.Currency,
	}), "payout released")
	return released(payout.ID, transferID)
}

func (s *service) scheduleRetry(
	ctx context.Context,
	payout models.PendingPayout,
	class FailureClass,
	detail string,
	now time.Time,
	cause error,
) Result {
	plan := PlanRetry(class, detail, payout.RetryCount, now)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"failure_class":   string(plan.Class),
		"retry_count":     plan.RetryCount,
		"next_attempt_at": plan.NextAttemptAt,
		"blocked_reason":  plan.Reason,
	})

	if err := s.repo.CommitRetry(ctx, payout.ID, plan, now); err != nil {
		s.logg.Error(ctx, "payouts.retry.commit_failed", err)
		if errors.Is(err, ErrClaimLost) {
			return failed(payout.ID, ReasonClaimLost)
		}
		return failed(payout.ID, ReasonStoreError)
	}

	if plan.RetryCount >= s.warnThreshold {
		s.logg.Warn(ctx, "payout release keeps failing")
	} else if cause != nil {
		s.logg.Info(s.logg.WithField(ctx, "cause", cause.Error()), "payout release failed; retry scheduled")
	} else {
		s.logg.Info(ctx, "payout release deferred; retry scheduled")
	}
	return failed(payout.ID, string(class))
}

func (s *service) observe(ctx context.Context, res Result) Result {
	s.metrics.ObserveRelease(string(res.Status), res.Error)
	if res.Status == OutcomeSkipped {
		s.logg.Debug(s.logg.WithField(ctx, "reason", res.Error), "payout release skipped")
	}
	return res
}
