package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/payouts-backend/pkg/logger"
	"github.com/angelmondragon/payouts-backend/pkg/metrics"
)

const defaultReleasingTimeout = 2 * time.Hour

// Reconciler returns payouts abandoned in RELEASING to HELD so they are retried.
// The transfer idempotency key makes the retry resolve to any transfer already created.
type Reconciler struct {
	logg    *logger.Logger
	repo    Repository
	metrics *metrics.PayoutMetrics
	timeout time.Duration
}

// NewReconciler returns a sweep that reclaims RELEASING rows older than timeout.
func NewReconciler(logg *logger.Logger, repo Repository, m *metrics.PayoutMetrics, timeout time.Duration) (*Reconciler, error) {
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if repo == nil {
		return nil, errors.New("payout repository is required")
	}
	if timeout <= 0 {
		timeout = defaultReleasingTimeout
	}
	return &Reconciler{logg: logg, repo: repo, metrics: m, timeout: timeout}, nil
}

// Sweep reclaims stale claims and returns how many were moved back to HELD.
func (r *Reconciler) Sweep(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	cutoff := now.Add(-r.timeout)

	stale, err := r.repo.FindStaleReleasing(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale releasing payouts: %w", err)
	}

	reclaimed := 0
	var errs []error
	for _, payout := range stale {
		itemCtx := r.logg.WithPayoutID(ctx, payout.ID.String())
		plan := RetryPlan{
			Class:         FailureGateway,
			NextAttemptAt: now.Add(FailureGateway.Backoff()),
			RetryCount:    payout.RetryCount + 1,
			Reason:        ReasonReleasingTimeout,
		}
		ok, err := r.repo.Reclaim(itemCtx, payout.ID, cutoff, plan, now)
		if err != nil {
			r.logg.Error(itemCtx, "payouts.reconcile.reclaim_failed", err)
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		reclaimed++
		r.logg.Warn(r.logg.WithFields(itemCtx, map[string]any{
			"event":           "payouts.reconcile.reclaimed",
			"claimed_at":      payout.UpdatedAt,
			"retry_count":     plan.RetryCount,
			"next_attempt_at": plan.NextAttemptAt,
		}), "stale releasing payout returned to held")
	}

	r.metrics.AddReclaimed(reclaimed)
	if len(stale) > 0 {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"event":     "payouts.reconcile.completed",
			"stale":     len(stale),
			"reclaimed": reclaimed,
		}), "releasing reconciliation completed")
	}
	return reclaimed, errors.Join(errs...)
}
