package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/payouts-backend/internal/payouts"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
)

const defaultReleaseBatchLimit = 50

type payoutReleaser interface {
	ReleaseDuePayouts(ctx context.Context, limit int, now time.Time) ([]payouts.Result, error)
}

// PayoutReleaseJobParams wires the due payout release job.
type PayoutReleaseJobParams struct {
	Logger   *logger.Logger
	Releaser payoutReleaser
	Limit    int
}

// NewPayoutReleaseJob releases one batch of due payouts per run.
func NewPayoutReleaseJob(params PayoutReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Releaser == nil {
		return nil, fmt.Errorf("payout releaser required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReleaseBatchLimit
	}
	return &payoutReleaseJob{
		logg:     params.Logger,
		releaser: params.Releaser,
		limit:    limit,
		now:      time.Now,
	}, nil
}

type payoutReleaseJob struct {
	logg     *logger.Logger
	releaser payoutReleaser
	limit    int
	now      func() time.Time
}

func (j *payoutReleaseJob) Name() string { return "payout-release" }

// Run fails only when the batch could not be selected; per-payout failures are
// persisted as retries and reported in the log summary.
func (j *payoutReleaseJob) Run(ctx context.Context) error {
	results, err := j.releaser.ReleaseDuePayouts(ctx, j.limit, j.now().UTC())
	if err != nil {
		return fmt.Errorf("release due payouts: %w", err)
	}

	counts := map[payouts.Outcome]int{}
	reasons := map[string]int{}
	for _, res := range results {
		counts[res.Status]++
		if res.Error != "" {
			reasons[res.Error]++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"limit":    j.limit,
		"selected": len(results),
		"released": counts[payouts.OutcomeReleased],
		"skipped":  counts[payouts.OutcomeSkipped],
		"failed":   counts[payouts.OutcomeFailed],
		"reasons":  reasons,
	})
	if len(results) == j.limit {
		j.logg.Warn(logCtx, "payout release batch hit its limit; backlog remains")
		return nil
	}
	j.logg.Info(logCtx, "payout release batch complete")
	return nil
}
