package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/payouts-backend/pkg/logger"
)

type releasingSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type PayoutReconcileJobParams struct {
	Logger  *logger.Logger
	Sweeper releasingSweeper
}

// NewPayoutReconcileJob returns payouts abandoned mid-release to the retry queue.
func NewPayoutReconcileJob(params PayoutReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("releasing sweeper required")
	}
	return &payoutReconcileJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		now:     time.Now,
	}, nil
}

type payoutReconcileJob struct {
	logg    *logger.Logger
	sweeper releasingSweeper
	now     func() time.Time
}

func (j *payoutReconcileJob) Name() string { return "payout-reconcile" }

func (j *payoutReconcileJob) Run(ctx context.Context) error {
	reclaimed, err := j.sweeper.Sweep(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("reconcile releasing payouts (reclaimed %d): %w", reclaimed, err)
	}
	j.logg.Info(j.logg.WithField(ctx, "reclaimed", reclaimed), "payout reconciliation complete")
	return nil
}
