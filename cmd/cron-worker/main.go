package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/payouts-backend/internal/bootstrap"
	"github.com/angelmondragon/payouts-backend/internal/cron"
	"github.com/angelmondragon/payouts-backend/pkg/config"
	"github.com/angelmondragon/payouts-backend/pkg/db"
	"github.com/angelmondragon/payouts-backend/pkg/instance"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
	"github.com/angelmondragon/payouts-backend/pkg/metrics"
	"github.com/angelmondragon/payouts-backend/pkg/migrate"
	"github.com/angelmondragon/payouts-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stack, err := bootstrap.NewPayoutStack(context.Background(), bootstrap.StackParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient.DB(),
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to wire payout stack", err)
		os.Exit(1)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logg.Error(context.Background(), "error closing payout stack", err)
		}
	}()

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	releaseJob, err := cron.NewPayoutReleaseJob(cron.PayoutReleaseJobParams{
		Logger:   logg,
		Releaser: stack.Service,
		Limit:    cfg.Payouts.BatchLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout release job", err)
		os.Exit(1)
	}
	reconcileJob, err := cron.NewPayoutReconcileJob(cron.PayoutReconcileJobParams{
		Logger:  logg,
		Sweeper: stack.Reconciler,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout reconcile job", err)
		os.Exit(1)
	}

	schedulers := []struct {
		name     string
		schedule string
		job      cron.Job
	}{
		{name: "release", schedule: cfg.Cron.ReleaseSchedule, job: releaseJob},
		{name: "reconcile", schedule: cfg.Cron.ReconcileSchedule, job: reconcileJob},
	}

	services := make([]*cron.Service, 0, len(schedulers))
	for _, s := range schedulers {
		service, err := newScheduler(cfg, logg, redisClient, jobMetrics, s.name, s.schedule, s.job)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron service", err)
			os.Exit(1)
		}
		services = append(services, service)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := runAll(ctx, services); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func newScheduler(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	jobMetrics *metrics.CronJobMetrics,
	name, schedule string,
	job cron.Job,
) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron", name), cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s lock: %w", name, err)
	}
	registry, err := cron.NewRegistry(job)
	if err != nil {
		return nil, fmt.Errorf("%s registry: %w", name, err)
	}
	return cron.NewService(cron.ServiceParams{
		Name:     name,
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Schedule: schedule,
	})
}

// runAll runs every scheduler until ctx is canceled and combines their exit errors.
func runAll(ctx context.Context, services []*cron.Service) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, service := range services {
		wg.Add(1)
		go func(s *cron.Service) {
			defer wg.Done()
			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(service)
	}
	wg.Wait()
	return errs
}
