package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/payouts-backend/api/controllers"
	"github.com/angelmondragon/payouts-backend/api/middleware"
	"github.com/angelmondragon/payouts-backend/internal/payouts"
	"github.com/angelmondragon/payouts-backend/pkg/config"
	"github.com/angelmondragon/payouts-backend/pkg/db"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
	"github.com/angelmondragon/payouts-backend/pkg/redis"
)

// Deps bundles what the HTTP surface needs.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      redis.Pinger
	Limiter    redis.RateLimiter
	Payouts    payouts.Service
	Monitor    payouts.StuckScanner
	Reconciler controllers.Sweeper
	Gatherer   prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	releaseLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("manual_release", cfg.Internal.ReleaseRateWindow, cfg.Internal.ReleaseRateLimit),
		deps.Limiter,
		logg,
	)

	r.Route("/internal/payouts", func(r chi.Router) {
		r.Use(middleware.InternalToken(cfg.Internal.Token, logg))

		r.Post("/release", controllers.ReleaseDuePayouts(deps.Payouts, cfg.Payouts.BatchLimit, logg))
		r.With(releaseLimit).Post("/{payoutId}/release", controllers.ReleasePayout(deps.Payouts, logg))
		r.Post("/reconcile", controllers.ReconcileReleasing(deps.Reconciler, logg))
		r.Post("/stuck-scan", controllers.ScanStuckPayouts(deps.Monitor, logg))
		r.Get("/summary/{accountId}", controllers.PayoutSummary(deps.Payouts, logg))

		r.Route("/holds", func(r chi.Router) {
			r.Post("/", controllers.CreateHeldPayout(deps.Payouts, logg))
			r.Post("/{sourceReference}/block", controllers.BlockHeldPayout(deps.Payouts, logg))
			r.Post("/{sourceReference}/unblock", controllers.UnblockHeldPayout(deps.Payouts, logg))
			r.Post("/{sourceReference}/cancel", controllers.CancelHeldPayout(deps.Payouts, logg))
		})
	})

	return r
}
