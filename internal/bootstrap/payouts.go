// Package bootstrap assembles the payout release stack shared by the api and cron-worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/payouts-backend/internal/notifications"
	"github.com/angelmondragon/payouts-backend/internal/organizations"
	"github.com/angelmondragon/payouts-backend/internal/payouts"
	"github.com/angelmondragon/payouts-backend/pkg/config"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
	"github.com/angelmondragon/payouts-backend/pkg/metrics"
	"github.com/angelmondragon/payouts-backend/pkg/pubsub"
	"github.com/angelmondragon/payouts-backend/pkg/rabbitmq"
	pkgstripe "github.com/angelmondragon/payouts-backend/pkg/stripe"
)

// PayoutStack holds the wired payout components.
type PayoutStack struct {
	Service    payouts.Service
	Monitor    *payouts.StuckMonitor
	Reconciler *payouts.Reconciler
	Metrics    *metrics.PayoutMetrics

	closers []func() error
}

// StackParams carries the process-level resources the stack is built from.
type StackParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *gorm.DB
	Registerer prometheus.Registerer
	// Gateway overrides the Stripe gateway; tests pass a fake.
	Gateway payouts.Gateway
	// Mailer overrides the configured alert transport.
	Mailer notifications.Mailer
}

// NewPayoutStack wires repositories, the Stripe gateway, notifications and the release service.
func NewPayoutStack(ctx context.Context, params StackParams) (*PayoutStack, error) {
	cfg, logg := params.Config, params.Logger
	if cfg == nil || logg == nil || params.DB == nil {
		return nil, fmt.Errorf("config, logger and db are required")
	}
	stack := &PayoutStack{Metrics: metrics.NewPayoutMetrics(params.Registerer)}

	gateway := params.Gateway
	if gateway == nil {
		breaker := pkgstripe.NewBreaker(pkgstripe.BreakerSettings{
			MaxConsecutiveFailures: cfg.Payouts.BreakerMaxFailures,
			OpenTimeout:            cfg.Payouts.BreakerOpenTimeout,
		}, logg)
		client, err := pkgstripe.NewClient(ctx, cfg.Stripe, breaker, logg)
		if err != nil {
			return nil, fmt.Errorf("stripe client: %w", err)
		}
		gateway = payouts.NewStripeGateway(client)
	}

	mailer := params.Mailer
	if mailer == nil {
		var err error
		mailer, err = stack.alertMailer(ctx, cfg, logg)
		if err != nil {
			return nil, multierr.Append(err, stack.Close())
		}
	}

	notificationsSvc, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notifications.NewRepository(params.DB),
		Mailer:    mailer,
		Logger:    logg,
		FromEmail: cfg.Alerts.FromEmail,
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("notifications service: %w", err), stack.Close())
	}

	repo := payouts.NewRepository(params.DB)
	stack.Monitor, err = payouts.NewStuckMonitor(payouts.StuckMonitorParams{
		Logger:        logg,
		Store:         repo,
		Admins:        organizations.NewRepository(params.DB),
		Notifier:      notificationsSvc,
		Metrics:       stack.Metrics,
		Threshold:     cfg.Payouts.StuckThreshold,
		DashboardLink: dashboardLink(cfg.App.PublicURL, cfg.Payouts.DashboardPayoutsPath),
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("stuck monitor: %w", err), stack.Close())
	}

	stack.Service, err = payouts.NewService(payouts.ServiceParams{
		Logger:             logg,
		Repo:               repo,
		Gateway:            gateway,
		Monitor:            stack.Monitor,
		Metrics:            stack.Metrics,
		GatewayTimeout:     cfg.Payouts.GatewayTimeout,
		RetryWarnThreshold: cfg.Payouts.RetryWarnThreshold,
		DefaultHold:        cfg.Payouts.DefaultHoldDuration,
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("payouts service: %w", err), stack.Close())
	}

	stack.Reconciler, err = payouts.NewReconciler(logg, repo, stack.Metrics, cfg.Payouts.ReleasingTimeout)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("reconciler: %w", err), stack.Close())
	}
	return stack, nil
}

func (s *PayoutStack) alertMailer(ctx context.Context, cfg *config.Config, logg *logger.Logger) (notifications.Mailer, error) {
	switch cfg.Alerts.Transport {
	case config.AlertsTransportRabbitMQ:
		publisher, err := rabbitmq.NewPublisher(ctx, cfg.RabbitMQ, logg)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		s.closers = append(s.closers, publisher.Close)
		return notifications.NewAMQPMailer(publisher, cfg.RabbitMQ.RoutingKey), nil
	case config.AlertsTransportPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		return notifications.NewPubSubMailer(client, cfg.PubSub.AlertsTopic), nil
	default:
		logg.Warn(ctx, "alert email transport disabled; stuck payout emails will be skipped")
		return nil, nil
	}
}

// Close releases transports opened for alert delivery.
func (s *PayoutStack) Close() error {
	if s == nil {
		return nil
	}
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i]())
	}
	s.closers = nil
	return err
}

func dashboardLink(publicURL, path string) string {
	base := strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if base == "" {
		return path
	}
	link, err := url.JoinPath(base, path)
	if err != nil {
		return base + path
	}
	return link
}
