package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/internal/notifications"
	"github.com/angelmondragon/payouts-backend/internal/organizations"
	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
	"github.com/angelmondragon/payouts-backend/pkg/metrics"
	"github.com/angelmondragon/payouts-backend/pkg/money"
)

const (
	defaultStuckThreshold = 24 * time.Hour

	escalationChannelInApp = "in_app"
	escalationChannelEmail = "email"
)

// ScanReport counts what one monitor pass did. Stuck only counts payouts not
// yet escalated in the current window; Deduplicated counts claims lost to a
// concurrent scan. Deferred payouts are retried on the next pass.
type ScanReport struct {
	Stuck        int `json:"stuck"`
	Escalated    int `json:"escalated"`
	Deduplicated int `json:"deduplicated"`
	Deferred     int `json:"deferred"`
	Notified     int `json:"notified"`
	Emailed      int `json:"emailed"`
}

type stuckStore interface {
	FindStuck(ctx context.Context, now time.Time, threshold time.Duration) ([]models.PendingPayout, error)
	ClaimEscalation(ctx context.Context, payoutID uuid.UUID, since, now time.Time, metadata map[string]any) (bool, error)
}

// AdminResolver finds the organization that owns a recipient account and its admins.
// It returns organizations.ErrNotFound when no organization owns the account.
type AdminResolver interface {
	ResolveByStripeAccount(ctx context.Context, accountID string) (*models.Organization, []uuid.UUID, error)
}

// Notifier is the subset of the notifications service used for escalation.
type Notifier interface {
	ShouldNotify(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) (bool, error)
	Notify(ctx context.Context, input notifications.NotifyInput) (*models.Notification, error)
	SendAlertEmail(ctx context.Context, email notifications.AlertEmail) error
}

// StuckMonitorParams wires the stuck payout monitor.
type StuckMonitorParams struct {
	Logger        *logger.Logger
	Store         stuckStore
	Admins        AdminResolver
	Notifier      Notifier
	Metrics       *metrics.PayoutMetrics
	Threshold     time.Duration
	DashboardLink string
}

// StuckMonitor escalates payouts that have waited on recipient onboarding past the threshold.
type StuckMonitor struct {
	logg      *logger.Logger
	store     stuckStore
	admins    AdminResolver
	notifier  Notifier
	metrics   *metrics.PayoutMetrics
	threshold time.Duration
	link      string
}

// NewStuckMonitor validates dependencies and returns a monitor.
func NewStuckMonitor(params StuckMonitorParams) (*StuckMonitor, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Store == nil {
		return nil, errors.New("payout store is required")
	}
	if params.Admins == nil {
		return nil, errors.New("admin resolver is required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultStuckThreshold
	}
	return &StuckMonitor{
		logg:      params.Logger,
		store:     params.Store,
		admins:    params.Admins,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		threshold: threshold,
		link:      params.DashboardLink,
	}, nil
}

// Scan escalates each stuck payout at most once per threshold window.
// Only the initial lookup can fail the scan; per-payout problems are logged.
func (m *StuckMonitor) Scan(ctx context.Context, now time.Time) (ScanReport, error) {
	now = now.UTC()
	var report ScanReport

	stuck, err := m.store.FindStuck(ctx, now, m.threshold)
	if err != nil {
		return report, fmt.Errorf("find stuck payouts: %w", err)
	}
	report.Stuck = len(stuck)

	for _, payout := range stuck {
		m.handleIsolated(m.logg.WithPayoutID(ctx, payout.ID.String()), payout, now, &report)
	}

	if report.Stuck > 0 {
		m.logg.Info(m.logg.WithFields(ctx, map[string]any{
			"event":        "payouts.stuck_scan.completed",
			"stuck":        report.Stuck,
			"escalated":    report.Escalated,
			"deduplicated": report.Deduplicated,
			"deferred":     report.Deferred,
			"notified":     report.Notified,
			"emailed":      report.Emailed,
		}), "stuck payout scan completed")
	}
	return report, nil
}

func (m *StuckMonitor) handleIsolated(ctx context.Context, payout models.PendingPayout, now time.Time, report *ScanReport) {
	defer func() {
		if r := recover(); r != nil {
			m.logg.Error(ctx, "payouts.stuck.panic", fmt.Errorf("panic: %v", r))
			report.Deferred++
		}
	}()
	m.handle(ctx, payout, now, report)
}

func (m *StuckMonitor) handle(ctx context.Context, payout models.PendingPayout, now time.Time, report *ScanReport) {
	accountID := payout.Recipient()
	ctx = m.logg.WithFields(ctx, map[string]any{
		"account_id":  accountID,
		"reason":      payout.Reason(),
		"hold_until":  payout.HoldUntil,
		"retry_count": payout.RetryCount,
		"updated_at":  payout.UpdatedAt,
	})
	if payout.NextAttemptAt != nil {
		ctx = m.logg.WithField(ctx, "next_attempt_at", *payout.NextAttemptAt)
	}
	m.logg.Error(m.logg.WithField(ctx, "event", "payouts.stuck.detected"), "payout stuck waiting on recipient action", nil)

	org, adminIDs, err := m.admins.ResolveByStripeAccount(ctx, accountID)
	switch {
	case errors.Is(err, organizations.ErrNotFound):
		m.logg.Warn(ctx, "no organization owns the stuck payout account")
		org, adminIDs = nil, nil
	case err != nil:
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "organization lookup failed; escalation deferred")
		report.Deferred++
		return
	}

	meta := map[string]any{
		"accountId":  accountID,
		"adminCount": len(adminIDs),
	}
	if org != nil {
		meta["organizationId"] = org.ID.String()
	}
	won, err := m.store.ClaimEscalation(ctx, payout.ID, now.Add(-m.threshold), now, meta)
	if err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "escalation claim failed; escalation deferred")
		report.Deferred++
		return
	}
	if !won {
		report.Deduplicated++
		return
	}

	notified := m.notifyAdmins(ctx, payout, adminIDs)
	emailed := m.sendEmail(ctx, payout, org)

	report.Escalated++
	report.Notified += notified
	if emailed {
		report.Emailed++
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"event":           "payouts.stuck.escalated",
		"notified_admins": notified,
		"emailed":         emailed,
	}), "stuck payout escalated")
}

func (m *StuckMonitor) notifyAdmins(ctx context.Context, payout models.PendingPayout, adminIDs []uuid.UUID) int {
	category := enums.NotificationTypeEventPayoutStatus.Category()
	amount := money.FormatCents(payout.AmountCents, payout.Currency)
	sent := 0
	for _, userID := range adminIDs {
		userCtx := m.logg.WithField(ctx, "user_id", userID.String())
		ok, err := m.notifier.ShouldNotify(userCtx, userID, category)
		if err != nil {
			m.logg.Warn(m.logg.WithField(userCtx, "error", err.Error()), "notification preference lookup failed")
			continue
		}
		if !ok {
			continue
		}
		_, err = m.notifier.Notify(userCtx, notifications.NotifyInput{
			UserID:  userID,
			Type:    enums.NotificationTypeEventPayoutStatus,
			Title:   "Payout on hold: action required",
			Message: fmt.Sprintf("A payout of %s is waiting for your Stripe account onboarding to be completed.", amount),
			Link:    m.link,
			Metadata: map[string]any{
				"payoutId":    payout.ID.String(),
				"amountCents": payout.AmountCents,
				"currency":    payout.Currency,
				"reason":      payout.Reason(),
			},
		})
		if err != nil {
			m.logg.Warn(m.logg.WithField(userCtx, "error", err.Error()), "failed to notify admin about stuck payout")
			continue
		}
		sent++
	}
	if sent > 0 {
		m.metrics.IncEscalation(escalationChannelInApp)
	}
	return sent
}

func (m *StuckMonitor) sendEmail(ctx context.Context, payout models.PendingPayout, org *models.Organization) bool {
	if org == nil || !org.AlertsPayoutsEnabled || org.AlertsEmail == nil {
		return false
	}
	to := strings.TrimSpace(*org.AlertsEmail)
	if to == "" {
		return false
	}
	amount := money.FormatCents(payout.AmountCents, payout.Currency)
	err := m.notifier.SendAlertEmail(ctx, notifications.AlertEmail{
		To:      to,
		Subject: fmt.Sprintf("%s: payout on hold, action required", org.Name),
		Body: fmt.Sprintf(
			"A payout of %s has been on hold since %s because the connected Stripe account is not ready (%s). Complete onboarding to release it.",
			amount, payout.HoldUntil.Format(time.RFC3339), payout.Reason(),
		),
		Link: m.link,
		Tags: map[string]string{
			"payout_id":       payout.ID.String(),
			"organization_id": org.ID.String(),
		},
	})
	if err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "failed to send stuck payout alert email")
		return false
	}
	m.metrics.IncEscalation(escalationChannelEmail)
	return true
}
