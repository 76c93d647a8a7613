package payouts

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/payouts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/payouts-backend/pkg/errors"
)

// Summary is the organizer-facing view of money not yet transferred.
type Summary struct {
	AccountID         string           `json:"accountId"`
	PendingByCurrency map[string]int64 `json:"pendingByCurrency"`
	PendingCount      int              `json:"pendingCount"`
	BlockedCount      int              `json:"blockedCount"`
	NextReleaseAt     *time.Time       `json:"nextReleaseAt,omitempty"`
	NextAttemptAt     *time.Time       `json:"nextAttemptAt,omitempty"`
	ActionRequired    bool             `json:"actionRequired"`
	GeneratedAt       time.Time        `json:"generatedAt"`
}

func (s *service) Summary(ctx context.Context, accountID string, now time.Time) (*Summary, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	open, err := s.repo.ListOpenByRecipient(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open payouts")
	}

	summary := &Summary{
		AccountID:         accountID,
		PendingByCurrency: map[string]int64{},
		GeneratedAt:       now.UTC(),
	}
	for _, p := range open {
		if p.Status == enums.PayoutStatusBlocked {
			summary.BlockedCount++
			continue
		}
		summary.PendingCount++
		summary.PendingByCurrency[strings.ToLower(p.Currency)] += p.AmountCents

		summary.NextReleaseAt = earliestAfter(summary.NextReleaseAt, &p.HoldUntil, summary.GeneratedAt)
		summary.NextAttemptAt = earliestAfter(summary.NextAttemptAt, p.NextAttemptAt, summary.GeneratedAt)
		if strings.HasPrefix(p.Reason(), ActionRequiredPrefix) {
			summary.ActionRequired = true
		}
	}
	return summary, nil
}

// earliestAfter keeps the earlier of current and candidate, ignoring candidates not after now.
func earliestAfter(current, candidate *time.Time, now time.Time) *time.Time {
	if candidate == nil || !candidate.After(now) {
		return current
	}
	if current == nil || candidate.Before(*current) {
		ts := candidate.UTC()
		return &ts
	}
	return current
}
