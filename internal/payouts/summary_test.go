package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/payouts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/payouts-backend/pkg/errors"
)

func TestSummary(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	svc := newTestService(t, repo, newFakeGateway(), nil)

	seedPayout(t, repo, withHoldUntil(testNow.Add(48*time.Hour)))
	seedPayout(t, repo, withHoldUntil(testNow.Add(24*time.Hour)), withAmount(500))
	seedPayout(t, repo,
		withHoldUntil(testNow.Add(-30*time.Hour)),
		withNextAttempt(testNow.Add(2*time.Hour)),
		withReason("ACTION_REQUIRED:CONNECT_ONBOARDING_INCOMPLETE"))
	seedPayout(t, repo, withStatus(enums.PayoutStatusBlocked))
	seedPayout(t, repo, withStatus(enums.PayoutStatusReleased))
	seedPayout(t, repo, withRecipient("acct_other"))

	summary, err := svc.Summary(context.Background(), "acct_ready", testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.PendingCount)
	assert.Equal(t, 1, summary.BlockedCount)
	assert.Equal(t, int64(12_500+500+12_500), summary.PendingByCurrency["eur"])
	assert.True(t, summary.ActionRequired)
	require.NotNil(t, summary.NextReleaseAt)
	assert.True(t, summary.NextReleaseAt.Equal(testNow.Add(24*time.Hour)))
	require.NotNil(t, summary.NextAttemptAt)
	assert.True(t, summary.NextAttemptAt.Equal(testNow.Add(2*time.Hour)))

	empty, err := svc.Summary(context.Background(), "acct_nobody", testNow)
	require.NoError(t, err)
	assert.Zero(t, empty.PendingCount)
	assert.Nil(t, empty.NextReleaseAt)

	_, err = svc.Summary(context.Background(), " ", testNow)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
