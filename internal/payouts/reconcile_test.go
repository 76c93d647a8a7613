package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/payouts-backend/pkg/enums"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
)

func TestReconciler_SweepReclaimsStaleClaims(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	reconciler, err := NewReconciler(logger.Nop(), repo, nil, 2*time.Hour)
	require.NoError(t, err)

	stale := seedPayout(t, repo, withStatus(enums.PayoutStatusReleasing), withUpdatedAt(testNow.Add(-3*time.Hour)), withRetryCount(2))
	fresh := seedPayout(t, repo, withStatus(enums.PayoutStatusReleasing), withUpdatedAt(testNow.Add(-time.Hour)))
	held := seedPayout(t, repo, withUpdatedAt(testNow.Add(-5*time.Hour)))

	n, err := reconciler.Sweep(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := mustFind(t, repo, stale.ID)
	assert.Equal(t, enums.PayoutStatusHeld, stored.Status)
	assert.Equal(t, 3, stored.RetryCount)
	assert.Equal(t, ReasonReleasingTimeout, stored.Reason())
	require.NotNil(t, stored.NextAttemptAt)
	assert.True(t, stored.NextAttemptAt.Equal(testNow.Add(10*time.Minute)))

	assert.Equal(t, enums.PayoutStatusReleasing, mustFind(t, repo, fresh.ID).Status)
	assert.Equal(t, enums.PayoutStatusHeld, mustFind(t, repo, held.ID).Status)

	events, err := repo.ListEvents(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutEventReclaimed, events[len(events)-1].Type)
}

func TestReconciler_ReclaimedPayoutIsReleasedWithSameKey(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	gateway := newFakeGateway()
	svc := newTestService(t, repo, gateway, nil)
	reconciler, err := NewReconciler(logger.Nop(), repo, nil, 0)
	require.NoError(t, err)

	payout := seedPayout(t, repo, withStatus(enums.PayoutStatusReleasing), withUpdatedAt(testNow.Add(-3*time.Hour)))
	_, err = reconciler.Sweep(context.Background(), testNow)
	require.NoError(t, err)

	results, err := svc.ReleaseDuePayouts(context.Background(), 10, testNow.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeReleased, results[0].Status)
	assert.Equal(t, IdempotencyKey(payout.ID), gateway.transfers[0].IdempotencyKey)
}
