package payouts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
)

var (
	// ErrNotFound is returned when no pending payout matches the lookup.
	ErrNotFound = errors.New("pending payout not found")
	// ErrClaimLost is returned when a commit finds the payout no longer RELEASING.
	ErrClaimLost = errors.New("payout is no longer claimed for release")
)

const (
	stuckScanLimit    = 200
	staleReleaseLimit = 100
	whereStatusIn     = "status IN ?"
)

// ClaimRequest describes a conditional HELD/BLOCKED -> RELEASING transition.
type ClaimRequest struct {
	ID              uuid.UUID
	Allowed         []enums.PayoutStatus
	Now             time.Time
	EnforceSchedule bool
}

// Repository persists pending payouts and their audit trail.
// Every status change is a single conditional UPDATE so concurrent workers
// never both own a payout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, payout *models.PendingPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PendingPayout, error)
	FindBySourceReference(ctx context.Context, reference string) (*models.PendingPayout, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.PendingPayout, error)
	ListOpenByRecipient(ctx context.Context, accountID string) ([]models.PendingPayout, error)
	ListEvents(ctx context.Context, payoutID uuid.UUID) ([]models.PayoutEvent, error)

	TryClaim(ctx context.Context, req ClaimRequest) (bool, error)
	CommitSuccess(ctx context.Context, id uuid.UUID, transferID string, now time.Time) error
	CommitRetry(ctx context.Context, id uuid.UUID, plan RetryPlan, now time.Time) error
	CommitCancel(ctx context.Context, id uuid.UUID, reason string, now time.Time) error

	TransitionHold(ctx context.Context, in HoldTransition) (bool, error)

	FindStuck(ctx context.Context, now time.Time, threshold time.Duration) ([]models.PendingPayout, error)
	ClaimEscalation(ctx context.Context, payoutID uuid.UUID, since, now time.Time, metadata map[string]any) (bool, error)

	FindStaleReleasing(ctx context.Context, cutoff time.Time) ([]models.PendingPayout, error)
	Reclaim(ctx context.Context, id uuid.UUID, cutoff time.Time, plan RetryPlan, now time.Time) (bool, error)
}

// HoldTransition moves a payout between non-release states (block, unblock, cancel).
type HoldTransition struct {
	ID        uuid.UUID
	From      []enums.PayoutStatus
	To        enums.PayoutStatus
	Reason    *string
	EventType enums.PayoutEventType
	Now       time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.PendingPayout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payout).Error; err != nil {
			return err
		}
		status := payout.Status
		return appendEvent(tx, payout.ID, enums.PayoutEventCreated, nil, &status, payout.BlockedReason, map[string]any{
			"amountCents": payout.AmountCents,
			"currency":    payout.Currency,
			"holdUntil":   payout.HoldUntil,
		}, payout.CreatedAt)
	})
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PendingPayout, error) {
	var payout models.PendingPayout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindBySourceReference(ctx context.Context, reference string) (*models.PendingPayout, error) {
	var payout models.PendingPayout
	err := r.db.WithContext(ctx).Where("source_payment_reference = ?", reference).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.PendingPayout, error) {
	var due []models.PendingPayout
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.PayoutStatusHeld).
		Where("hold_until <= ?", now).
		Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now).
		Order("hold_until ASC").
		Limit(limit).
		Find(&due).Error; err != nil {
		return nil, err
	}
	return due, nil
}

func (r *repository) ListOpenByRecipient(ctx context.Context, accountID string) ([]models.PendingPayout, error) {
	var open []models.PendingPayout
	if err := r.db.WithContext(ctx).
		Where("recipient_account_id = ?", accountID).
		Where(whereStatusIn, []enums.PayoutStatus{
			enums.PayoutStatusHeld,
			enums.PayoutStatusReleasing,
			enums.PayoutStatusBlocked,
		}).
		Order("hold_until ASC").
		Find(&open).Error; err != nil {
		return nil, err
	}
	return open, nil
}

func (r *repository) ListEvents(ctx context.Context, payoutID uuid.UUID) ([]models.PayoutEvent, error) {
	var events []models.PayoutEvent
	if err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// TryClaim moves one payout to RELEASING and appends a claimed event.
// The conditional UPDATE decides the winner; the row lock only pins the
// source status recorded on the event.
func (r *repository) TryClaim(ctx context.Context, req ClaimRequest) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PendingPayout
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			Where("id = ?", req.ID).
			Take(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		query := tx.Model(&models.PendingPayout{}).
			Where("id = ?", req.ID).
			Where(whereStatusIn, req.Allowed)
		if req.EnforceSchedule {
			query = query.
				Where("hold_until <= ?", req.Now).
				Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", req.Now)
		}
		res := query.Updates(map[string]any{
			"status":          enums.PayoutStatusReleasing,
			"blocked_reason":  nil,
			"next_attempt_at": nil,
			"updated_at":      req.Now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		claimed = true
		from, to := current.Status, enums.PayoutStatusReleasing
		var metadata map[string]any
		if !req.EnforceSchedule {
			metadata = map[string]any{"force": true}
		}
		return appendEvent(tx, req.ID, enums.PayoutEventClaimed, &from, &to, nil, metadata, req.Now)
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (r *repository) CommitSuccess(ctx context.Context, id uuid.UUID, transferID string, now time.Time) error {
	return r.commitFromReleasing(ctx, id, enums.PayoutStatusReleased, map[string]any{
		"status":          enums.PayoutStatusReleased,
		"transfer_id":     transferID,
		"released_at":     now,
		"blocked_reason":  nil,
		"next_attempt_at": nil,
		"updated_at":      now,
	}, enums.PayoutEventReleased, nil, map[string]any{"transferId": transferID}, now)
}

func (r *repository) CommitRetry(ctx context.Context, id uuid.UUID, plan RetryPlan, now time.Time) error {
	reason := plan.Reason
	return r.commitFromReleasing(ctx, id, enums.PayoutStatusHeld, map[string]any{
		"status":          enums.PayoutStatusHeld,
		"next_attempt_at": plan.NextAttemptAt,
		"retry_count":     plan.RetryCount,
		"blocked_reason":  plan.Reason,
		"updated_at":      now,
	}, enums.PayoutEventRetryScheduled, &reason, map[string]any{
		"failureClass":  plan.Class,
		"retryCount":    plan.RetryCount,
		"nextAttemptAt": plan.NextAttemptAt,
	}, now)
}

func (r *repository) CommitCancel(ctx context.Context, id uuid.UUID, reason string, now time.Time) error {
	return r.commitFromReleasing(ctx, id, enums.PayoutStatusCancelled, map[string]any{
		"status":          enums.PayoutStatusCancelled,
		"blocked_reason":  reason,
		"next_attempt_at": nil,
		"updated_at":      now,
	}, enums.PayoutEventCancelled, &reason, nil, now)
}

func (r *repository) commitFromReleasing(
	ctx context.Context,
	id uuid.UUID,
	to enums.PayoutStatus,
	updates map[string]any,
	eventType enums.PayoutEventType,
	reason *string,
	metadata map[string]any,
	now time.Time,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PendingPayout{}).
			Where("id = ?", id).
			Where("status = ?", enums.PayoutStatusReleasing).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrClaimLost
		}
		from := enums.PayoutStatusReleasing
		return appendEvent(tx, id, eventType, &from, &to, reason, metadata, now)
	})
}

func (r *repository) TransitionHold(ctx context.Context, in HoldTransition) (bool, error) {
	moved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PendingPayout
		if err := tx.Where("id = ?", in.ID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		res := tx.Model(&models.PendingPayout{}).
			Where("id = ?", in.ID).
			Where(whereStatusIn, in.From).
			Updates(map[string]any{
				"status":         in.To,
				"blocked_reason": in.Reason,
				"updated_at":     in.Now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		moved = true
		from := current.Status
		return appendEvent(tx, in.ID, in.EventType, &from, &in.To, in.Reason, nil, in.Now)
	})
	return moved, err
}

// FindStuck returns HELD payouts waiting on recipient action past the threshold
// that have not been escalated inside the current window.
func (r *repository) FindStuck(ctx context.Context, now time.Time, threshold time.Duration) ([]models.PendingPayout, error) {
	db := r.db.WithContext(ctx)
	escalated := db.Table("payout_events AS e").
		Select("1").
		Where("e.payout_id = pending_payouts.id").
		Where("e.type = ?", enums.PayoutEventEscalated).
		Where("e.created_at >= ?", now.Add(-threshold))

	var stuck []models.PendingPayout
	if err := db.
		Where("status = ?", enums.PayoutStatusHeld).
		Where("blocked_reason LIKE ?", ActionRequiredPrefix+"%").
		Where("hold_until <= ?", now.Add(-threshold)).
		Where("NOT EXISTS (?)", escalated).
		Order("hold_until ASC").
		Limit(stuckScanLimit).
		Find(&stuck).Error; err != nil {
		return nil, err
	}
	return stuck, nil
}

// ClaimEscalation records the escalated event unless one exists since the
// given time. Callers deliver alerts only when it returns true.
func (r *repository) ClaimEscalation(ctx context.Context, payoutID uuid.UUID, since, now time.Time, metadata map[string]any) (bool, error) {
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payout models.PendingPayout
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", payoutID).
			Where("status = ?", enums.PayoutStatusHeld).
			Take(&payout).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.PayoutEvent{}).
			Where("payout_id = ?", payoutID).
			Where("type = ?", enums.PayoutEventEscalated).
			Where("created_at >= ?", since).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		won = true
		return appendEvent(tx, payoutID, enums.PayoutEventEscalated, nil, nil, nil, metadata, now)
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

func (r *repository) FindStaleReleasing(ctx context.Context, cutoff time.Time) ([]models.PendingPayout, error) {
	var stale []models.PendingPayout
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.PayoutStatusReleasing).
		Where("updated_at <= ?", cutoff).
		Order("updated_at ASC").
		Limit(staleReleaseLimit).
		Find(&stale).Error; err != nil {
		return nil, err
	}
	return stale, nil
}

func (r *repository) Reclaim(ctx context.Context, id uuid.UUID, cutoff time.Time, plan RetryPlan, now time.Time) (bool, error) {
	reclaimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PendingPayout{}).
			Where("id = ?", id).
			Where("status = ?", enums.PayoutStatusReleasing).
			Where("updated_at <= ?", cutoff).
			Updates(map[string]any{
				"status":          enums.PayoutStatusHeld,
				"next_attempt_at": plan.NextAttemptAt,
				"retry_count":     plan.RetryCount,
				"blocked_reason":  plan.Reason,
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		reclaimed = true
		from, to := enums.PayoutStatusReleasing, enums.PayoutStatusHeld
		reason := plan.Reason
		return appendEvent(tx, id, enums.PayoutEventReclaimed, &from, &to, &reason, map[string]any{
			"retryCount":    plan.RetryCount,
			"nextAttemptAt": plan.NextAttemptAt,
		}, now)
	})
	return reclaimed, err
}

func appendEvent(
	db *gorm.DB,
	payoutID uuid.UUID,
	eventType enums.PayoutEventType,
	from, to *enums.PayoutStatus,
	reason *string,
	metadata map[string]any,
	now time.Time,
) error {
	var raw json.RawMessage
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		raw = encoded
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return db.Create(&models.PayoutEvent{
		ID:         uuid.New(),
		PayoutID:   payoutID,
		Type:       eventType,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		Metadata:   raw,
		CreatedAt:  now,
	}).Error
}
