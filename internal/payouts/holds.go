package payouts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/db"
	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/payouts-backend/pkg/errors"
)

// CreateHeldInput captures a captured payment whose proceeds are owed to an organizer.
type CreateHeldInput struct {
	OrganizationID         *uuid.UUID `json:"organizationId"`
	AmountCents            int64      `json:"amountCents" validate:"gt=0"`
	Currency               string     `json:"currency" validate:"required,len=3"`
	RecipientAccountID     string     `json:"recipientAccountId"`
	SourcePaymentReference string     `json:"sourcePaymentReference" validate:"required"`
	HoldUntil              *time.Time `json:"holdUntil"`
}

func (s *service) CreateHeld(ctx context.Context, input CreateHeldInput, now time.Time) (*models.PendingPayout, error) {
	now = now.UTC()
	if err := validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid held payout")
	}

	existing, err := s.repo.FindBySourceReference(ctx, input.SourcePaymentReference)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payout by source reference")
	}

	holdUntil := now.Add(s.defaultHold)
	if input.HoldUntil != nil {
		holdUntil = input.HoldUntil.UTC()
	}

	payout := &models.PendingPayout{
		ID:                     uuid.New(),
		OrganizationID:         input.OrganizationID,
		AmountCents:            input.AmountCents,
		Currency:               strings.ToLower(input.Currency),
		SourcePaymentReference: &input.SourcePaymentReference,
		Status:                 enums.PayoutStatusHeld,
		HoldUntil:              holdUntil,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if recipient := strings.TrimSpace(input.RecipientAccountID); recipient != "" {
		payout.RecipientAccountID = &recipient
	}

	if err := s.repo.Create(ctx, payout); err != nil {
		if db.IsUniqueViolation(err, "") {
			// lost a race with a concurrent create for the same payment
			return s.repo.FindBySourceReference(ctx, input.SourcePaymentReference)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create held payout")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event":      "payouts.held",
		"payout_id":  payout.ID.String(),
		"hold_until": holdUntil,
	}), "payout held")
	return payout, nil
}

func (s *service) Block(ctx context.Context, sourceReference, reason string, now time.Time) (*models.PendingPayout, error) {
	reason = truncateReason(strings.TrimSpace(reason))
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "block reason is required")
	}
	return s.transition(ctx, sourceReference, transitionSpec{
		from:      []enums.PayoutStatus{enums.PayoutStatusHeld, enums.PayoutStatusBlocked},
		to:        enums.PayoutStatusBlocked,
		reason:    &reason,
		eventType: enums.PayoutEventBlocked,
	}, now)
}

func (s *service) Unblock(ctx context.Context, sourceReference string, now time.Time) (*models.PendingPayout, error) {
	return s.transition(ctx, sourceReference, transitionSpec{
		from:      []enums.PayoutStatus{enums.PayoutStatusBlocked},
		to:        enums.PayoutStatusHeld,
		eventType: enums.PayoutEventUnblocked,
		noopIn:    []enums.PayoutStatus{enums.PayoutStatusHeld},
	}, now)
}

func (s *service) Cancel(ctx context.Context, sourceReference, reason string, now time.Time) (*models.PendingPayout, error) {
	reason = truncateReason(strings.TrimSpace(reason))
	if reason == "" {
		reason = "CANCELLED"
	}
	return s.transition(ctx, sourceReference, transitionSpec{
		from:      []enums.PayoutStatus{enums.PayoutStatusHeld, enums.PayoutStatusBlocked},
		to:        enums.PayoutStatusCancelled,
		reason:    &reason,
		eventType: enums.PayoutEventCancelled,
		noopIn:    []enums.PayoutStatus{enums.PayoutStatusCancelled},
	}, now)
}

type transitionSpec struct {
	from      []enums.PayoutStatus
	to        enums.PayoutStatus
	reason    *string
	eventType enums.PayoutEventType
	noopIn    []enums.PayoutStatus
}

func (s *service) transition(ctx context.Context, sourceReference string, spec transitionSpec, now time.Time) (*models.PendingPayout, error) {
	now = now.UTC()
	payout, err := s.repo.FindBySourceReference(ctx, sourceReference)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payout by source reference")
	}

	for _, status := range spec.noopIn {
		if payout.Status == status {
			return payout, nil
		}
	}

	moved, err := s.repo.TransitionHold(ctx, HoldTransition{
		ID:        payout.ID,
		From:      spec.from,
		To:        spec.to,
		Reason:    spec.reason,
		EventType: spec.eventType,
		Now:       now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition payout")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout cannot move from "+payout.Status.String()+" to "+spec.to.String()).
			WithDetails(map[string]any{"payoutId": payout.ID, "status": payout.Status})
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"event":     "payouts." + string(spec.eventType),
		"payout_id": payout.ID.String(),
		"from":      payout.Status,
		"to":        spec.to,
	})
	s.logg.Info(ctx, "payout hold transitioned")

	return s.repo.FindByID(ctx, payout.ID)
}
