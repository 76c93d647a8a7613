package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/enums"
)

// PendingPayout is an amount owed to an organizer, held until HoldUntil and
// then transferred to their connected account.
type PendingPayout struct {
	ID                     uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID         *uuid.UUID         `gorm:"column:organization_id;type:uuid"`
	AmountCents            int64              `gorm:"column:amount_cents;not null"`
	Currency               string             `gorm:"column:currency;not null"`
	RecipientAccountID     *string            `gorm:"column:recipient_account_id"`
	SourcePaymentReference *string            `gorm:"column:source_payment_reference;uniqueIndex"`
	Status                 enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;index"`
	HoldUntil              time.Time          `gorm:"column:hold_until;not null;index"`
	NextAttemptAt          *time.Time         `gorm:"column:next_attempt_at"`
	RetryCount             int                `gorm:"column:retry_count;not null;default:0"`
	BlockedReason          *string            `gorm:"column:blocked_reason"`
	TransferID             *string            `gorm:"column:transfer_id"`
	ReleasedAt             *time.Time         `gorm:"column:released_at"`
	CreatedAt              time.Time          `gorm:"column:created_at"`
	UpdatedAt              time.Time          `gorm:"column:updated_at"`
}

// Recipient returns the destination account or an empty string when unset.
func (p PendingPayout) Recipient() string {
	if p.RecipientAccountID == nil {
		return ""
	}
	return *p.RecipientAccountID
}

// Reason returns the blocked reason or an empty string when unset.
func (p PendingPayout) Reason() string {
	if p.BlockedReason == nil {
		return ""
	}
	return *p.BlockedReason
}
