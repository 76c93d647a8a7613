package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the payout recipient: an organizer with a connected account.
type Organization struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name                 string    `gorm:"column:name;not null"`
	StripeAccountID      *string   `gorm:"column:stripe_account_id;uniqueIndex"`
	AlertsEmail          *string   `gorm:"column:alerts_email"`
	AlertsPayoutsEnabled bool      `gorm:"column:alerts_payouts_enabled;not null"`
	CreatedAt            time.Time `gorm:"column:created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}
