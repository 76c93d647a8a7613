package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/enums"
)

// PayoutEvent is an append-only audit row written alongside payout transitions.
type PayoutEvent struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	PayoutID   uuid.UUID             `gorm:"column:payout_id;type:uuid;not null;index:idx_payout_events_payout_type,priority:1"`
	Type       enums.PayoutEventType `gorm:"column:type;type:payout_event_type;not null;index:idx_payout_events_payout_type,priority:2"`
	FromStatus *enums.PayoutStatus   `gorm:"column:from_status;type:payout_status"`
	ToStatus   *enums.PayoutStatus   `gorm:"column:to_status;type:payout_status"`
	Reason     *string               `gorm:"column:reason"`
	Metadata   json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time             `gorm:"column:created_at;not null"`
}
