package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/enums"
)

// NotificationPreference records an explicit per-category opt in or out.
// A missing row means the category is enabled.
type NotificationPreference struct {
	UserID    uuid.UUID                  `gorm:"column:user_id;type:uuid;primaryKey"`
	Category  enums.NotificationCategory `gorm:"column:category;type:notification_category;primaryKey"`
	Enabled   bool                       `gorm:"column:enabled;not null"`
	UpdatedAt time.Time                  `gorm:"column:updated_at"`
}
