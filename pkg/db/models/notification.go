package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/enums"
)

// Notification stores in-app notification payloads addressed to a user.
type Notification struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType     `gorm:"column:type;type:notification_type;not null"`
	Category  enums.NotificationCategory `gorm:"column:category;type:notification_category;not null"`
	Title     string                     `gorm:"column:title;not null"`
	Message   string                     `gorm:"column:message;not null"`
	Link      *string                    `gorm:"column:link"`
	Metadata  json.RawMessage            `gorm:"column:metadata;type:jsonb"`
	ReadAt    *time.Time                 `gorm:"column:read_at"`
	CreatedAt time.Time                  `gorm:"column:created_at"`
}
