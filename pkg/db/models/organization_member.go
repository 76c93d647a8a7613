package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/enums"
)

// OrganizationMember links a user with an organization and captures their role.
type OrganizationMember struct {
	ID             uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID     `gorm:"column:organization_id;type:uuid;not null;index"`
	UserID         uuid.UUID     `gorm:"column:user_id;type:uuid;not null"`
	Role           enums.OrgRole `gorm:"column:role;type:org_role;not null"`
	CreatedAt      time.Time     `gorm:"column:created_at"`
}
