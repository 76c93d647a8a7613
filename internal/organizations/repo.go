package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
)

// ErrNotFound is returned when no organization owns the requested account.
var ErrNotFound = errors.New("organization not found")

// Repository exposes organization and membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new organization.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = org.CreatedAt
	}
	return r.db.WithContext(ctx).Create(org).Error
}

// AddMember links a user to an organization with the given role.
func (r *Repository) AddMember(ctx context.Context, orgID, userID uuid.UUID, role enums.OrgRole) (*models.OrganizationMember, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid org role %q", role)
	}
	member := &models.OrganizationMember{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// FindByStripeAccount returns the organization whose connected account is accountID.
func (r *Repository) FindByStripeAccount(ctx context.Context, accountID string) (*models.Organization, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrNotFound
	}
	var org models.Organization
	err := r.db.WithContext(ctx).
		Where("stripe_account_id = ?", accountID).
		First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// ListUserIDsWithRole returns distinct members holding one of roles, oldest first.
func (r *Repository) ListUserIDsWithRole(ctx context.Context, orgID uuid.UUID, roles ...enums.OrgRole) ([]uuid.UUID, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var members []models.OrganizationMember
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND role IN ?", orgID, roles).
		Order("created_at").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(members))
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// ResolveByStripeAccount returns the owning organization and its admin user ids.
func (r *Repository) ResolveByStripeAccount(ctx context.Context, accountID string) (*models.Organization, []uuid.UUID, error) {
	org, err := r.FindByStripeAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	admins, err := r.ListUserIDsWithRole(ctx, org.ID, enums.AdminOrgRoles...)
	if err != nil {
		return org, nil, err
	}
	return org, admins, nil
}
