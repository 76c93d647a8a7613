package organizations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/payouts-backend/pkg/db/dbtest"
	"github.com/angelmondragon/payouts-backend/pkg/db/models"
	"github.com/angelmondragon/payouts-backend/pkg/enums"
)

func TestRepository_ResolveByStripeAccount(t *testing.T) {
	db := dbtest.Open(t, &models.Organization{}, &models.OrganizationMember{})
	repo := NewRepository(db)
	ctx := context.Background()

	account := "acct_club"
	org := &models.Organization{Name: "Riverside Padel Club", StripeAccountID: &account, AlertsPayoutsEnabled: true}
	require.NoError(t, repo.Create(ctx, org))

	owner, admin, staff := uuid.New(), uuid.New(), uuid.New()
	for _, m := range []struct {
		user uuid.UUID
		role enums.OrgRole
	}{
		{owner, enums.OrgRoleOwner},
		{admin, enums.OrgRoleAdmin},
		{staff, enums.OrgRoleStaff},
	} {
		_, err := repo.AddMember(ctx, org.ID, m.user, m.role)
		require.NoError(t, err)
	}

	resolved, admins, err := repo.ResolveByStripeAccount(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, org.ID, resolved.ID)
	assert.True(t, resolved.AlertsPayoutsEnabled)
	assert.ElementsMatch(t, []uuid.UUID{owner, admin}, admins)
}

func TestRepository_ResolveUnknownAccount(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.Organization{}, &models.OrganizationMember{}))

	_, _, err := repo.ResolveByStripeAccount(context.Background(), "acct_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = repo.ResolveByStripeAccount(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_AddMemberRejectsInvalidRole(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.Organization{}, &models.OrganizationMember{}))
	_, err := repo.AddMember(context.Background(), uuid.New(), uuid.New(), enums.OrgRole("janitor"))
	assert.Error(t, err)
}

func TestRepository_ListUserIDsWithRoleNoRoles(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.OrganizationMember{}))
	ids, err := repo.ListUserIDsWithRole(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
