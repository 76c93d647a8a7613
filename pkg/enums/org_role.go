package enums

import "fmt"

// OrgRole represents an organization-level permissions role.
type OrgRole string

const (
	OrgRoleOwner    OrgRole = "owner"
	OrgRoleCoOwner  OrgRole = "co_owner"
	OrgRoleAdmin    OrgRole = "admin"
	OrgRoleStaff    OrgRole = "staff"
	OrgRoleTrainer  OrgRole = "trainer"
	OrgRolePromoter OrgRole = "promoter"
	OrgRoleViewer   OrgRole = "viewer"
)

var validOrgRoles = []OrgRole{
	OrgRoleOwner,
	OrgRoleCoOwner,
	OrgRoleAdmin,
	OrgRoleStaff,
	OrgRoleTrainer,
	OrgRolePromoter,
	OrgRoleViewer,
}

// AdminOrgRoles lists the roles that receive financial escalations.
var AdminOrgRoles = []OrgRole{OrgRoleOwner, OrgRoleCoOwner, OrgRoleAdmin}

// String implements fmt.Stringer.
func (r OrgRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known OrgRole.
func (r OrgRole) IsValid() bool {
	for _, candidate := range validOrgRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role is allowed to act on payouts.
func (r OrgRole) IsAdmin() bool {
	for _, candidate := range AdminOrgRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOrgRole converts raw input into an OrgRole.
func ParseOrgRole(value string) (OrgRole, error) {
	for _, candidate := range validOrgRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid org role %q", value)
}
