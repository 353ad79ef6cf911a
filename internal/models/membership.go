package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a profile's role within an organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// Membership grants a profile a role within an organization (organization_user).
type Membership struct {
	OrgID     uuid.UUID // FK to organizations
	UserID    uuid.UUID // FK to users (profile id, not the provider uid)
	Role      Role
	CreatedAt time.Time
}
