package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents an organization (tenant) in the system.
// Tasks are scoped to an organization and profiles join it through memberships.
type Organization struct {
	OrgID     uuid.UUID // UUIDv7, generated before insert
	Name      string
	OwnerID   uuid.UUID // UUIDv7, FK to users (profiles)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationWithRole is an organization as seen by one profile, carrying
// that profile's membership role. It is derived on every fetch and never stored.
type OrganizationWithRole struct {
	Organization
	Role Role
}
