package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/taskboard/internal/models"
)

// Sentinel errors for membership store operations
var (
	ErrMembershipNotFound      = errors.New("membership not found")
	ErrMembershipAlreadyExists = errors.New("membership already exists")
)

// MembershipStore manages the organization_user join rows.
type MembershipStore interface {
	// Create inserts a membership.
	// Returns ErrMembershipAlreadyExists if the profile already belongs to the organization,
	// ErrOrganizationNotFound if the organization doesn't exist, and ErrProfileNotFound
	// if the profile doesn't exist. The memory store only checks references when
	// built with WithReferences; otherwise it accepts dangling rows.
	Create(ctx context.Context, membership *models.Membership) error

	// Get retrieves the membership of a profile in an organization.
	// Returns ErrMembershipNotFound if there is none.
	Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error)

	// ListByUser returns all memberships held by a profile.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)

	// ListByOrganization returns all memberships of an organization.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error)
}
