package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/taskboard/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations represent tenants in the system; profiles join them through memberships.
type OrganizationStore interface {
	// Create creates a new organization in the store.
	// The caller assigns OrgID before calling Create.
	// Returns ErrOrganizationAlreadyExists if the ID or the name is already taken.
	Create(ctx context.Context, org *models.Organization) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// Delete deletes an organization by ID.
	// This will cascade-delete all memberships of the organization (via FK constraint).
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Delete(ctx context.Context, orgID uuid.UUID) error

	// ListByIDs returns the organizations matching the given IDs.
	// IDs that don't exist are silently skipped.
	ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error)

	// ListByOwner returns all organizations owned by a specific profile.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Organization, error)
}

// OrganizationProvisioner is implemented by stores that can write an organization
// and its owner membership in a single transaction.
type OrganizationProvisioner interface {
	// CreateWithOwner inserts org and membership atomically. Either both rows
	// exist afterwards or neither does.
	CreateWithOwner(ctx context.Context, org *models.Organization, membership *models.Membership) error
}
