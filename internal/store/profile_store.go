package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/taskboard/internal/models"
)

// Sentinel errors for profile store operations
var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrProfileAlreadyExists = errors.New("profile already exists")
)

// ProfileStore manages local user profiles (the users table).
type ProfileStore interface {
	// Create inserts a profile.
	// Returns ErrProfileAlreadyExists if the ID or the external uid is taken.
	Create(ctx context.Context, profile *models.Profile) error

	// Get retrieves a profile by its internal ID.
	Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)

	// GetByExternalUID retrieves a profile by the identity provider's user id.
	// Returns ErrProfileNotFound if no profile has been created yet.
	GetByExternalUID(ctx context.Context, externalUID string) (*models.Profile, error)
}
