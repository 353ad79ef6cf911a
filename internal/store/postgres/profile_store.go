package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/store"
)

// ProfileStore implements store.ProfileStore using the users table.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a new PostgreSQL-backed profile store.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Create inserts a profile.
func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO users (
			id, supabase_uid, email, name, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.pool.Exec(ctx, query,
		profile.ProfileID,
		profile.ExternalUID,
		profile.Email,
		profile.Name,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", store.ErrProfileAlreadyExists, err)
		}
		return fmt.Errorf("failed to create profile: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("profile_id", profile.ProfileID.String()).
		Str("external_uid", profile.ExternalUID).
		Msg("Created profile")

	return nil
}

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	return s.get(ctx, "id", profileID)
}

// GetByExternalUID retrieves a profile by the identity provider's user id.
func (s *ProfileStore) GetByExternalUID(ctx context.Context, externalUID string) (*models.Profile, error) {
	return s.get(ctx, "supabase_uid", externalUID)
}

// get looks a profile up by one of its unique columns; column is never user input.
func (s *ProfileStore) get(ctx context.Context, column string, value any) (*models.Profile, error) {
	query := `
		SELECT id, supabase_uid, email, name, created_at, updated_at
		FROM users
		WHERE ` + column + ` = $1
	`

	var p models.Profile
	err := s.pool.QueryRow(ctx, query, value).Scan(
		&p.ProfileID,
		&p.ExternalUID,
		&p.Email,
		&p.Name,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", mapPostgresError(err))
	}

	return &p, nil
}
