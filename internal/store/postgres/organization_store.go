package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so inserts can be
// shared between the plain stores and the provisioning transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{
		pool: pool,
	}
}

// Create creates a new organization in the database.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	if err := insertOrganization(ctx, s.pool, org); err != nil {
		return err
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("name", org.Name).
		Msg("Created organization")

	return nil
}

func insertOrganization(ctx context.Context, q querier, org *models.Organization) error {
	query := `
		INSERT INTO organizations (
			id, name, owner_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err := q.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.OwnerID,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", store.ErrOrganizationAlreadyExists, err)
		}
		return fmt.Errorf("failed to create organization: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	query := `
		SELECT id, name, owner_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	org, err := scanOrganization(s.pool.QueryRow(ctx, query, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", mapPostgresError(err))
	}

	return org, nil
}

// Delete deletes an organization by ID.
// This will cascade-delete all memberships via FK constraint.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	query := `DELETE FROM organizations WHERE id = $1`

	result, err := s.pool.Exec(ctx, query, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Info().
		Str("org_id", orgID.String()).
		Msg("Deleted organization (and cascade-deleted all memberships)")

	return nil
}

// ListByIDs returns the organizations matching the given IDs, newest first.
func (s *OrganizationStore) ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, owner_id, created_at, updated_at
		FROM organizations
		WHERE id = ANY($1)
		ORDER BY created_at DESC, id
	`

	return s.list(ctx, query, orgIDs)
}

// ListByOwner returns all organizations owned by a specific profile, newest first.
func (s *OrganizationStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Organization, error) {
	query := `
		SELECT id, name, owner_id, created_at, updated_at
		FROM organizations
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
	`

	return s.list(ctx, query, ownerID)
}

func (s *OrganizationStore) list(ctx context.Context, query string, args ...any) ([]*models.Organization, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", mapPostgresError(err))
	}

	return orgs, nil
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(
		&org.OrgID,
		&org.Name,
		&org.OwnerID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &org, nil
}
