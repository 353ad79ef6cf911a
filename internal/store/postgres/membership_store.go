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

// MembershipStore implements store.MembershipStore using the organization_user table.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// Create inserts a membership.
func (s *MembershipStore) Create(ctx context.Context, membership *models.Membership) error {
	if err := insertMembership(ctx, s.pool, membership); err != nil {
		return err
	}

	log.Debug().
		Str("org_id", membership.OrgID.String()).
		Str("user_id", membership.UserID.String()).
		Str("role", string(membership.Role)).
		Msg("Created membership")

	return nil
}

func insertMembership(ctx context.Context, q querier, m *models.Membership) error {
	query := `
		INSERT INTO organization_user (
			organization_id, user_id, role, created_at
		) VALUES (
			$1, $2, $3, $4
		)
	`

	_, err := q.Exec(ctx, query, m.OrgID, m.UserID, string(m.Role), m.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: %w", store.ErrMembershipAlreadyExists, err)
		case isForeignKeyViolation(err):
			if constraintName(err) == "organization_user_user_id_fkey" {
				return fmt.Errorf("%w: %w", store.ErrProfileNotFound, err)
			}
			return fmt.Errorf("%w: %w", store.ErrOrganizationNotFound, err)
		}
		return fmt.Errorf("failed to create membership: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves the membership of a profile in an organization.
func (s *MembershipStore) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_user
		WHERE organization_id = $1 AND user_id = $2
	`

	m, err := scanMembership(s.pool.QueryRow(ctx, query, orgID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", mapPostgresError(err))
	}

	return m, nil
}

// ListByUser returns all memberships held by a profile.
func (s *MembershipStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_user
		WHERE user_id = $1
	`

	return s.list(ctx, query, userID)
}

// ListByOrganization returns all memberships of an organization.
func (s *MembershipStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_user
		WHERE organization_id = $1
		ORDER BY created_at
	`

	return s.list(ctx, query, orgID)
}

func (s *MembershipStore) list(ctx context.Context, query string, args ...any) ([]*models.Membership, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", mapPostgresError(err))
	}

	return memberships, nil
}

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var (
		m    models.Membership
		role *string
	)
	if err := row.Scan(&m.OrgID, &m.UserID, &role, &m.CreatedAt); err != nil {
		return nil, err
	}

	// NULL roles come back as empty and are judged by the caller
	if role != nil {
		m.Role = models.Role(*role)
	}

	return &m, nil
}
