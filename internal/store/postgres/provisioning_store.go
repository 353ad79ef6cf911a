package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/models"
)

// ProvisioningStore implements store.OrganizationProvisioner. The organization
// and its owner membership are written in one transaction, so no compensation
// is ever needed on this store.
type ProvisioningStore struct {
	pool *pgxpool.Pool
}

// NewProvisioningStore creates a new PostgreSQL-backed provisioner.
func NewProvisioningStore(pool *pgxpool.Pool) *ProvisioningStore {
	return &ProvisioningStore{pool: pool}
}

// CreateWithOwner inserts org and membership in a single transaction.
func (s *ProvisioningStore) CreateWithOwner(ctx context.Context, org *models.Organization, membership *models.Membership) error {
	var stepErr error
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if stepErr = insertOrganization(ctx, tx, org); stepErr != nil {
			return stepErr
		}
		if stepErr = insertMembership(ctx, tx, membership); stepErr != nil {
			stepErr = fmt.Errorf("owner membership: %w", stepErr)
			return stepErr
		}
		return nil
	})
	if err != nil {
		if stepErr != nil {
			return stepErr
		}
		// begin or commit failed
		return fmt.Errorf("provisioning transaction: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("owner_id", membership.UserID.String()).
		Msg("Provisioned organization with owner")

	return nil
}
