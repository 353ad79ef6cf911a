package organizations

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/store"
)

// faultyOrgStore wraps an OrganizationStore, counting calls and failing
// selected operations.
type faultyOrgStore struct {
	store.OrganizationStore

	createErr error
	deleteErr error
	listErr   error

	creates atomic.Int32
	deletes atomic.Int32
}

func (s *faultyOrgStore) Create(ctx context.Context, org *models.Organization) error {
	s.creates.Add(1)
	if s.createErr != nil {
		return s.createErr
	}
	return s.OrganizationStore.Create(ctx, org)
}

func (s *faultyOrgStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.deletes.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.OrganizationStore.Delete(ctx, orgID)
}

func (s *faultyOrgStore) ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.OrganizationStore.ListByIDs(ctx, orgIDs)
}

type faultyMembershipStore struct {
	store.MembershipStore

	createErr error
	getErr    error
	listErr   error

	creates atomic.Int32
}

func (s *faultyMembershipStore) Create(ctx context.Context, m *models.Membership) error {
	s.creates.Add(1)
	if s.createErr != nil {
		return s.createErr
	}
	return s.MembershipStore.Create(ctx, m)
}

func (s *faultyMembershipStore) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MembershipStore.Get(ctx, orgID, userID)
}

func (s *faultyMembershipStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MembershipStore.ListByUser(ctx, userID)
}

type recordingProvisioner struct {
	orgs        store.OrganizationStore
	memberships store.MembershipStore
	err         error
	calls       atomic.Int32
}

func (p *recordingProvisioner) CreateWithOwner(ctx context.Context, org *models.Organization, m *models.Membership) error {
	p.calls.Add(1)
	if p.err != nil {
		return p.err
	}
	if err := p.orgs.Create(ctx, org); err != nil {
		return err
	}
	return p.memberships.Create(ctx, m)
}

type capturingReporter struct {
	reports []error
	tags    []map[string]string
}

func (r *capturingReporter) Report(_ context.Context, err error, tags map[string]string) {
	r.reports = append(r.reports, err)
	r.tags = append(r.tags, tags)
}
