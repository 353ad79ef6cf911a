package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/store"
)

type membershipKey struct {
	orgID  uuid.UUID
	userID uuid.UUID
}

// MembershipStore implements store.MembershipStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type MembershipStore struct {
	mu sync.RWMutex

	memberships map[membershipKey]*models.Membership

	// optional foreign keys, checked on Create when set
	orgs     store.OrganizationStore
	profiles store.ProfileStore
}

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		memberships: make(map[membershipKey]*models.Membership),
	}
}

// WithReferences makes Create reject memberships whose organization or
// profile doesn't exist in the given stores, like the postgres foreign keys.
// Either store may be nil to skip that check.
func (s *MembershipStore) WithReferences(orgs store.OrganizationStore, profiles store.ProfileStore) *MembershipStore {
	s.orgs = orgs
	s.profiles = profiles
	return s
}

// Create inserts a membership.
func (s *MembershipStore) Create(ctx context.Context, membership *models.Membership) error {
	if s.orgs != nil {
		if _, err := s.orgs.Get(ctx, membership.OrgID); err != nil {
			return err
		}
	}
	if s.profiles != nil {
		if _, err := s.profiles.Get(ctx, membership.UserID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{orgID: membership.OrgID, userID: membership.UserID}
	if _, exists := s.memberships[key]; exists {
		return store.ErrMembershipAlreadyExists
	}

	clone := *membership
	s.memberships[key] = &clone

	return nil
}

// Get retrieves the membership of a profile in an organization.
func (s *MembershipStore) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.memberships[membershipKey{orgID: orgID, userID: userID}]
	if !exists {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// ListByUser returns all memberships held by a profile.
func (s *MembershipStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	return s.list(func(m *models.Membership) bool { return m.UserID == userID }), nil
}

// ListByOrganization returns all memberships of an organization.
func (s *MembershipStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	return s.list(func(m *models.Membership) bool { return m.OrgID == orgID }), nil
}

func (s *MembershipStore) list(match func(*models.Membership) bool) []*models.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Membership
	for _, m := range s.memberships {
		if match(m) {
			clone := *m
			result = append(result, &clone)
		}
	}

	return result
}
