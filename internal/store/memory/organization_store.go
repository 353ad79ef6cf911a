package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type OrganizationStore struct {
	mu sync.RWMutex

	organizations map[uuid.UUID]*models.Organization // org_id -> Organization
	names         map[string]uuid.UUID               // lower(name) -> org_id
}

// NewOrganizationStore creates a new in-memory organization store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{
		organizations: make(map[uuid.UUID]*models.Organization),
		names:         make(map[string]uuid.UUID),
	}
}

// Create creates a new organization in memory.
// Names are unique case-insensitively, matching the postgres unique index.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[org.OrgID]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	key := nameKey(org.Name)
	if _, exists := s.names[key]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *org
	s.organizations[org.OrgID] = &clone
	s.names[key] = org.OrgID

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

// Delete deletes an organization by ID.
// Note: In-memory implementation doesn't cascade to memberships.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	delete(s.names, nameKey(org.Name))
	delete(s.organizations, orgID)

	return nil
}

// ListByIDs returns the organizations matching the given IDs, newest first.
func (s *OrganizationStore) ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Organization
	seen := make(map[uuid.UUID]bool, len(orgIDs))
	for _, id := range orgIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		if org, exists := s.organizations[id]; exists {
			clone := *org
			result = append(result, &clone)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

// ListByOwner returns all organizations owned by a specific profile, newest first.
func (s *OrganizationStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Organization
	for _, org := range s.organizations {
		if org.OwnerID == ownerID {
			clone := *org
			result = append(result, &clone)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func sortNewestFirst(orgs []*models.Organization) {
	sort.Slice(orgs, func(i, j int) bool {
		if !orgs[i].CreatedAt.Equal(orgs[j].CreatedAt) {
			return orgs[i].CreatedAt.After(orgs[j].CreatedAt)
		}
		return orgs[i].OrgID.String() < orgs[j].OrgID.String()
	})
}
