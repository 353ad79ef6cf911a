package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/store"
)

// ProfileStore implements store.ProfileStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type ProfileStore struct {
	mu sync.RWMutex

	profiles         map[uuid.UUID]*models.Profile // profile_id -> Profile
	profilesByExtUID map[string]*models.Profile    // supabase_uid -> Profile
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles:         make(map[uuid.UUID]*models.Profile),
		profilesByExtUID: make(map[string]*models.Profile),
	}
}

// Create creates a new profile in memory.
func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.ProfileID]; exists {
		return store.ErrProfileAlreadyExists
	}
	if _, exists := s.profilesByExtUID[profile.ExternalUID]; exists {
		return store.ErrProfileAlreadyExists
	}

	clone := *profile
	s.profiles[profile.ProfileID] = &clone
	s.profilesByExtUID[profile.ExternalUID] = &clone

	return nil
}

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[profileID]
	if !exists {
		return nil, store.ErrProfileNotFound
	}

	clone := *profile
	return &clone, nil
}

// GetByExternalUID retrieves a profile by the identity provider's user id.
func (s *ProfileStore) GetByExternalUID(ctx context.Context, externalUID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profilesByExtUID[externalUID]
	if !exists {
		return nil, store.ErrProfileNotFound
	}

	clone := *profile
	return &clone, nil
}
