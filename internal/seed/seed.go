// Package seed loads development fixtures through the provisioning service,
// so seeded data obeys the same invariants as data created through the API.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/organizations"
	"github.com/wolfeidau/taskboard/internal/store"
	"gopkg.in/yaml.v3"
)

// Fixture is the seed file format.
type Fixture struct {
	Users []User `yaml:"users" json:"users"`
}

// User is an identity provider user and the organizations they own or join.
type User struct {
	ID            string   `yaml:"id" json:"id"`
	Email         string   `yaml:"email" json:"email"`
	Name          string   `yaml:"name" json:"name"`
	Organizations []string `yaml:"organizations" json:"organizations"`
	MemberOf      []string `yaml:"memberOf" json:"memberOf"`
}

// Load reads a fixture from a YAML or JSON file, chosen by extension.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var fixture Fixture
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := json.Unmarshal(data, &fixture); err != nil {
			return nil, fmt.Errorf("failed to parse JSON seed: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &fixture); err != nil {
			return nil, fmt.Errorf("failed to parse YAML seed: %w", err)
		}
	}

	return &fixture, nil
}

// Result counts what Apply wrote.
type Result struct {
	Profiles      int
	Organizations int
	Memberships   int
}

// Seeder applies fixtures.
type Seeder struct {
	Resolver      *identity.ProfileResolver
	Service       *organizations.Service
	Organizations store.OrganizationStore
	Memberships   store.MembershipStore
}

// Apply creates the fixture's profiles, organizations and memberships.
// Re-applying the same fixture is a no-op.
func (s *Seeder) Apply(ctx context.Context, fixture *Fixture) (Result, error) {
	var result Result

	profiles := make(map[string]*models.Profile, len(fixture.Users))
	orgIDs := make(map[string]uuid.UUID)

	for _, u := range fixture.Users {
		profile, err := s.Resolver.Resolve(ctx, identity.User{ID: u.ID, Email: u.Email, Name: u.Name})
		if err != nil {
			return result, fmt.Errorf("failed to resolve profile %q: %w", u.ID, err)
		}
		profiles[u.ID] = profile
		result.Profiles++

		for _, name := range u.Organizations {
			orgID, created, err := s.ensureOrganization(ctx, name, profile.ProfileID)
			if err != nil {
				return result, err
			}
			orgIDs[strings.ToLower(strings.TrimSpace(name))] = orgID
			if created {
				result.Organizations++
			}
		}
	}

	for _, u := range fixture.Users {
		for _, name := range u.MemberOf {
			orgID, ok := orgIDs[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return result, fmt.Errorf("user %q is a member of unknown organization %q", u.ID, name)
			}

			err := s.Memberships.Create(ctx, &models.Membership{
				OrgID:     orgID,
				UserID:    profiles[u.ID].ProfileID,
				Role:      models.RoleMember,
				CreatedAt: time.Now(),
			})
			switch {
			case err == nil:
				result.Memberships++
			case errors.Is(err, store.ErrMembershipAlreadyExists):
			default:
				return result, fmt.Errorf("failed to add %q to %q: %w", u.ID, name, err)
			}
		}
	}

	log.Info().
		Int("profiles", result.Profiles).
		Int("organizations", result.Organizations).
		Int("memberships", result.Memberships).
		Msg("Seed applied")

	return result, nil
}

// ensureOrganization creates name for owner, or finds the one owner already has.
func (s *Seeder) ensureOrganization(ctx context.Context, name string, owner uuid.UUID) (uuid.UUID, bool, error) {
	orgID, err := s.Service.Create(ctx, name, owner)
	if err == nil {
		return orgID, true, nil
	}
	if !errors.Is(err, organizations.ErrUniqueness) {
		return uuid.Nil, false, fmt.Errorf("failed to create organization %q: %w", name, err)
	}

	owned, lerr := s.Organizations.ListByOwner(ctx, owner)
	if lerr != nil {
		return uuid.Nil, false, fmt.Errorf("failed to list organizations of %s: %w", owner, lerr)
	}
	for _, org := range owned {
		if strings.EqualFold(org.Name, strings.TrimSpace(name)) {
			return org.OrgID, false, nil
		}
	}

	// taken by someone else
	return uuid.Nil, false, err
}
