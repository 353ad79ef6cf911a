package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/organizations"
	"github.com/wolfeidau/taskboard/internal/store/memory"
)

func newSeeder() *Seeder {
	orgs := memory.NewOrganizationStore()
	memberships := memory.NewMembershipStore()
	return &Seeder{
		Resolver:      identity.NewProfileResolver(memory.NewProfileStore(), identity.RetryPolicy{}),
		Service:       organizations.NewService(orgs, memberships, organizations.Config{}),
		Organizations: orgs,
		Memberships:   memberships,
	}
}

func TestLoad(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		f, err := Load("testdata/seed.yaml")
		require.NoError(t, err)
		require.Len(t, f.Users, 2)
		require.Equal(t, []string{"Acme", "Globex"}, f.Users[0].Organizations)
		require.Equal(t, []string{"acme"}, f.Users[1].MemberOf)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"users":[{"id":"u1","organizations":["Acme"]}]}`), 0o600))

		f, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "u1", f.Users[0].ID)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestSeeder_Apply(t *testing.T) {
	ctx := context.Background()
	s := newSeeder()

	f, err := Load("testdata/seed.yaml")
	require.NoError(t, err)

	res, err := s.Apply(ctx, f)
	require.NoError(t, err)
	require.Equal(t, Result{Profiles: 2, Organizations: 2, Memberships: 1}, res)

	bob, err := s.Resolver.Resolve(ctx, identity.User{ID: "auth0|bob"})
	require.NoError(t, err)

	orgs, err := s.Service.FetchForUser(ctx, bob.ProfileID)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, "Acme", orgs[0].Name)
	require.Equal(t, models.RoleMember, orgs[0].Role)

	t.Run("reapply is a no-op", func(t *testing.T) {
		res, err := s.Apply(ctx, f)
		require.NoError(t, err)
		require.Equal(t, Result{Profiles: 2}, res)
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := s.Apply(ctx, &Fixture{Users: []User{{ID: "u3", MemberOf: []string{"Initech"}}}})
		require.Error(t, err)
	})

	t.Run("name owned by someone else", func(t *testing.T) {
		_, err := s.Apply(ctx, &Fixture{Users: []User{{ID: "u4", Organizations: []string{"Acme"}}}})
		require.ErrorIs(t, err, organizations.ErrUniqueness)
	})
}
