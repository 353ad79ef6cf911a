package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/taskboard/internal/api"
	"github.com/wolfeidau/taskboard/internal/auth"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/organizations"
	"github.com/wolfeidau/taskboard/internal/store/memory"
)

var authConfig = auth.VerifierConfig{Secret: []byte("0123456789abcdef0123456789abcdef")}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	verifier, err := auth.NewVerifier(authConfig)
	require.NoError(t, err)

	svc := organizations.NewService(memory.NewOrganizationStore(), memory.NewMembershipStore(), organizations.Config{})
	resolver := identity.NewProfileResolver(memory.NewProfileStore(), identity.RetryPolicy{})

	srv := httptest.NewServer(api.NewHandler(svc, auth.Middleware(verifier, resolver)))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, serverURL, user string) *Client {
	t.Helper()
	token, err := auth.IssueToken(authConfig, identity.User{ID: user, Email: user + "@example.com"}, time.Hour)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ServerURL = serverURL + "/"
	cfg.Token = token
	return New(cfg)
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	alice := newClient(t, srv.URL, "alice")
	bob := newClient(t, srv.URL, "bob")

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.ExternalUID)

	orgs, err := alice.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Empty(t, orgs)

	orgID, err := alice.CreateOrganization(ctx, "Acme")
	require.NoError(t, err)

	orgs, err = alice.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, orgID, orgs[0].ID)
	require.Equal(t, "owner", orgs[0].Role)
	require.Equal(t, me.ID, orgs[0].OwnerID)

	allowed, err := alice.CheckAccess(ctx, orgID)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = bob.CheckAccess(ctx, orgID)
	require.NoError(t, err)
	require.False(t, allowed)

	members, err := alice.Members(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, members, 1)

	_, err = bob.Members(ctx, orgID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	_, err = bob.CreateOrganization(ctx, "acme")
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Contains(t, apiErr.Message, "already exists")
}

func TestClient_Unauthorized(t *testing.T) {
	srv := newServer(t)
	c := New(Config{ServerURL: srv.URL, Timeout: 5 * time.Second})

	_, err := c.ListOrganizations(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = c.CheckAccess(context.Background(), uuid.New())
	require.Error(t, err)
}
