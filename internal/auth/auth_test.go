package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/models"
)

var testConfig = VerifierConfig{
	Secret:   []byte("0123456789abcdef0123456789abcdef"),
	Issuer:   "https://auth.example.com",
	Audience: "authenticated",
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(testConfig)
	require.NoError(t, err)
	return v
}

func TestNewVerifier(t *testing.T) {
	t.Run("short secret", func(t *testing.T) {
		_, err := NewVerifier(VerifierConfig{Secret: []byte("short")})
		require.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		v := newTestVerifier(t)
		require.Equal(t, 30*time.Second, v.cfg.Leeway)
	})
}

func TestVerifier_Verify(t *testing.T) {
	v := newTestVerifier(t)

	t.Run("valid token", func(t *testing.T) {
		token, err := IssueToken(testConfig, identity.User{ID: "user-1", Email: "jane@example.com", Name: "Jane"}, time.Hour)
		require.NoError(t, err)

		user, session, err := v.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "user-1", user.ID)
		require.Equal(t, "jane@example.com", user.Email)
		require.Equal(t, "Jane", user.Name)
		require.Equal(t, token, session.AccessToken)
		require.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := IssueToken(testConfig, identity.User{ID: "user-1"}, -time.Hour)
		require.NoError(t, err)

		_, _, err = v.Verify(token)
		require.ErrorIs(t, err, ErrUnauthenticated)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := testConfig
		other.Secret = []byte("ffffffffffffffffffffffffffffffff")
		token, err := IssueToken(other, identity.User{ID: "user-1"}, time.Hour)
		require.NoError(t, err)

		_, _, err = v.Verify(token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := testConfig
		other.Issuer = "https://evil.example.com"
		token, err := IssueToken(other, identity.User{ID: "user-1"}, time.Hour)
		require.NoError(t, err)

		_, _, err = v.Verify(token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := IssueToken(testConfig, identity.User{}, time.Hour)
		require.NoError(t, err)

		_, _, err = v.Verify(token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "user-1",
			Issuer:   testConfig.Issuer,
			Audience: jwt.ClaimStrings{testConfig.Audience},
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testConfig.Secret)
		require.NoError(t, err)

		_, _, err = v.Verify(token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, _, err = v.Verify(token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

type fakeResolver struct {
	err error
}

func (r fakeResolver) Resolve(_ context.Context, user identity.User) (*models.Profile, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &models.Profile{ProfileID: uuid.New(), ExternalUID: user.ID, Email: user.Email}, nil
}

func TestMiddleware(t *testing.T) {
	v := newTestVerifier(t)
	token, err := IssueToken(testConfig, identity.User{ID: "user-1"}, time.Hour)
	require.NoError(t, err)

	var got identity.Context
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		header   string
		resolver ProfileResolver
		status   int
	}{
		{name: "valid token", header: "Bearer " + token, resolver: fakeResolver{}, status: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer " + token, resolver: fakeResolver{}, status: http.StatusNoContent},
		{name: "missing header", header: "", resolver: fakeResolver{}, status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, resolver: fakeResolver{}, status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", resolver: fakeResolver{}, status: http.StatusUnauthorized},
		{name: "profile unavailable", header: "Bearer " + token, resolver: fakeResolver{err: errors.New("db down")}, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = identity.Context{}
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Middleware(v, tt.resolver)(next).ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.True(t, got.Complete())
				require.Equal(t, "user-1", got.User.ID)
			} else {
				require.False(t, got.Complete())
				require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
			}
		})
	}
}
