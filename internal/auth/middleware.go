package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/models"
)

// ProfileResolver maps a verified user to their local profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, user identity.User) (*models.Profile, error)
}

// Middleware returns an HTTP middleware that verifies the bearer token,
// resolves the profile and stores a complete identity.Context on the request
// context. Missing or invalid tokens get 401; a profile that can't be
// resolved gets 503.
func Middleware(verifier *Verifier, resolver ProfileResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				log.Debug().Msg("Missing Authorization header")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, session, err := verifier.Verify(tokenString)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to verify access token")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := r.Context()

			profile, err := resolver.Resolve(ctx, user)
			if err != nil {
				log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to resolve profile")
				writeError(w, http.StatusServiceUnavailable, "could not load your profile, try again")
				return
			}

			ctx = identity.WithContext(ctx, identity.Context{
				User:    &user,
				Profile: profile,
				Session: &session,
				Ready:   true,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the JWT from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
