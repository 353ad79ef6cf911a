// Package identity tracks who is acting: the identity provider's user, the
// local profile created for them and the session they signed in with.
package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/taskboard/internal/models"
)

// User is the identity provider's view of a signed-in user. ID is the
// provider's opaque user id (the JWT subject).
type User struct {
	ID    string
	Email string
	Name  string
}

// Session is the signed-in session backing a User.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the session has expired at now. A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Context is a snapshot of the current identity. Ready is false until the
// provider has finished its initial load; a ready context may still be
// signed out.
type Context struct {
	User    *User
	Profile *models.Profile
	Session *Session
	Ready   bool
}

// Complete reports whether the context identifies a signed-in user whose
// profile belongs to them.
func (c Context) Complete() bool {
	if c.User == nil || c.Profile == nil || c.Session == nil {
		return false
	}
	return c.User.ID != "" && c.Profile.ExternalUID == c.User.ID
}

// ProfileID returns the acting profile's id, or uuid.Nil when the context is incomplete.
func (c Context) ProfileID() uuid.UUID {
	if !c.Complete() {
		return uuid.Nil
	}
	return c.Profile.ProfileID
}

type contextKey int

const identityContextKey contextKey = iota

// WithContext returns a copy of ctx carrying id.
func WithContext(ctx context.Context, id Context) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// FromContext returns the identity stored on ctx, and false if there is none.
func FromContext(ctx context.Context) (Context, bool) {
	id, ok := ctx.Value(identityContextKey).(Context)
	return id, ok
}
