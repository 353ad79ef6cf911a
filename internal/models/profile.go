package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the local application record for an identity-provider user.
// ProfileID is the identity used everywhere else in the system; ExternalUID
// links the row back to the provider's user id and is unique.
type Profile struct {
	ProfileID   uuid.UUID // UUIDv7
	ExternalUID string    // identity provider user id (supabase_uid)
	Email       string
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
