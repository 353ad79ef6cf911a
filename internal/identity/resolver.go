package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/store"
	"github.com/wolfeidau/taskboard/internal/telemetry"
)

// ErrInvalidUser is returned when a user has no id.
var ErrInvalidUser = errors.New("user has no id")

// ProfileResolver finds the local profile for an identity provider user,
// creating it on first sign-in.
type ProfileResolver struct {
	profiles store.ProfileStore
	policy   RetryPolicy
	metrics  *telemetry.Metrics

	now   func() time.Time
	newID func() (uuid.UUID, error)
}

// NewProfileResolver creates a resolver retrying transient failures per policy.
func NewProfileResolver(profiles store.ProfileStore, policy RetryPolicy) *ProfileResolver {
	policy.ApplyDefaults()
	return &ProfileResolver{
		profiles: profiles,
		policy:   policy,
		metrics:  telemetry.GetMetrics(),
		now:      time.Now,
		newID:    uuid.NewV7,
	}
}

// Resolve returns the profile whose ExternalUID is user.ID. Missing profiles
// are created with the user's email and name. Access denials and invalid
// users are not retried; other store failures are retried per the policy.
func (r *ProfileResolver) Resolve(ctx context.Context, user User) (*models.Profile, error) {
	if strings.TrimSpace(user.ID) == "" {
		return nil, ErrInvalidUser
	}

	attempt := 0
	profile, err := backoff.Retry(ctx, func() (*models.Profile, error) {
		attempt++
		r.metrics.ProfileResolveAttempts.Add(ctx, 1)

		profile, err := r.resolveOnce(ctx, user)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return profile, err
	},
		backoff.WithBackOff(r.policy.backOff()),
		backoff.WithMaxTries(uint(r.policy.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().
				Err(err).
				Str("user_id", user.ID).
				Int("attempt", attempt).
				Dur("retry_in", next).
				Msg("Profile lookup failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile after %d attempt(s): %w", attempt, err)
	}

	return profile, nil
}

func (r *ProfileResolver) resolveOnce(ctx context.Context, user User) (*models.Profile, error) {
	profile, err := r.profiles.GetByExternalUID(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, store.ErrProfileNotFound) {
		return nil, err
	}

	id, err := r.newID()
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to generate profile id: %w", err))
	}

	now := r.now()
	profile = &models.Profile{
		ProfileID:   id,
		ExternalUID: user.ID,
		Email:       user.Email,
		Name:        displayName(user),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = r.profiles.Create(ctx, profile)
	switch {
	case err == nil:
		r.metrics.ProfilesCreatedTotal.Add(ctx, 1)
		log.Info().
			Str("user_id", user.ID).
			Str("profile_id", id.String()).
			Msg("Created profile on first sign-in")
		return profile, nil
	case errors.Is(err, store.ErrProfileAlreadyExists):
		// another sign-in created it first
		return r.profiles.GetByExternalUID(ctx, user.ID)
	default:
		return nil, err
	}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, store.ErrAccessDenied),
		errors.Is(err, ErrInvalidUser),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// displayName falls back to the local part of the email.
func displayName(user User) string {
	if name := strings.TrimSpace(user.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(user.Email, "@")
	return local
}
