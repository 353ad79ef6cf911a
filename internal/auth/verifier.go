// Package auth verifies access tokens issued by the identity provider and
// attaches the acting identity to requests.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfeidau/taskboard/internal/identity"
)

const minSecretLength = 32

// ErrUnauthenticated is returned when a token is missing or fails verification.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims are the access token claims used by this service.
type Claims struct {
	jwt.RegisteredClaims

	Email        string       `json:"email,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata,omitzero"`
}

// UserMetadata is the free-form profile data the identity provider keeps for a user.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Name     string `json:"name,omitempty"`
}

// VerifierConfig configures token verification.
type VerifierConfig struct {
	// Secret is the HS256 signing secret shared with the identity provider.
	Secret []byte

	// Issuer and Audience are checked when set.
	Issuer   string
	Audience string

	// Leeway allows for clock skew on exp/nbf/iat.
	// Default: 30s
	Leeway time.Duration
}

// Validate checks the configuration.
func (c *VerifierConfig) Validate() error {
	if len(c.Secret) < minSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes", minSecretLength)
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *VerifierConfig) ApplyDefaults() {
	if c.Leeway == 0 {
		c.Leeway = 30 * time.Second
	}
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	cfg    VerifierConfig
	parser *jwt.Parser
}

// NewVerifier creates a Verifier.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Verify checks tokenString and returns the user and session it represents.
func (v *Verifier) Verify(tokenString string) (identity.User, identity.Session, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	})
	if err != nil {
		return identity.User{}, identity.Session{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return identity.User{}, identity.Session{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return identity.User{}, identity.Session{}, fmt.Errorf("%w: missing sub claim", ErrUnauthenticated)
	}

	user := identity.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.UserMetadata.FullName,
	}
	if user.Name == "" {
		user.Name = claims.UserMetadata.Name
	}

	session := identity.Session{AccessToken: tokenString}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	return user, session, nil
}
