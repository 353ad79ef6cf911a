package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfeidau/taskboard/internal/identity"
)

// IssueToken signs an access token for user the way the identity provider
// would. It is used by the CLI in development and by tests.
func IssueToken(cfg VerifierConfig, user identity.User, ttl time.Duration) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    cfg.Issuer,
		},
		Email:        user.Email,
		UserMetadata: UserMetadata{FullName: user.Name},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}
