package commands

import (
	"fmt"
	"time"

	"github.com/wolfeidau/taskboard/internal/auth"
	"github.com/wolfeidau/taskboard/internal/identity"
)

// TokenCmd prints an access token signed with the configured secret, for
// calling the API without the identity provider during development.
type TokenCmd struct {
	User  string        `arg:"" help:"identity provider user id"`
	Email string        `help:"email claim" default:""`
	Name  string        `help:"display name claim" default:""`
	TTL   time.Duration `help:"token lifetime" default:"1h"`

	Auth AuthFlags `embed:""`
}

func (c *TokenCmd) Run(globals *Globals) error {
	token, err := auth.IssueToken(c.Auth.verifierConfig(), identity.User{ID: c.User, Email: c.Email, Name: c.Name}, c.TTL)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Println(token)
	return nil
}
