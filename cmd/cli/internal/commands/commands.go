package commands

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/client"
	"github.com/wolfeidau/taskboard/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string
}

// ClientFlags locate the API and carry the caller's access token.
type ClientFlags struct {
	Server  string        `help:"API server URL" default:"http://localhost:8080" env:"TASKBOARD_SERVER"`
	Token   string        `help:"bearer access token" env:"TASKBOARD_TOKEN"`
	Timeout time.Duration `help:"request timeout" default:"30s"`
}

func (c *ClientFlags) Validate() error {
	if c.Token == "" {
		return errors.New("an access token is required, set --token or TASKBOARD_TOKEN")
	}
	return nil
}

func (c *ClientFlags) client(globals *Globals) *client.Client {
	log.Logger = logger.Setup(globals.Debug)

	cfg := client.DefaultConfig()
	cfg.ServerURL = c.Server
	cfg.Token = c.Token
	cfg.Timeout = c.Timeout
	cfg.Debug = globals.Debug

	log.Debug().Str("server", cfg.ServerURL).Dur("timeout", cfg.Timeout).Msg("Created API client")

	return client.New(cfg)
}
