package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/auth"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/organizations"
	"github.com/wolfeidau/taskboard/internal/reporting"
	"github.com/wolfeidau/taskboard/internal/store"
	memorystore "github.com/wolfeidau/taskboard/internal/store/memory"
	postgresstore "github.com/wolfeidau/taskboard/internal/store/postgres"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// StoreFlags selects and configures the store backend.
type StoreFlags struct {
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"TASKBOARD_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (s *StoreFlags) Validate() error {
	if s.StoreType == "postgres" {
		return s.PostgresStore.Validate()
	}
	return nil
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`
	ConnectTimeout  time.Duration `help:"connection timeout" default:"10s"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"TASKBOARD_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	if s.MinConns > s.MaxConns {
		return fmt.Errorf("--postgres-min-conns (%d) must not exceed --postgres-max-conns (%d)", s.MinConns, s.MaxConns)
	}
	return nil
}

// AuthFlags configures access token verification.
type AuthFlags struct {
	JWTSecret   string        `help:"HS256 secret shared with the identity provider" env:"TASKBOARD_JWT_SECRET"`
	JWTIssuer   string        `help:"expected token issuer" default:"" env:"TASKBOARD_JWT_ISSUER"`
	JWTAudience string        `help:"expected token audience" default:"authenticated" env:"TASKBOARD_JWT_AUDIENCE"`
	JWTLeeway   time.Duration `help:"allowed clock skew" default:"30s" env:"TASKBOARD_JWT_LEEWAY"`
}

func (a *AuthFlags) Validate() error {
	if a.JWTSecret == "" {
		return errors.New("JWT secret is required (--jwt-secret or TASKBOARD_JWT_SECRET)")
	}
	cfg := a.verifierConfig()
	return cfg.Validate()
}

func (a *AuthFlags) verifierConfig() auth.VerifierConfig {
	return auth.VerifierConfig{
		Secret:   []byte(a.JWTSecret),
		Issuer:   a.JWTIssuer,
		Audience: a.JWTAudience,
		Leeway:   a.JWTLeeway,
	}
}

// RetryFlags configures profile lookup retries.
type RetryFlags struct {
	MaxAttempts       int           `help:"attempts to load or create a profile" default:"3" env:"TASKBOARD_PROFILE_RETRY_ATTEMPTS"`
	InitialDelay      time.Duration `help:"delay before the first retry" default:"200ms" env:"TASKBOARD_PROFILE_RETRY_DELAY"`
	BackoffMultiplier float64       `help:"delay multiplier between retries" default:"2" env:"TASKBOARD_PROFILE_RETRY_MULTIPLIER"`
}

func (r *RetryFlags) Validate() error {
	if r.MaxAttempts < 1 {
		return errors.New("--max-attempts must be at least 1")
	}
	if r.BackoffMultiplier < 1 {
		return errors.New("--backoff-multiplier must be at least 1")
	}
	return nil
}

func (r *RetryFlags) policy() identity.RetryPolicy {
	return identity.RetryPolicy{
		MaxAttempts:       r.MaxAttempts,
		InitialDelay:      r.InitialDelay,
		BackoffMultiplier: r.BackoffMultiplier,
	}
}

// ProvisioningFlags configures the organization service.
type ProvisioningFlags struct {
	LenientRoles        bool          `help:"treat memberships without a role as members" default:"false" env:"TASKBOARD_LENIENT_ROLES"`
	CompensationTimeout time.Duration `help:"timeout for the compensating delete after a failed owner membership" default:"5s" env:"TASKBOARD_COMPENSATION_TIMEOUT"`
}

// stores bundles the store implementations selected by StoreFlags.
type stores struct {
	organizations store.OrganizationStore
	memberships   store.MembershipStore
	profiles      store.ProfileStore
	provisioner   store.OrganizationProvisioner
	close         func()
}

func openStores(ctx context.Context, flags StoreFlags) (*stores, error) {
	switch flags.StoreType {
	case "postgres":
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      flags.PostgresStore.ConnString,
			MaxConns:        flags.PostgresStore.MaxConns,
			MinConns:        flags.PostgresStore.MinConns,
			MaxConnLifetime: flags.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: flags.PostgresStore.MaxConnIdleTime,
			ConnectTimeout:  flags.PostgresStore.ConnectTimeout,
			AutoMigrate:     flags.PostgresStore.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

		return &stores{
			organizations: postgresstore.NewOrganizationStore(pool),
			memberships:   postgresstore.NewMembershipStore(pool),
			profiles:      postgresstore.NewProfileStore(pool),
			provisioner:   postgresstore.NewProvisioningStore(pool),
			close:         pool.Close,
		}, nil

	default:
		log.Info().Msg("Using in-memory stores")

		orgs := memorystore.NewOrganizationStore()
		profiles := memorystore.NewProfileStore()

		return &stores{
			organizations: orgs,
			memberships:   memorystore.NewMembershipStore().WithReferences(orgs, profiles),
			profiles:      profiles,
			close:         func() {},
		}, nil
	}
}

func (s *stores) service(flags ProvisioningFlags, reporter reporting.Reporter) *organizations.Service {
	return organizations.NewService(s.organizations, s.memberships, organizations.Config{
		Provisioner:         s.provisioner,
		Reporter:            reporter,
		LenientRoles:        flags.LenientRoles,
		CompensationTimeout: flags.CompensationTimeout,
	})
}
