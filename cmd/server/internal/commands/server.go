package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/api"
	"github.com/wolfeidau/taskboard/internal/auth"
	httpmiddleware "github.com/wolfeidau/taskboard/internal/http"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/logger"
	"github.com/wolfeidau/taskboard/internal/reporting"
	"github.com/wolfeidau/taskboard/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"TASKBOARD_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"TASKBOARD_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"TASKBOARD_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:5173" env:"TASKBOARD_CORS_ORIGINS"`
	TrustProxy  bool     `help:"use X-Forwarded-For/X-Real-IP for client addresses" default:"false" env:"TASKBOARD_TRUST_PROXY"`
	MaxBody     int64    `help:"maximum request body size in bytes" default:"65536" env:"TASKBOARD_MAX_BODY"`

	// Operational modes
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"TASKBOARD_TRACING"`
	SampleRatio float64 `help:"fraction of traces sampled" default:"1" env:"TASKBOARD_TRACE_SAMPLE_RATIO"`

	// Error reporting
	SentryDSN   string `help:"Sentry DSN, reporting is disabled when empty" default:"" env:"TASKBOARD_SENTRY_DSN"`
	Environment string `help:"deployment environment reported to Sentry" default:"development" env:"TASKBOARD_ENVIRONMENT"`

	Store        StoreFlags        `embed:""`
	Auth         AuthFlags         `embed:""`
	Retry        RetryFlags        `embed:"" prefix:"profile-"`
	Provisioning ProvisioningFlags `embed:""`
}

func (c *ServerCmd) Validate() error {
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS requires both --cert and --key")
	}
	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "taskboard-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	reporter, flush, err := reporting.NewSentry(reporting.Config{
		DSN:         c.SentryDSN,
		Environment: c.Environment,
		Release:     globals.Version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize error reporting: %w", err)
	}
	defer flush()

	st, err := openStores(ctx, c.Store)
	if err != nil {
		return err
	}
	defer st.close()

	verifier, err := auth.NewVerifier(c.Auth.verifierConfig())
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	resolver := identity.NewProfileResolver(st.profiles, c.Retry.policy())
	svc := st.service(c.Provisioning, reporter)

	handler, err := c.buildHandler(api.NewHandler(svc, auth.Middleware(verifier, resolver)), reporter)
	if err != nil {
		return err
	}

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Bool("tls", c.Cert != "").Msg("Starting HTTP server")
		if c.Cert != "" {
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// buildHandler wraps the API with the shared middleware. Cross-origin
// browsers are limited to the CORS origins, and unsafe requests from other
// origins are rejected.
func (c *ServerCmd) buildHandler(apiHandler http.Handler, reporter reporting.Reporter) (http.Handler, error) {
	protection := csrf.New()
	for _, origin := range c.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid CORS origin %q: %w", origin, err)
		}
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   c.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	requests := logger.NewHTTPRequests(log.Logger, func(r *http.Request) string {
		return httpmiddleware.ClientIPFromContext(r.Context())
	})

	handler := httpmiddleware.Chain(apiHandler,
		httpmiddleware.ClientIPMiddleware(c.TrustProxy),
		requests.Middleware,
		reporting.Middleware(reporter),
		corsMiddleware.Handler,
		protection.Handler,
		httpmiddleware.MaxBodyMiddleware(c.MaxBody),
	)

	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "taskboard")
	}

	return handler, nil
}
