// Package reporting forwards degraded-but-recoverable conditions to an error
// tracker. Nothing reported here is surfaced to end users.
package reporting

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/rs/zerolog/log"
)

// Reporter receives errors that operators should look at.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// Nop discards every report.
type Nop struct{}

func (Nop) Report(context.Context, error, map[string]string) {}

// Config configures the Sentry reporter.
type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Sentry reports errors to Sentry through a dedicated hub.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry creates a Sentry reporter. An empty DSN yields a Nop reporter so
// callers don't need to branch on configuration.
func NewSentry(cfg Config) (Reporter, func(), error) {
	if cfg.DSN == "" {
		return Nop{}, func() {}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	})
	if err != nil {
		return nil, nil, err
	}

	hub := sentry.NewHub(client, sentry.NewScope())

	log.Info().Str("environment", cfg.Environment).Msg("Sentry reporting enabled")

	flush := func() {
		hub.Flush(2 * time.Second)
	}

	return &Sentry{hub: hub}, flush, nil
}

// Report captures err with the given tags.
func (s *Sentry) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}

	hub := s.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// Middleware reports panics in HTTP handlers to the hub and answers them
// with a 500.
func (s *Sentry) Middleware(next http.Handler) http.Handler {
	wrapped := sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(next)
	return Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := sentry.SetHubOnContext(r.Context(), s.hub.Clone())
		wrapped.ServeHTTP(w, r.WithContext(ctx))
	}))
}

// Recover turns a handler panic into a 500 JSON error response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			log.Error().Interface("panic", v).Str("method", r.Method).Str("path", r.URL.Path).Msg("Recovered handler panic")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware returns r's reporting middleware when it has one. Either way
// panics are recovered into a 500.
func Middleware(r Reporter) func(http.Handler) http.Handler {
	if s, ok := r.(*Sentry); ok {
		return s.Middleware
	}
	return Recover
}
