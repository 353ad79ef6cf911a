package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/taskboard"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Provisioning metrics
	OrganizationsCreatedTotal metric.Int64Counter
	ProvisioningFailuresTotal metric.Int64Counter
	CompensationsTotal        metric.Int64Counter

	// Read metrics
	FetchDuration    metric.Float64Histogram
	FetchErrorsTotal metric.Int64Counter
	AccessChecks     metric.Int64Counter

	// Identity metrics
	ProfilesCreatedTotal   metric.Int64Counter
	ProfileResolveAttempts metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments are bound to whatever meter provider is global at first use; without
// InitTelemetry that is the no-op provider.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.OrganizationsCreatedTotal, _ = meter.Int64Counter(
		"taskboard.organizations.created.total",
		metric.WithDescription("Total number of organizations provisioned with an owner"),
		metric.WithUnit("{organization}"),
	)

	m.ProvisioningFailuresTotal, _ = meter.Int64Counter(
		"taskboard.organizations.provisioning.failures.total",
		metric.WithDescription("Total number of failed provisioning attempts by error kind"),
		metric.WithUnit("{error}"),
	)

	m.CompensationsTotal, _ = meter.Int64Counter(
		"taskboard.organizations.compensations.total",
		metric.WithDescription("Compensating organization deletes by outcome"),
		metric.WithUnit("{delete}"),
	)

	m.FetchDuration, _ = meter.Float64Histogram(
		"taskboard.organizations.fetch.duration",
		metric.WithDescription("Duration of fetching a profile's organizations"),
		metric.WithUnit("ms"),
	)

	m.FetchErrorsTotal, _ = meter.Int64Counter(
		"taskboard.organizations.fetch.errors.total",
		metric.WithDescription("Total number of failed organization fetches"),
		metric.WithUnit("{error}"),
	)

	m.AccessChecks, _ = meter.Int64Counter(
		"taskboard.organizations.access_checks.total",
		metric.WithDescription("Organization access checks by result"),
		metric.WithUnit("{check}"),
	)

	m.ProfilesCreatedTotal, _ = meter.Int64Counter(
		"taskboard.profiles.created.total",
		metric.WithDescription("Total number of profiles created on first sign-in"),
		metric.WithUnit("{profile}"),
	)

	m.ProfileResolveAttempts, _ = meter.Int64Counter(
		"taskboard.profiles.resolve.attempts.total",
		metric.WithDescription("Profile resolution attempts including retries"),
		metric.WithUnit("{attempt}"),
	)

	return m
}
