package identity

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds retries of transient profile store failures.
type RetryPolicy struct {
	// MaxAttempts includes the first try.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	// Default: 200ms
	InitialDelay time.Duration

	// BackoffMultiplier scales the delay after each attempt.
	// Default: 2
	BackoffMultiplier float64

	// MaxDelay caps a single wait.
	// Default: 5s
	MaxDelay time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (p *RetryPolicy) ApplyDefaults() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 200 * time.Millisecond
	}
	if p.BackoffMultiplier < 1 {
		p.BackoffMultiplier = 2
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
}

// backOff returns the delay schedule. Delays are not randomized so the
// schedule is predictable: InitialDelay, InitialDelay*BackoffMultiplier, ...
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          p.BackoffMultiplier,
		MaxInterval:         p.MaxDelay,
	}
	b.Reset()
	return b
}
