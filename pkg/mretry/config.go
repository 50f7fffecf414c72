// Package mretry provides a small, validated configuration for bounded
// retry-with-backoff loops, shared by the idempotency lease acquisition and
// any other best-effort retry path in the service.
package mretry

import (
	"fmt"
	"time"
)

const (
	// DefaultMaxRetries is the default retry ceiling for a generic retry loop.
	DefaultMaxRetries = 10
	// DefaultInitialBackoff is the default first-attempt backoff.
	DefaultInitialBackoff = 1 * time.Second
	// DefaultMaxBackoff is the default backoff ceiling.
	DefaultMaxBackoff = 30 * time.Minute
	// DefaultJitterFactor is the default proportion of jitter applied to backoff.
	DefaultJitterFactor = 0.25

	// LeaseRetryInterval is the spacing between idempotency-lease acquire attempts.
	LeaseRetryInterval = 100 * time.Millisecond
	// LeaseMaxRetries caps the idempotency-lease acquire loop at roughly 5s total.
	LeaseMaxRetries = 50
)

// Config describes a bounded exponential-ish backoff retry policy.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFactor   float64
}

// DefaultMetadataOutboxConfig returns the package-default retry policy.
func DefaultMetadataOutboxConfig() Config {
	return Config{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		JitterFactor:   DefaultJitterFactor,
	}
}

// DefaultLeaseRetryConfig returns the retry policy for the tier-2 idempotency
// lease: fixed 100ms spacing, up to 50 attempts, no backoff growth and no
// jitter, per the bounded ~5s acquisition budget.
func DefaultLeaseRetryConfig() Config {
	return Config{
		MaxRetries:     LeaseMaxRetries,
		InitialBackoff: LeaseRetryInterval,
		MaxBackoff:     LeaseRetryInterval,
		JitterFactor:   0,
	}
}

// WithMaxRetries returns a copy of cfg with MaxRetries set to n.
func (cfg Config) WithMaxRetries(n int) Config {
	cfg.MaxRetries = n
	return cfg
}

// WithInitialBackoff returns a copy of cfg with InitialBackoff set to d.
func (cfg Config) WithInitialBackoff(d time.Duration) Config {
	cfg.InitialBackoff = d
	return cfg
}

// WithMaxBackoff returns a copy of cfg with MaxBackoff set to d.
func (cfg Config) WithMaxBackoff(d time.Duration) Config {
	cfg.MaxBackoff = d
	return cfg
}

// WithJitterFactor returns a copy of cfg with JitterFactor set to f.
func (cfg Config) WithJitterFactor(f float64) Config {
	cfg.JitterFactor = f
	return cfg
}

// ConfigValidationError reports a single invalid field on a Config.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("mretry: invalid %s: %s", e.Field, e.Message)
}

// Validate reports the first invalid field found in cfg, if any.
func (cfg Config) Validate() error {
	if cfg.MaxRetries < 1 {
		return ConfigValidationError{Field: "MaxRetries", Message: "must be >= 1"}
	}

	if cfg.InitialBackoff <= 0 {
		return ConfigValidationError{Field: "InitialBackoff", Message: "must be > 0"}
	}

	if cfg.MaxBackoff <= 0 {
		return ConfigValidationError{Field: "MaxBackoff", Message: "must be > 0"}
	}

	if cfg.MaxBackoff < cfg.InitialBackoff {
		return ConfigValidationError{Field: "MaxBackoff", Message: "must be >= InitialBackoff"}
	}

	if cfg.JitterFactor < 0.0 || cfg.JitterFactor > 1.0 {
		return ConfigValidationError{Field: "JitterFactor", Message: "must be in range [0.0, 1.0]"}
	}

	return nil
}
