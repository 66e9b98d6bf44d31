package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings are the per-client tuning knobs that live outside the backend
// definition: networking, retry, and rate-limit overrides.
type Settings struct {
	// Timeout is the maximum duration of one HTTP exchange.
	Timeout time.Duration `json:"timeout" validate:"min=1ms"`

	// MaxRetries bounds transport-level retries of network failures.
	// Backend-reported errors are never retried by the transport.
	MaxRetries   int           `json:"max_retries" validate:"min=0"`
	RetryWaitMin time.Duration `json:"retry_wait_min" validate:"min=0"`
	RetryWaitMax time.Duration `json:"retry_wait_max" validate:"min=0"`

	// RateLimit overrides the definition's request interval when non-zero.
	RateLimit time.Duration `json:"rate_limit" validate:"min=0"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultSettings returns Settings with the defaults every client starts
// from: 10s timeout, 3 network retries between 100ms and 1s, the backend's
// own rate limit, info logging.
func DefaultSettings() *Settings {
	return &Settings{
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 1 * time.Second,
		LogLevel:     "info",
	}
}

var validate = validator.New()

// Validate checks the settings against their constraints.
func (s *Settings) Validate() error {
	return validate.Struct(s)
}

// WithTimeout sets the request timeout and returns the settings for chaining.
func (s *Settings) WithTimeout(timeout time.Duration) *Settings {
	s.Timeout = timeout
	return s
}

// WithRetry configures the network retry policy and returns the settings for
// chaining.
func (s *Settings) WithRetry(count int, waitMin, waitMax time.Duration) *Settings {
	s.MaxRetries = count
	s.RetryWaitMin = waitMin
	s.RetryWaitMax = waitMax
	return s
}

// WithRateLimit overrides the backend's request interval and returns the
// settings for chaining.
func (s *Settings) WithRateLimit(interval time.Duration) *Settings {
	s.RateLimit = interval
	return s
}
