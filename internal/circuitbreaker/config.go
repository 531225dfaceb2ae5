// Package circuitbreaker implements per-service circuit breakers that
// shield the gateway from backends that keep failing.
//
// Each backend service gets one breaker, created lazily on first use and
// kept for the life of the process. A breaker counts consecutive failures
// while Closed; reaching the threshold opens it. An Open breaker rejects
// calls without network I/O until the cooldown elapses, then admits a
// single trial call in HalfOpen state. The trial outcome decides between
// closing the breaker and reopening it with a fresh cooldown.
package circuitbreaker

import "time"

// Defaults applied when a Config field is unset.
const (
	// DefaultThreshold is the consecutive-failure count that opens a breaker.
	DefaultThreshold = 5

	// DefaultCooldown is how long an open breaker rejects calls before
	// admitting a half-open trial.
	DefaultCooldown = 30 * time.Second
)

// Config holds tuning for a circuit breaker.
type Config struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int

	// Cooldown is how long the breaker stays open before the next call
	// is admitted as a half-open trial.
	Cooldown time.Duration

	// OnStateChange is called asynchronously when the breaker changes state.
	OnStateChange func(service string, from, to State)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Threshold: DefaultThreshold,
		Cooldown:  DefaultCooldown,
	}
}

// normalize clamps unset or invalid fields to defaults.
func (c *Config) normalize() {
	if c.Threshold < 1 {
		c.Threshold = DefaultThreshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
}
