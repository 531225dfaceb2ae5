package executor

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff computes the wait between retry attempts.
type Backoff interface {
	// Next returns the duration to wait before retrying after the given
	// zero-indexed attempt.
	Next(attempt int) time.Duration
}

// BackoffConfig tunes the exponential backoff between attempts.
type BackoffConfig struct {
	// Initial is the delay before the first retry.
	Initial time.Duration

	// Max caps the delay between retries.
	Max time.Duration

	// Factor is the exponential growth factor.
	Factor float64

	// Jitter is the random fraction (0..1) applied to each delay. Zero
	// keeps delays exactly Initial * Factor^attempt.
	Jitter float64
}

// DefaultBackoffConfig returns the gateway defaults: 1s doubling, capped
// at 30s, no jitter, so inter-attempt delays are exactly 2^attempt seconds.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial: time.Second,
		Max:     30 * time.Second,
		Factor:  2.0,
	}
}

// normalize clamps unset or invalid fields to defaults.
func (c *BackoffConfig) normalize() {
	def := DefaultBackoffConfig()
	if c.Initial <= 0 {
		c.Initial = def.Initial
	}
	if c.Max <= 0 {
		c.Max = def.Max
	}
	if c.Factor <= 0 {
		c.Factor = def.Factor
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		c.Jitter = 0
	}
}

// ExponentialBackoff implements exponential backoff with optional jitter.
type ExponentialBackoff struct {
	initial time.Duration
	max     time.Duration
	factor  float64
	jitter  float64

	mu   sync.Mutex
	rand *rand.Rand
}

// NewExponentialBackoff creates an exponential backoff from a config.
func NewExponentialBackoff(cfg BackoffConfig) *ExponentialBackoff {
	cfg.normalize()
	return &ExponentialBackoff{
		initial: cfg.Initial,
		max:     cfg.Max,
		factor:  cfg.Factor,
		jitter:  cfg.Jitter,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter, not crypto
	}
}

// Next implements Backoff.
func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	backoff := float64(b.initial) * math.Pow(b.factor, float64(attempt))
	if backoff > float64(b.max) {
		backoff = float64(b.max)
	}

	if b.jitter > 0 {
		b.mu.Lock()
		jitterRange := backoff * b.jitter
		backoff += (b.rand.Float64() * 2 * jitterRange) - jitterRange
		b.mu.Unlock()
	}

	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}
