package circuitbreaker

import (
	"strconv"
	"sync"
	"time"

	"github.com/vyrodovalexey/avsvcgw/internal/observability"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and calls are admitted.
	StateClosed State = iota

	// StateOpen indicates the circuit is open and calls are rejected.
	StateOpen

	// StateHalfOpen indicates a single trial call is probing the backend.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state as its string form.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// Breaker tracks the failure streak of one backend service and decides
// whether calls to it are currently admissible.
//
// The streak is a run of consecutive failures, not a count over a time
// window: any success while Closed resets it to zero.
type Breaker struct {
	service string
	config  *Config
	logger  observability.Logger

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	lastFailureAt       time.Time
	nextRetryAt         time.Time
	trialInFlight       bool
}

// Snapshot is a point-in-time view of a breaker, safe to serialize.
type Snapshot struct {
	Service             string    `json:"service"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastFailureAt       time.Time `json:"lastFailureAt,omitzero"`
	NextRetryAt         time.Time `json:"nextRetryAt,omitzero"`
}

// New creates a breaker for a service in the Closed state.
func New(service string, config *Config, logger observability.Logger) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()

	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Breaker{
		service: service,
		config:  config,
		logger:  logger,
		state:   StateClosed,
	}
}

// Allow reports whether a call may proceed. In Open state the first call
// at or after nextRetryAt flips the breaker to HalfOpen and is admitted
// as the trial; every other call is rejected until the trial outcome is
// recorded. A trial that never reports an outcome frees the slot after
// another cooldown.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	var allowed bool

	switch b.state {
	case StateClosed:
		allowed = true

	case StateOpen:
		if !now.Before(b.nextRetryAt) {
			b.transitionTo(StateHalfOpen)
			b.trialInFlight = true
			b.nextRetryAt = now.Add(b.config.Cooldown)
			allowed = true
		}

	case StateHalfOpen:
		if !b.trialInFlight || !now.Before(b.nextRetryAt) {
			b.trialInFlight = true
			b.nextRetryAt = now.Add(b.config.Cooldown)
			allowed = true
		}
	}

	RecordRequest(b.service, allowed)

	return allowed
}

// RecordSuccess records a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	RecordSuccess(b.service)

	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0

	case StateHalfOpen:
		b.consecutiveFailures = 0
		b.transitionTo(StateClosed)

	case StateOpen:
		// Late result from a call admitted before the breaker opened.
		// The cooldown clock owns the exit from Open.
	}
}

// RecordFailure records a failed call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	RecordFailure(b.service)

	now := time.Now()
	b.consecutiveFailures++
	b.lastFailureAt = now

	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.config.Threshold {
			b.transitionTo(StateOpen)
			b.nextRetryAt = now.Add(b.config.Cooldown)
		}

	case StateHalfOpen:
		// The trial failed; reopen with a fresh cooldown.
		b.transitionTo(StateOpen)
		b.nextRetryAt = now.Add(b.config.Cooldown)

	case StateOpen:
		// Late result; the breaker is already open.
	}
}

// transitionTo moves the breaker to a new state. Callers must hold b.mu.
func (b *Breaker) transitionTo(to State) {
	from := b.state
	if from == to {
		return
	}

	b.state = to
	b.trialInFlight = false
	if to == StateClosed {
		b.nextRetryAt = time.Time{}
	}

	RecordStateChange(b.service, from, to)

	b.logger.Info("circuit breaker state changed",
		observability.String("service", b.service),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)

	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(b.service, from, to)
	}
}

// State returns the current state of the breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Service returns the service name the breaker guards.
func (b *Breaker) Service() string {
	return b.service
}

// NextRetryAt returns when an open breaker will next admit a trial call.
// The zero time means the breaker is not waiting on a cooldown.
func (b *Breaker) NextRetryAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextRetryAt
}

// Snapshot returns a point-in-time view of the breaker.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		Service:             b.service,
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailureAt:       b.lastFailureAt,
		NextRetryAt:         b.nextRetryAt,
	}
}

// Reset forces the breaker back to Closed and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		b.transitionTo(StateClosed)
	}
	b.consecutiveFailures = 0
	b.lastFailureAt = time.Time{}
	b.nextRetryAt = time.Time{}
	b.trialInFlight = false

	b.logger.Info("circuit breaker reset",
		observability.String("service", b.service),
	)
}
