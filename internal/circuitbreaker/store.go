package circuitbreaker

import (
	"sort"
	"sync"

	"github.com/vyrodovalexey/avsvcgw/internal/observability"
)

// Store holds one breaker per service name. Breakers are created lazily
// on first use and live for the lifetime of the store; configuration
// reloads replace the whole store rather than mutating breakers.
type Store struct {
	breakers sync.Map
	config   *Config
	logger   observability.Logger
}

// NewStore creates an empty breaker store.
func NewStore(config *Config, logger observability.Logger) *Store {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()

	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Store{
		config: config,
		logger: logger,
	}
}

// Get returns the breaker for a service, or nil when none exists yet.
func (s *Store) Get(service string) *Breaker {
	value, ok := s.breakers.Load(service)
	if !ok {
		return nil
	}
	return value.(*Breaker)
}

// GetOrCreate returns the breaker for a service, creating it on first
// use. Concurrent callers for the same service observe the same instance.
func (s *Store) GetOrCreate(service string) *Breaker {
	if value, ok := s.breakers.Load(service); ok {
		return value.(*Breaker)
	}

	b := New(service, s.config, s.logger)

	actual, loaded := s.breakers.LoadOrStore(service, b)
	if loaded {
		return actual.(*Breaker)
	}

	s.logger.Debug("created circuit breaker",
		observability.String("service", service),
	)

	return b
}

// Names returns the tracked service names in sorted order.
func (s *Store) Names() []string {
	var names []string
	s.breakers.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Snapshots returns a point-in-time view of every breaker keyed by service.
func (s *Store) Snapshots() map[string]Snapshot {
	snapshots := make(map[string]Snapshot)
	s.breakers.Range(func(key, value any) bool {
		snapshots[key.(string)] = value.(*Breaker).Snapshot()
		return true
	})
	return snapshots
}

// ResetAll forces every breaker back to Closed.
func (s *Store) ResetAll() {
	s.breakers.Range(func(_, value any) bool {
		value.(*Breaker).Reset()
		return true
	})
	s.logger.Info("reset all circuit breakers")
}

// Count returns the number of breakers in the store.
func (s *Store) Count() int {
	count := 0
	s.breakers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
