package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vyrodovalexey/avsvcgw/internal/observability"
	"github.com/vyrodovalexey/avsvcgw/internal/registry"
)

// DefaultProbeTimeout bounds a single health probe.
const DefaultProbeTimeout = 5 * time.Second

// Status is the probed health of a service.
type Status string

const (
	// StatusHealthy means the last probe succeeded.
	StatusHealthy Status = "healthy"

	// StatusUnhealthy means the last probe failed.
	StatusUnhealthy Status = "unhealthy"

	// StatusUnknown means the service has never been probed.
	StatusUnknown Status = "unknown"
)

// Record is the result of the most recent probe of one service.
type Record struct {
	Service   string        `json:"service"`
	Status    Status        `json:"status"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checkedAt,omitzero"`
	Error     string        `json:"error,omitempty"`
}

// Checker probes registered services and caches the latest record per
// service. Probes for different services share no state beyond the
// record cache and run fully independently.
type Checker struct {
	registry     *registry.Registry
	client       *http.Client
	probeTimeout time.Duration
	logger       observability.Logger

	mu      sync.RWMutex
	records map[string]Record

	grpc *grpcProber
}

// Option is a functional option for configuring the checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets the HTTP client used for probes.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

// WithProbeTimeout bounds each probe.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.probeTimeout = timeout
		}
	}
}

// NewChecker creates a checker over the registry's services.
func NewChecker(reg *registry.Registry, opts ...Option) *Checker {
	c := &Checker{
		registry:     reg,
		client:       &http.Client{},
		probeTimeout: DefaultProbeTimeout,
		logger:       observability.NopLogger(),
		records:      make(map[string]Record, reg.Len()),
		grpc:         newGRPCProber(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check probes one service and overwrites its cached record. Every call
// is a fresh probe; the cache never short-circuits it.
func (c *Checker) Check(ctx context.Context, name string) (Record, error) {
	svc, err := c.registry.Lookup(name)
	if err != nil {
		return Record{Service: name, Status: StatusUnknown}, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	start := time.Now()
	probeErr := c.probe(probeCtx, svc)
	latency := time.Since(start)

	record := Record{
		Service:   name,
		Status:    StatusHealthy,
		Latency:   latency,
		CheckedAt: time.Now(),
	}
	if probeErr != nil {
		record.Status = StatusUnhealthy
		record.Error = probeErr.Error()
		c.logger.Warn("health probe failed",
			observability.String("service", name),
			observability.Duration("latency", latency),
			observability.Error(probeErr),
		)
	}

	recordProbe(name, record.Status, latency)

	c.mu.Lock()
	c.records[name] = record
	c.mu.Unlock()

	return record, nil
}

// CheckAll probes every registered service concurrently and returns the
// complete record set. Each probe carries its own timeout, so one slow
// or failing service never delays or fails the others.
func (c *Checker) CheckAll(ctx context.Context) map[string]Record {
	names := c.registry.Names()
	results := make(map[string]Record, len(names))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(service string) {
			defer wg.Done()

			record, err := c.Check(ctx, service)
			if err != nil {
				record = Record{Service: service, Status: StatusUnknown, Error: err.Error()}
			}

			mu.Lock()
			results[service] = record
			mu.Unlock()
		}(name)
	}

	wg.Wait()
	return results
}

// Cached returns the last record for a service without probing.
// Never-probed services read as unknown.
func (c *Checker) Cached(name string) Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if record, ok := c.records[name]; ok {
		return record
	}
	return Record{Service: name, Status: StatusUnknown}
}

// CachedAll returns the last record for every registered service
// without probing.
func (c *Checker) CachedAll() map[string]Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := make(map[string]Record, c.registry.Len())
	for _, name := range c.registry.Names() {
		if record, ok := c.records[name]; ok {
			records[name] = record
		} else {
			records[name] = Record{Service: name, Status: StatusUnknown}
		}
	}
	return records
}

// Close releases pooled probe connections.
func (c *Checker) Close() {
	c.grpc.closeAll(c.logger)
}

// probe dispatches on the service's health protocol.
func (c *Checker) probe(ctx context.Context, svc *registry.Service) error {
	if svc.HealthProtocol == "grpc" {
		return c.grpc.probe(ctx, svc)
	}
	return c.probeHTTP(ctx, svc)
}

// probeHTTP issues one GET against the service's health URL; any 2xx
// answer counts as healthy.
func (c *Checker) probeHTTP(ctx context.Context, svc *registry.Service) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.HealthURL(), http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("health endpoint answered %d", resp.StatusCode)
	}
	return nil
}
