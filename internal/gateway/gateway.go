// Package gateway is the public facade of the service gateway. It
// composes the service registry, the per-service circuit breaker store,
// the retrying request executor, and the health checker behind one
// stable entry point, delegating without business logic of its own.
package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vyrodovalexey/avsvcgw/internal/circuitbreaker"
	"github.com/vyrodovalexey/avsvcgw/internal/config"
	"github.com/vyrodovalexey/avsvcgw/internal/executor"
	"github.com/vyrodovalexey/avsvcgw/internal/health"
	"github.com/vyrodovalexey/avsvcgw/internal/observability"
	"github.com/vyrodovalexey/avsvcgw/internal/registry"
)

// Gateway brokers front-end calls to the backend service fleet.
type Gateway struct {
	registry *registry.Registry
	breakers *circuitbreaker.Store
	executor *executor.Executor
	checker  *health.Checker
	logger   observability.Logger
}

// Option configures a Gateway.
type Option func(*options)

type options struct {
	logger  observability.Logger
	session executor.Session
	factory executor.ClientFactory
}

// WithLogger sets the logger used by all components.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSession sets the auth/session collaborator.
func WithSession(session executor.Session) Option {
	return func(o *options) {
		if session != nil {
			o.session = session
		}
	}
}

// WithClientFactory sets the per-service HTTP client factory.
func WithClientFactory(factory executor.ClientFactory) Option {
	return func(o *options) {
		if factory != nil {
			o.factory = factory
		}
	}
}

// New builds a gateway from configuration. The registry is immutable
// after this point; configuration reloads build a new gateway.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	o := &options{
		logger:  observability.NopLogger(),
		session: executor.NopSession{},
		factory: executor.DefaultClientFactory,
	}
	for _, opt := range opts {
		opt(o)
	}

	reg, err := registry.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	breakers := circuitbreaker.NewStore(&circuitbreaker.Config{
		Threshold: cfg.Gateway.Breaker.Threshold,
		Cooldown:  cfg.Gateway.Breaker.Cooldown.Duration(),
	}, o.logger)

	exec := executor.New(reg, breakers,
		executor.WithSession(o.session),
		executor.WithClientFactory(o.factory),
		executor.WithLogger(o.logger),
		executor.WithBackoff(executor.BackoffConfig{
			Initial: cfg.Gateway.Retry.InitialBackoff.Duration(),
			Max:     cfg.Gateway.Retry.MaxBackoff.Duration(),
			Factor:  cfg.Gateway.Retry.BackoffFactor,
			Jitter:  cfg.Gateway.Retry.Jitter,
		}),
	)

	checker := health.NewChecker(reg,
		health.WithLogger(o.logger),
		health.WithProbeTimeout(cfg.Gateway.ProbeTimeout.Duration()),
	)

	return &Gateway{
		registry: reg,
		breakers: breakers,
		executor: exec,
		checker:  checker,
		logger:   o.logger,
	}, nil
}

// Request executes one logical call and returns its envelope.
func (g *Gateway) Request(ctx context.Context, req executor.Request) *executor.Result {
	return g.executor.Do(ctx, req)
}

// Get performs an idempotent read; it carries the service's retry budget.
func (g *Gateway) Get(ctx context.Context, service, path string, query url.Values) *executor.Result {
	return g.executor.Do(ctx, executor.Request{
		Service:    service,
		Method:     http.MethodGet,
		Path:       path,
		Query:      query,
		Idempotent: true,
	})
}

// Post performs a mutating call; it gets exactly one attempt.
func (g *Gateway) Post(ctx context.Context, service, path string, body any) *executor.Result {
	return g.executor.Do(ctx, executor.Request{
		Service: service,
		Method:  http.MethodPost,
		Path:    path,
		Body:    body,
	})
}

// Put performs a mutating call; it gets exactly one attempt.
func (g *Gateway) Put(ctx context.Context, service, path string, body any) *executor.Result {
	return g.executor.Do(ctx, executor.Request{
		Service: service,
		Method:  http.MethodPut,
		Path:    path,
		Body:    body,
	})
}

// Delete performs a mutating call; it gets exactly one attempt.
func (g *Gateway) Delete(ctx context.Context, service, path string) *executor.Result {
	return g.executor.Do(ctx, executor.Request{
		Service: service,
		Method:  http.MethodDelete,
		Path:    path,
	})
}

// CheckServiceHealth probes one service and returns the fresh record.
func (g *Gateway) CheckServiceHealth(ctx context.Context, service string) (health.Record, error) {
	return g.checker.Check(ctx, service)
}

// CheckAllServicesHealth probes every registered service concurrently.
func (g *Gateway) CheckAllServicesHealth(ctx context.Context) map[string]health.Record {
	return g.checker.CheckAll(ctx)
}

// CachedHealth returns the last health records without probing.
func (g *Gateway) CachedHealth() map[string]health.Record {
	return g.checker.CachedAll()
}

// BreakerStatus returns a point-in-time view of every circuit breaker.
func (g *Gateway) BreakerStatus() map[string]circuitbreaker.Snapshot {
	return g.breakers.Snapshots()
}

// ResetBreakers forces every breaker back to Closed.
func (g *Gateway) ResetBreakers() {
	g.breakers.ResetAll()
}

// Services lists the registered service names.
func (g *Gateway) Services() []string {
	return g.registry.Names()
}

// Close releases pooled resources.
func (g *Gateway) Close() {
	g.checker.Close()
}
