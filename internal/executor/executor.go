package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avsvcgw/internal/circuitbreaker"
	"github.com/vyrodovalexey/avsvcgw/internal/observability"
	"github.com/vyrodovalexey/avsvcgw/internal/registry"
)

// tracer is the OTEL tracer for gateway calls.
var tracer = otel.Tracer("avsvcgw/executor")

// ClientFactory builds the HTTP client used for one service. Injecting
// the factory keeps per-service clients explicit instead of hiding
// shared state behind singletons.
type ClientFactory func(*registry.Service) *http.Client

// DefaultClientFactory builds a client with pooled connections. Attempt
// deadlines come from the request context, not the client.
func DefaultClientFactory(*registry.Service) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Executor brokers logical calls to backend services.
type Executor struct {
	registry *registry.Registry
	breakers *circuitbreaker.Store
	session  Session
	factory  ClientFactory
	backoff  BackoffConfig
	logger   observability.Logger
	clients  map[string]*http.Client
}

// Option configures an Executor.
type Option func(*Executor)

// WithSession sets the auth/session collaborator.
func WithSession(session Session) Option {
	return func(e *Executor) {
		if session != nil {
			e.session = session
		}
	}
}

// WithClientFactory sets the per-service HTTP client factory.
func WithClientFactory(factory ClientFactory) Option {
	return func(e *Executor) {
		if factory != nil {
			e.factory = factory
		}
	}
}

// WithBackoff sets the retry backoff configuration.
func WithBackoff(cfg BackoffConfig) Option {
	return func(e *Executor) {
		e.backoff = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an executor over a registry and breaker store. Clients
// are built eagerly, one per registered service; the registry is
// immutable so the set never changes.
func New(reg *registry.Registry, breakers *circuitbreaker.Store, opts ...Option) *Executor {
	e := &Executor{
		registry: reg,
		breakers: breakers,
		session:  NopSession{},
		factory:  DefaultClientFactory,
		backoff:  DefaultBackoffConfig(),
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.clients = make(map[string]*http.Client, reg.Len())
	for _, name := range reg.Names() {
		svc, _ := reg.Lookup(name)
		e.clients[name] = e.factory(svc)
	}

	return e
}

// attemptOutcome is the classified failure of the most recent attempt.
type attemptOutcome struct {
	out        outcome
	statusCode int
	message    string
	details    []byte
}

// Do executes one logical call and returns its envelope. Exactly one
// breaker outcome is recorded per call: success, or a single failure
// after the retry loop ends without success. Circuit-open rejections,
// unknown services, and caller-abandoned calls record nothing.
func (e *Executor) Do(ctx context.Context, req Request) *Result {
	meta := Meta{
		Service:   req.Service,
		RequestID: observability.RequestIDFromContext(ctx),
	}

	svc, err := e.registry.Lookup(req.Service)
	if err != nil {
		recordCall(req.Service, "configuration_error", 0)
		return failureResult(meta, CodeConfigurationError, err.Error(), nil)
	}

	breaker := e.breakers.GetOrCreate(req.Service)
	if !breaker.Allow() {
		e.logger.Debug("call rejected by circuit breaker",
			observability.String("service", req.Service),
		)
		recordCall(req.Service, "circuit_open", 0)
		return failureResult(meta, CodeCircuitOpen,
			fmt.Sprintf("circuit breaker for %s is open", req.Service), nil)
	}

	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			// The caller handed us an unmarshalable body; no network
			// attempt was made, so the breaker learns nothing.
			recordCall(req.Service, "client_error", 0)
			return failureResult(meta, CodeClientError,
				fmt.Sprintf("encode request body: %v", err), nil)
		}
	}

	budget := 1
	if req.Idempotent {
		budget = svc.MaxRetries
	}
	timeout := svc.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	ctx, span := tracer.Start(ctx, "gateway.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.service", req.Service),
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.Path),
			attribute.Bool("gateway.idempotent", req.Idempotent),
		),
	)
	defer span.End()

	backoff := NewExponentialBackoff(e.backoff)
	start := time.Now()

	var last attemptOutcome

	for attempt := 0; attempt < budget; attempt++ {
		recordAttempt(req.Service, attempt)
		if attempt > 0 {
			span.AddEvent("retry", trace.WithAttributes(
				attribute.Int("gateway.attempt", attempt+1),
			))
		}

		statusCode, respBody, attemptErr := e.attempt(ctx, svc, req, body, timeout)

		meta.Attempts = attempt + 1

		if attemptErr == nil && statusCode >= 200 && statusCode < 300 {
			breaker.RecordSuccess()
			meta.Latency = time.Since(start)
			meta.StatusCode = statusCode
			recordCall(req.Service, "success", meta.Latency.Seconds())
			return successResult(meta, respBody)
		}

		// The caller abandoned the call. An abandoned call says nothing
		// about backend health, so the breaker learns nothing. A live
		// parent context means the attempt hit its own deadline, which
		// classifies as TIMEOUT below.
		if ctx.Err() != nil {
			meta.Latency = time.Since(start)
			recordCall(req.Service, "canceled", meta.Latency.Seconds())
			return failureResult(meta, CodeRequestFailed, "request canceled", nil)
		}

		if attemptErr != nil {
			last = attemptOutcome{
				out:     classifyError(attemptErr),
				message: attemptErr.Error(),
			}
		} else {
			last = attemptOutcome{
				out:        classifyStatus(statusCode),
				statusCode: statusCode,
				message: fmt.Sprintf("%s answered %d %s",
					req.Service, statusCode, http.StatusText(statusCode)),
				details: respBody,
			}
		}

		if last.out.authRejected {
			recordAuthRejected(req.Service)
			e.session.AuthRejected(ctx)
		}

		e.logger.Debug("attempt failed",
			observability.String("service", req.Service),
			observability.Int("attempt", attempt+1),
			observability.Int("budget", budget),
			observability.String("code", last.out.code),
			observability.String("reason", last.message),
		)

		if !last.out.retryable {
			break
		}

		if attempt < budget-1 {
			wait := backoff.Next(attempt)
			select {
			case <-ctx.Done():
				meta.Latency = time.Since(start)
				recordCall(req.Service, "canceled", meta.Latency.Seconds())
				return failureResult(meta, CodeRequestFailed, "request canceled", nil)
			case <-time.After(wait):
			}
		}
	}

	breaker.RecordFailure()

	meta.Latency = time.Since(start)
	meta.StatusCode = last.statusCode
	recordCall(req.Service, "failure", meta.Latency.Seconds())

	e.logger.Warn("call failed",
		observability.String("service", req.Service),
		observability.String("code", last.out.code),
		observability.Int("attempts", meta.Attempts),
		observability.String("reason", last.message),
	)

	return failureResult(meta, last.out.code, last.message, last.details)
}

// attempt executes one network attempt bounded by the per-attempt timeout.
func (e *Executor) attempt(
	ctx context.Context,
	svc *registry.Service,
	req Request,
	body []byte,
	timeout time.Duration,
) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := svc.BaseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, u, reader)
	if err != nil {
		return 0, nil, err
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if httpReq.Header.Get("Authorization") == "" {
		if token, ok := e.session.Token(ctx); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if requestID := observability.RequestIDFromContext(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	resp, err := e.clients[svc.Name].Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, data, nil
}
