package config

import "time"

// Default values applied by Normalize for fields left unset.
const (
	// DefaultRequestTimeout is the per-attempt timeout for backend calls.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxRetries is the total attempt budget for idempotent calls.
	DefaultMaxRetries = 3

	// DefaultBreakerThreshold is the consecutive-failure count that opens a breaker.
	DefaultBreakerThreshold = 5

	// DefaultBreakerCooldown is how long an open breaker rejects calls
	// before admitting a half-open trial.
	DefaultBreakerCooldown = 30 * time.Second

	// DefaultInitialBackoff is the delay before the first retry.
	DefaultInitialBackoff = 1 * time.Second

	// DefaultMaxBackoff caps the delay between retries.
	DefaultMaxBackoff = 30 * time.Second

	// DefaultBackoffFactor is the exponential growth factor between retries.
	DefaultBackoffFactor = 2.0

	// DefaultProbeTimeout bounds a single health probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultHealthPath is probed when a service does not configure one.
	DefaultHealthPath = "/health"

	// DefaultServerPort is the gateway API port.
	DefaultServerPort = 8080

	// DefaultMetricsPort is the Prometheus exposition port.
	DefaultMetricsPort = 9091
)

// Config is the root configuration for the service gateway.
type Config struct {
	// Gateway holds call-handling policy shared by all services.
	Gateway GatewayConfig `yaml:"gateway"`

	// Services lists the backend services the gateway brokers calls to.
	Services []ServiceConfig `yaml:"services"`

	// Server configures the HTTP surface exposed to the front-end.
	Server ServerConfig `yaml:"server"`

	// Observability configures logging, metrics, and tracing.
	Observability ObservabilityConfig `yaml:"observability"`
}

// GatewayConfig holds process-wide call-handling policy.
type GatewayConfig struct {
	// DefaultTimeout bounds a single attempt against a backend when the
	// service does not override it.
	DefaultTimeout Duration `yaml:"defaultTimeout"`

	// Breaker configures the per-service circuit breakers.
	Breaker BreakerConfig `yaml:"breaker"`

	// Retry configures backoff between attempts of idempotent calls.
	Retry RetryConfig `yaml:"retry"`

	// ProbeTimeout bounds a single health probe.
	ProbeTimeout Duration `yaml:"probeTimeout"`
}

// BreakerConfig holds circuit breaker tuning.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens a breaker.
	Threshold int `yaml:"threshold"`

	// Cooldown is how long an open breaker rejects calls before admitting
	// a half-open trial.
	Cooldown Duration `yaml:"cooldown"`
}

// RetryConfig holds retry backoff tuning.
type RetryConfig struct {
	// InitialBackoff is the delay before the first retry.
	InitialBackoff Duration `yaml:"initialBackoff"`

	// MaxBackoff caps the delay between retries.
	MaxBackoff Duration `yaml:"maxBackoff"`

	// BackoffFactor is the exponential growth factor between retries.
	BackoffFactor float64 `yaml:"backoffFactor"`

	// Jitter is the random fraction (0..1) added to each delay.
	Jitter float64 `yaml:"jitter"`
}

// ServiceConfig describes one backend service.
type ServiceConfig struct {
	// Name is the logical service name used in gateway calls.
	Name string `yaml:"name"`

	// Address is the service base URL. Environment substitution applies,
	// so deployments typically set this via ${NAME_SERVICE_ADDR:-...}.
	Address string `yaml:"address"`

	// Timeout overrides the gateway default per-attempt timeout.
	Timeout Duration `yaml:"timeout,omitempty"`

	// MaxRetries is the total attempt budget for idempotent calls.
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// HealthPath is the HTTP health endpoint path.
	HealthPath string `yaml:"healthPath,omitempty"`

	// HealthProtocol selects the probe type: "http" (default) or "grpc".
	HealthProtocol string `yaml:"healthProtocol,omitempty"`

	// HealthGRPCService is the optional service string passed to the
	// grpc.health.v1 Check call.
	HealthGRPCService string `yaml:"healthGrpcService,omitempty"`
}

// ServerConfig configures the gateway's own HTTP server.
type ServerConfig struct {
	// Address is the bind address (empty means all interfaces).
	Address string `yaml:"address,omitempty"`

	// Port is the listen port.
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout Duration `yaml:"readTimeout,omitempty"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout Duration `yaml:"writeTimeout,omitempty"`

	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout Duration `yaml:"idleTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty"`

	// MaxRequestBodySize limits inbound request bodies in bytes.
	MaxRequestBodySize int64 `yaml:"maxRequestBodySize,omitempty"`

	// RateLimit configures inbound rate limiting.
	RateLimit RateLimitConfig `yaml:"rateLimit,omitempty"`

	// Breaker configures the inbound gateway-level circuit breaker.
	Breaker InboundBreakerConfig `yaml:"breaker,omitempty"`
}

// RateLimitConfig configures inbound rate limiting.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond int `yaml:"requestsPerSecond,omitempty"`

	// Burst is the maximum burst size.
	Burst int `yaml:"burst,omitempty"`

	// PerClient applies the limit per client IP instead of globally.
	PerClient bool `yaml:"perClient,omitempty"`
}

// InboundBreakerConfig configures the gateway-level breaker that sheds
// load when the gateway itself keeps failing.
type InboundBreakerConfig struct {
	// Enabled turns the inbound breaker on.
	Enabled bool `yaml:"enabled"`

	// Threshold is the request count that arms the failure-ratio check.
	Threshold int `yaml:"threshold,omitempty"`

	// Timeout is the open-state duration.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// ObservabilityConfig configures logging, metrics, and tracing.
type ObservabilityConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`

	// LogFormat is json or console.
	LogFormat string `yaml:"logFormat,omitempty"`

	// LogOutput is stdout or stderr.
	LogOutput string `yaml:"logOutput,omitempty"`

	// Metrics configures Prometheus exposition.
	Metrics MetricsConfig `yaml:"metrics,omitempty"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing,omitempty"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	// Enabled turns the metrics server on.
	Enabled bool `yaml:"enabled"`

	// Port is the metrics listen port.
	Port int `yaml:"port,omitempty"`

	// Path is the metrics endpoint path.
	Path string `yaml:"path,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns tracing on.
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this process in traces.
	ServiceName string `yaml:"serviceName,omitempty"`

	// OTLPEndpoint is the OTLP-gRPC collector endpoint.
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`

	// SampleRate is the trace sampling ratio (0..1).
	SampleRate float64 `yaml:"sampleRate,omitempty"`
}

// DefaultConfig returns a Config with default values and no services.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills unset fields with defaults. It is called by the loader
// after unmarshaling so downstream code never sees zero-valued policy.
func (c *Config) Normalize() {
	if c.Gateway.DefaultTimeout <= 0 {
		c.Gateway.DefaultTimeout = Duration(DefaultRequestTimeout)
	}
	if c.Gateway.Breaker.Threshold <= 0 {
		c.Gateway.Breaker.Threshold = DefaultBreakerThreshold
	}
	if c.Gateway.Breaker.Cooldown <= 0 {
		c.Gateway.Breaker.Cooldown = Duration(DefaultBreakerCooldown)
	}
	if c.Gateway.Retry.InitialBackoff <= 0 {
		c.Gateway.Retry.InitialBackoff = Duration(DefaultInitialBackoff)
	}
	if c.Gateway.Retry.MaxBackoff <= 0 {
		c.Gateway.Retry.MaxBackoff = Duration(DefaultMaxBackoff)
	}
	if c.Gateway.Retry.BackoffFactor <= 0 {
		c.Gateway.Retry.BackoffFactor = DefaultBackoffFactor
	}
	if c.Gateway.ProbeTimeout <= 0 {
		c.Gateway.ProbeTimeout = Duration(DefaultProbeTimeout)
	}

	for i := range c.Services {
		svc := &c.Services[i]
		if svc.Timeout <= 0 {
			svc.Timeout = c.Gateway.DefaultTimeout
		}
		if svc.MaxRetries <= 0 {
			svc.MaxRetries = DefaultMaxRetries
		}
		if svc.HealthPath == "" {
			svc.HealthPath = DefaultHealthPath
		}
		if svc.HealthProtocol == "" {
			svc.HealthProtocol = "http"
		}
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = Duration(30 * time.Second)
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = Duration(120 * time.Second)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = Duration(30 * time.Second)
	}

	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogFormat == "" {
		c.Observability.LogFormat = "json"
	}
	if c.Observability.LogOutput == "" {
		c.Observability.LogOutput = "stdout"
	}
	if c.Observability.Metrics.Port == 0 {
		c.Observability.Metrics.Port = DefaultMetricsPort
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Tracing.ServiceName == "" {
		c.Observability.Tracing.ServiceName = "avsvcgw"
	}
	if c.Observability.Tracing.SampleRate <= 0 {
		c.Observability.Tracing.SampleRate = 1.0
	}
}
