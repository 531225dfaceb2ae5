package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(config *Config) error {
	v := NewValidator()
	return v.Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateGateway(&config.Gateway)
	v.validateServices(config.Services)
	v.validateServer(&config.Server)
	v.validateObservability(&config.Observability)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validateGateway validates process-wide call policy.
func (v *Validator) validateGateway(gw *GatewayConfig) {
	if gw.Breaker.Threshold < 1 {
		v.addError("gateway.breaker.threshold", "threshold must be at least 1")
	}
	if gw.Breaker.Cooldown <= 0 {
		v.addError("gateway.breaker.cooldown", "cooldown must be positive")
	}
	if gw.DefaultTimeout <= 0 {
		v.addError("gateway.defaultTimeout", "defaultTimeout must be positive")
	}
	if gw.Retry.BackoffFactor < 1 {
		v.addError("gateway.retry.backoffFactor", "backoffFactor must be at least 1")
	}
	if gw.Retry.Jitter < 0 || gw.Retry.Jitter > 1 {
		v.addError("gateway.retry.jitter", "jitter must be between 0 and 1")
	}
	if gw.Retry.MaxBackoff < gw.Retry.InitialBackoff {
		v.addError("gateway.retry.maxBackoff", "maxBackoff must not be less than initialBackoff")
	}
	if gw.ProbeTimeout <= 0 {
		v.addError("gateway.probeTimeout", "probeTimeout must be positive")
	}
}

// validateServices validates the service catalog.
func (v *Validator) validateServices(services []ServiceConfig) {
	names := make(map[string]bool)

	for i, svc := range services {
		path := fmt.Sprintf("services[%d]", i)
		v.validateServiceName(&svc, path, names)
		v.validateServiceAddress(&svc, path)
		v.validateServiceHealth(&svc, path)

		if svc.MaxRetries < 1 {
			v.addError(path+".maxRetries", "maxRetries must be at least 1")
		}
		if svc.Timeout <= 0 {
			v.addError(path+".timeout", "timeout must be positive")
		}
	}
}

// validateServiceName validates service name uniqueness.
func (v *Validator) validateServiceName(svc *ServiceConfig, path string, names map[string]bool) {
	switch {
	case svc.Name == "":
		v.addError(path+".name", "service name is required")
	case names[svc.Name]:
		v.addError(path+".name", fmt.Sprintf("duplicate service name: %s", svc.Name))
	default:
		names[svc.Name] = true
	}
}

// validateServiceAddress validates the service base URL.
func (v *Validator) validateServiceAddress(svc *ServiceConfig, path string) {
	if svc.Address == "" {
		v.addError(path+".address", "service address is required")
		return
	}

	u, err := url.Parse(svc.Address)
	if err != nil {
		v.addError(path+".address", fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.addError(path+".address", "address scheme must be http or https")
	}
	if u.Host == "" {
		v.addError(path+".address", "address host is required")
	}
}

// validateServiceHealth validates health probe settings.
func (v *Validator) validateServiceHealth(svc *ServiceConfig, path string) {
	if svc.HealthPath != "" && !strings.HasPrefix(svc.HealthPath, "/") {
		v.addError(path+".healthPath", "healthPath must start with /")
	}

	switch svc.HealthProtocol {
	case "", "http", "grpc":
	default:
		v.addError(path+".healthProtocol", "healthProtocol must be http or grpc")
	}
}

// validateServer validates the gateway's own server settings.
func (v *Validator) validateServer(srv *ServerConfig) {
	if srv.Port < 1 || srv.Port > 65535 {
		v.addError("server.port", fmt.Sprintf("port must be between 1 and 65535, got %d", srv.Port))
	}

	if srv.RateLimit.Enabled {
		if srv.RateLimit.RequestsPerSecond < 1 {
			v.addError("server.rateLimit.requestsPerSecond", "requestsPerSecond must be at least 1")
		}
		if srv.RateLimit.Burst < 1 {
			v.addError("server.rateLimit.burst", "burst must be at least 1")
		}
	}

	if srv.Breaker.Enabled {
		if srv.Breaker.Threshold < 1 {
			v.addError("server.breaker.threshold", "threshold must be at least 1")
		}
		if srv.Breaker.Timeout <= 0 {
			v.addError("server.breaker.timeout", "timeout must be positive")
		}
	}
}

// validateObservability validates logging, metrics, and tracing settings.
func (v *Validator) validateObservability(obs *ObservabilityConfig) {
	switch obs.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		v.addError("observability.logLevel", "logLevel must be debug, info, warn, or error")
	}

	switch obs.LogFormat {
	case "json", "console":
	default:
		v.addError("observability.logFormat", "logFormat must be json or console")
	}

	if obs.Metrics.Enabled {
		if obs.Metrics.Port < 1 || obs.Metrics.Port > 65535 {
			v.addError("observability.metrics.port", "port must be between 1 and 65535")
		}
	}

	if obs.Tracing.SampleRate < 0 || obs.Tracing.SampleRate > 1 {
		v.addError("observability.tracing.sampleRate", "sampleRate must be between 0 and 1")
	}
}

// addError records a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
