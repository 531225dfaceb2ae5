// Package util provides shared utility types for the service gateway.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrUnknownService.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ConfigError, ServiceError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinel errors.
var (
	ErrUnknownService = errors.New("unknown service")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTimeout        = errors.New("timeout")
	ErrCircuitOpen    = errors.New("circuit breaker open")
	ErrRequestFailed  = errors.New("request failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrConfigInvalid  = errors.New("invalid configuration")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// UnknownServiceError reports a gateway call against a service name that
// is not present in the registry.
type UnknownServiceError struct {
	Service string
}

// Error implements the error interface.
func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Service)
}

// Is checks if the error matches the target.
func (e *UnknownServiceError) Is(target error) bool {
	if target == ErrUnknownService {
		return true
	}
	_, ok := target.(*UnknownServiceError)
	return ok
}

// NewUnknownServiceError creates a new UnknownServiceError.
func NewUnknownServiceError(service string) *UnknownServiceError {
	return &UnknownServiceError{Service: service}
}

// ServiceError represents a failed call against a backend service. When the
// backend answered, StatusCode carries its HTTP status; when the failure was
// at the connection level, StatusCode is zero and Cause carries the
// transport error.
type ServiceError struct {
	Service    string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("service %s: %s: %v", e.Service, e.Message, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("service %s: %s (status %d)", e.Service, e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("service %s: %s", e.Service, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ServiceError) Is(target error) bool {
	if target == ErrRequestFailed {
		return true
	}
	_, ok := target.(*ServiceError)
	return ok || errors.Is(e.Cause, target)
}

// NewServiceError creates a new ServiceError for an HTTP status outcome.
func NewServiceError(service string, statusCode int, message string) *ServiceError {
	return &ServiceError{Service: service, StatusCode: statusCode, Message: message}
}

// NewServiceErrorWithCause creates a new ServiceError wrapping a transport error.
func NewServiceErrorWithCause(service, message string, cause error) *ServiceError {
	return &ServiceError{Service: service, Message: message, Cause: cause}
}

// TimeoutError represents a timed-out operation.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %v during %s", e.Duration, e.Operation)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if target == ErrTimeout {
		return true
	}
	_, ok := target.(*TimeoutError)
	return ok || errors.Is(e.Cause, target)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration}
}

// CircuitOpenError represents a call rejected by an open circuit breaker.
type CircuitOpenError struct {
	Service     string
	NextRetryAt time.Time
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	if e.NextRetryAt.IsZero() {
		return fmt.Sprintf("circuit breaker for %s is open", e.Service)
	}
	return fmt.Sprintf("circuit breaker for %s is open until %s", e.Service, e.NextRetryAt.Format(time.RFC3339))
}

// Is checks if the error matches the target.
func (e *CircuitOpenError) Is(target error) bool {
	if target == ErrCircuitOpen {
		return true
	}
	_, ok := target.(*CircuitOpenError)
	return ok
}

// NewCircuitOpenError creates a new CircuitOpenError.
func NewCircuitOpenError(service string, nextRetryAt time.Time) *CircuitOpenError {
	return &CircuitOpenError{Service: service, NextRetryAt: nextRetryAt}
}

// RateLimitError represents a rate limit exceeded error.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d, retry after: %v)", e.Limit, e.RetryAfter)
}

// Is checks if the error matches the target.
func (e *RateLimitError) Is(target error) bool {
	if target == ErrRateLimited {
		return true
	}
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(limit int, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Limit: limit, RetryAfter: retryAfter}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryable returns true if the error represents a transient failure
// that a later attempt may recover from.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTimeout) {
		return true
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		// Connection-level failures and backend 5xx answers are transient;
		// anything the caller did wrong is not.
		return svcErr.StatusCode == 0 || svcErr.StatusCode >= 500
	}

	return false
}

// IsClientError returns true if the error is the caller's fault (4xx).
func IsClientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrUnknownService) {
		return true
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode >= 400 && svcErr.StatusCode < 500
	}

	return false
}

// IsServerError returns true if the error indicates a failing backend.
func IsServerError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTimeout) {
		return true
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode == 0 || svcErr.StatusCode >= 500
	}

	return false
}
