package executor

import (
	"encoding/json"
	"fmt"
	"time"
)

// Error codes surfaced in Result.Error.Code.
const (
	// CodeCircuitOpen marks a call rejected by the breaker without I/O.
	CodeCircuitOpen = "CIRCUIT_OPEN"

	// CodeClientError marks a 4xx backend answer; never retried.
	CodeClientError = "CLIENT_ERROR"

	// CodeServerError marks a 5xx backend answer; retried up to budget.
	CodeServerError = "SERVER_ERROR"

	// CodeTimeout marks an attempt that exceeded its deadline.
	CodeTimeout = "TIMEOUT"

	// CodeRequestFailed marks a connection-level failure or a call the
	// caller abandoned.
	CodeRequestFailed = "REQUEST_FAILED"

	// CodeConfigurationError marks a call against an unregistered service.
	CodeConfigurationError = "CONFIGURATION_ERROR"
)

// ErrorInfo describes why a call failed.
type ErrorInfo struct {
	// Code is one of the Code* constants.
	Code string `json:"code"`

	// Message is a human-readable summary.
	Message string `json:"message"`

	// Details carries the last error payload the backend returned, when any.
	Details json.RawMessage `json:"details,omitempty"`
}

// Meta carries call metadata present on every result.
type Meta struct {
	// Service is the logical service name the call addressed.
	Service string `json:"service"`

	// Latency is the total wall time of the logical call, including
	// retries and backoff. Circuit-open rejections report zero.
	Latency time.Duration `json:"latency"`

	// Cached reports whether the result came from a cache rather than
	// the backend. The executor never caches; always false here.
	Cached bool `json:"cached"`

	// Attempts is the number of network attempts made.
	Attempts int `json:"attempts"`

	// StatusCode is the HTTP status of the last attempt, when the
	// backend answered.
	StatusCode int `json:"statusCode,omitempty"`

	// RequestID is the request correlation ID, when one was in context.
	RequestID string `json:"requestId,omitempty"`
}

// Result is the envelope returned from every logical call.
//
// Invariant: Success is true exactly when Data is set and Error is nil.
// Callers branch on Success and never assume Data without checking it.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
	Meta    Meta            `json:"meta"`
}

// Decode unmarshals a successful result's data into T. Failed results
// decode to the zero value and the envelope's error.
func Decode[T any](r *Result) (T, error) {
	var v T
	if !r.Success {
		if r.Error != nil {
			return v, fmt.Errorf("%s: %s", r.Error.Code, r.Error.Message)
		}
		return v, fmt.Errorf("call to %s failed", r.Meta.Service)
	}
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return v, fmt.Errorf("decode response from %s: %w", r.Meta.Service, err)
	}
	return v, nil
}

// successResult builds a success envelope. Empty bodies become JSON null
// so the envelope invariant (success implies data) holds for 204-style
// answers.
func successResult(meta Meta, data []byte) *Result {
	if len(data) == 0 {
		data = []byte("null")
	}
	return &Result{
		Success: true,
		Data:    json.RawMessage(data),
		Meta:    meta,
	}
}

// failureResult builds a failure envelope.
func failureResult(meta Meta, code, message string, details []byte) *Result {
	return &Result{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: json.RawMessage(details),
		},
		Meta: meta,
	}
}
