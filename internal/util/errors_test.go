package util

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		field          string
		message        string
		cause          error
		expectedString string
	}{
		{
			name:           "with field",
			field:          "services[0].address",
			message:        "address must be a valid URL",
			cause:          nil,
			expectedString: "config error at services[0].address: address must be a valid URL",
		},
		{
			name:           "without field",
			field:          "",
			message:        "no services configured",
			cause:          nil,
			expectedString: "config error: no services configured",
		},
		{
			name:           "with cause",
			field:          "gateway.breaker.threshold",
			message:        "invalid threshold",
			cause:          errors.New("must be positive"),
			expectedString: "config error at gateway.breaker.threshold: invalid threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err *ConfigError
			if tt.cause != nil {
				err = NewConfigErrorWithCause(tt.field, tt.message, tt.cause)
			} else {
				err = NewConfigError(tt.field, tt.message)
			}

			assert.Equal(t, tt.expectedString, err.Error())
			assert.Equal(t, tt.field, err.Field)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.cause, err.Unwrap())
		})
	}
}

func TestConfigError_Is(t *testing.T) {
	t.Parallel()

	err := NewConfigError("field", "message")

	assert.True(t, errors.Is(err, ErrConfigInvalid))
	assert.True(t, err.Is(&ConfigError{}))
	assert.False(t, err.Is(errors.New("other error")))

	errWithCause := NewConfigErrorWithCause("field", "message", ErrInvalidInput)
	assert.True(t, errors.Is(errWithCause, ErrInvalidInput))
}

func TestUnknownServiceError(t *testing.T) {
	t.Parallel()

	err := NewUnknownServiceError("weather")

	assert.Equal(t, `unknown service "weather"`, err.Error())
	assert.True(t, errors.Is(err, ErrUnknownService))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            *ServiceError
		expectedString string
		retryable      bool
	}{
		{
			name:           "server status",
			err:            NewServiceError("weather", 503, "request failed"),
			expectedString: "service weather: request failed (status 503)",
			retryable:      true,
		},
		{
			name:           "client status",
			err:            NewServiceError("fields", 404, "request failed"),
			expectedString: "service fields: request failed (status 404)",
			retryable:      false,
		},
		{
			name:           "transport cause",
			err:            NewServiceErrorWithCause("satellite", "connection failed", errors.New("connection refused")),
			expectedString: "service satellite: connection failed: connection refused",
			retryable:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expectedString, tt.err.Error())
			assert.True(t, errors.Is(tt.err, ErrRequestFailed))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestTimeoutError(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("GET weather /forecast", 10*time.Second)

	assert.Equal(t, "timeout after 10s during GET weather /forecast", err.Error())
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, IsRetryable(err))
	assert.True(t, IsServerError(err))
}

func TestCircuitOpenError(t *testing.T) {
	t.Parallel()

	retryAt := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	err := NewCircuitOpenError("irrigation", retryAt)

	assert.Contains(t, err.Error(), "circuit breaker for irrigation is open until")
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.False(t, IsRetryable(err))

	noRetryAt := NewCircuitOpenError("irrigation", time.Time{})
	assert.Equal(t, "circuit breaker for irrigation is open", noRetryAt.Error())
}

func TestRateLimitError(t *testing.T) {
	t.Parallel()

	err := NewRateLimitError(100, time.Second)

	assert.Equal(t, "rate limit exceeded (limit: 100, retry after: 1s)", err.Error())
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, WrapError(nil, "context"))

	wrapped := WrapError(ErrTimeout, "probing weather")
	assert.Equal(t, "probing weather: timeout", wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrTimeout))
}

func TestClassificationHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		client   bool
		server   bool
		retrying bool
	}{
		{name: "nil", err: nil},
		{name: "unknown service", err: NewUnknownServiceError("nope"), client: true},
		{name: "timeout sentinel", err: ErrTimeout, server: true, retrying: true},
		{name: "circuit open", err: NewCircuitOpenError("weather", time.Time{}), server: true},
		{name: "service 400", err: NewServiceError("auth", 400, "bad request"), client: true},
		{name: "service 500", err: NewServiceError("auth", 500, "boom"), server: true, retrying: true},
		{name: "transport", err: NewServiceErrorWithCause("auth", "dial", errors.New("refused")), server: true, retrying: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.client, IsClientError(tt.err))
			assert.Equal(t, tt.server, IsServerError(tt.err))
			assert.Equal(t, tt.retrying, IsRetryable(tt.err))
		})
	}
}
