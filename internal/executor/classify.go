package executor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

// outcome is the classification of one attempt's failure.
type outcome struct {
	// code is the envelope error code for this failure.
	code string

	// retryable reports whether a later attempt may succeed.
	retryable bool

	// authRejected reports that the backend rejected the credentials.
	authRejected bool
}

// classifyStatus classifies a backend HTTP answer. 2xx never reaches
// here; the executor short-circuits on success.
func classifyStatus(statusCode int) outcome {
	switch {
	case statusCode >= 500:
		return outcome{code: CodeServerError, retryable: true}
	case statusCode >= 400:
		// The caller's fault; repeating the same request cannot help,
		// so 4xx is never retried, including 408 and 429.
		return outcome{
			code:         CodeClientError,
			authRejected: statusCode == http.StatusUnauthorized,
		}
	default:
		return outcome{code: CodeRequestFailed, retryable: true}
	}
}

// classifyError classifies a transport-level failure.
func classifyError(err error) outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return outcome{code: CodeTimeout, retryable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return outcome{code: CodeTimeout, retryable: true}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return outcome{code: CodeTimeout, retryable: true}
	}

	// Connection-level failures: refused, reset, closed mid-flight.
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return outcome{code: CodeRequestFailed, retryable: true}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return outcome{code: CodeRequestFailed, retryable: true}
	}

	return outcome{code: CodeRequestFailed, retryable: true}
}
