package executor

import (
	"net/http"
	"net/url"
	"time"
)

// Request describes one logical call to a backend service.
type Request struct {
	// Service is the logical name resolved through the registry.
	Service string

	// Method is the HTTP method.
	Method string

	// Path is the request path relative to the service base URL. It
	// should start with "/".
	Path string

	// Query is appended to the request URL.
	Query url.Values

	// Headers are extra headers sent with every attempt. Authorization
	// set here takes precedence over the session token.
	Headers http.Header

	// Body is marshaled to JSON when non-nil and re-sent on every attempt.
	Body any

	// Timeout overrides the service's per-attempt timeout when positive.
	Timeout time.Duration

	// Idempotent marks the call safe to retry. Only idempotent calls
	// get the service's retry budget; everything else gets one attempt.
	// The flag is explicit rather than inferred from Method so the
	// policy is visible at the call site and testable without transport.
	Idempotent bool
}
