// Package executor performs one logical gateway call end to end: it
// consults the service's circuit breaker, attaches credentials, executes
// the attempt with a hard deadline, classifies the outcome, retries
// transient failures with exponential backoff, records exactly one
// breaker outcome, and returns a uniform result envelope.
//
// Retries apply only to calls explicitly marked idempotent; mutating
// calls get a single attempt because the executor cannot guarantee a
// repeated request is safe. Client errors (4xx) are never retried.
package executor
