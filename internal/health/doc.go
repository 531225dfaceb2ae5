// Package health probes backend liveness independently of the gateway's
// circuit breakers and retry policy. A probe is a single bounded-timeout
// request against the service's health endpoint: never retried and never
// gated on breaker state, so it gives a true read of current backend
// state. The latest record per service is cached and stays readable
// until the next probe overwrites it.
package health
