// Package server exposes the gateway facade to the front-end over HTTP:
// a catch-all proxy route per logical service, health and breaker
// introspection endpoints, and the inbound middleware chain (request-id,
// logging, recovery, rate limiting, and a gateway-level circuit breaker
// that sheds load when the gateway itself keeps failing).
package server
