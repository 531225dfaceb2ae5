// Package registry holds the catalog of backend services the gateway
// brokers calls to.
//
// A Registry is built once from configuration and never mutated, so
// lookups are lock-free. Configuration reloads build a fresh Registry
// rather than editing the live one.
package registry
