// Package config provides configuration management for the service gateway.
//
// Configuration is loaded from a YAML file with environment variable
// substitution: ${VAR} expands to the value of VAR, ${VAR:-default}
// falls back to default when VAR is unset, and $$ escapes a literal
// dollar sign. Service addresses are typically supplied through the
// environment so the same file works across deployments:
//
//	services:
//	  - name: weather
//	    address: ${WEATHER_SERVICE_ADDR:-http://localhost:8081}
//
// Durations use Go's time.ParseDuration syntax ("30s", "5m").
//
// A Watcher built on fsnotify reloads the file on change so the daemon
// can rebuild its service registry without restarting.
package config
