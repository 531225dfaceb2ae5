package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avsvcgw/internal/config"
	"github.com/vyrodovalexey/avsvcgw/internal/observability"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("GATEWAY_TEST_VAR", "from-env")

	assert.Equal(t, "from-env", getEnvOrDefault("GATEWAY_TEST_VAR", "fallback"))
	assert.Equal(t, "fallback", getEnvOrDefault("GATEWAY_TEST_VAR_UNSET", "fallback"))
}

func testAppConfig() *config.Config {
	cfg := &config.Config{
		Services: []config.ServiceConfig{
			{Name: "weather", Address: "http://localhost:18081"},
		},
	}
	cfg.Normalize()
	return cfg
}

func TestInitApplication(t *testing.T) {
	cfg := testAppConfig()

	app := initApplication(cfg, observability.NopLogger())
	require.NotNil(t, app)
	defer app.gateway.Close()

	assert.NotNil(t, app.gateway)
	assert.NotNil(t, app.server)
	assert.NotNil(t, app.tracer)
	assert.Nil(t, app.metricsServer, "metrics disabled by default")
	assert.Equal(t, []string{"weather"}, app.gateway.Services())
}

func TestInitApplicationWithMetrics(t *testing.T) {
	cfg := testAppConfig()
	cfg.Observability.Metrics.Enabled = true

	app := initApplication(cfg, observability.NopLogger())
	defer app.gateway.Close()

	assert.NotNil(t, app.metricsServer)
}

func TestApplyConfigSwapsGateway(t *testing.T) {
	app := initApplication(testAppConfig(), observability.NopLogger())
	defer app.gateway.Close()

	before := app.server.Gateway()

	next := &config.Config{
		Services: []config.ServiceConfig{
			{Name: "weather", Address: "http://localhost:18081"},
			{Name: "irrigation", Address: "http://localhost:18082"},
		},
	}
	next.Normalize()

	applyConfig(app, next, observability.NopLogger())

	after := app.server.Gateway()
	assert.NotSame(t, before, after)
	assert.Equal(t, []string{"irrigation", "weather"}, after.Services())
	assert.Same(t, after, app.gateway)
	assert.Equal(t, next, app.config)
}

func TestApplyConfigKeepsCurrentOnInvalid(t *testing.T) {
	app := initApplication(testAppConfig(), observability.NopLogger())
	defer app.gateway.Close()

	before := app.server.Gateway()

	bad := &config.Config{
		Services: []config.ServiceConfig{
			{Name: "weather", Address: "not a url"},
		},
	}
	bad.Normalize()

	applyConfig(app, bad, observability.NopLogger())

	assert.Same(t, before, app.server.Gateway(), "invalid config must not be applied")
}

func TestInitTracerDisabled(t *testing.T) {
	cfg := testAppConfig()
	cfg.Observability.Tracing.Enabled = false

	tracer := initTracer(cfg, observability.NopLogger())
	require.NotNil(t, tracer)

	// Disabled tracers shut down instantly.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tracer.Shutdown(ctx))
}
