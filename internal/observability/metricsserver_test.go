package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMetricsServerConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultMetricsServerConfig()

	assert.Equal(t, 9091, cfg.Port)
	assert.Equal(t, "/metrics", cfg.Path)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
}

func TestMetricsServerStartStop(t *testing.T) {
	t.Parallel()

	cfg := DefaultMetricsServerConfig()
	cfg.Port = 0 // pick a free port

	srv := NewMetricsServer(cfg, NopLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestMetricsServerStopWithoutStart(t *testing.T) {
	t.Parallel()

	srv := NewMetricsServer(DefaultMetricsServerConfig(), nil)
	assert.NoError(t, srv.Stop(context.Background()))
}
