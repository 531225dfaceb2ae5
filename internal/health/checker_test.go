package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avsvcgw/internal/registry"
	"github.com/vyrodovalexey/avsvcgw/internal/util"
)

func newTestRegistry(t *testing.T, services ...registry.Service) *registry.Registry {
	t.Helper()
	reg, err := registry.New(services)
	require.NoError(t, err)
	return reg
}

func TestCheckHealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewChecker(newTestRegistry(t, registry.Service{Name: "weather", BaseURL: srv.URL}))
	defer c.Close()

	record, err := c.Check(context.Background(), "weather")
	require.NoError(t, err)

	assert.Equal(t, StatusHealthy, record.Status)
	assert.Empty(t, record.Error)
	assert.Positive(t, record.Latency)
	assert.False(t, record.CheckedAt.IsZero())
}

func TestCheckUnhealthyOnNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewChecker(newTestRegistry(t, registry.Service{Name: "weather", BaseURL: srv.URL}))
	defer c.Close()

	record, err := c.Check(context.Background(), "weather")
	require.NoError(t, err)

	assert.Equal(t, StatusUnhealthy, record.Status)
	assert.Contains(t, record.Error, "503")
}

func TestCheckUnhealthyOnConnectionFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	c := NewChecker(newTestRegistry(t, registry.Service{Name: "weather", BaseURL: deadURL}))
	defer c.Close()

	record, err := c.Check(context.Background(), "weather")
	require.NoError(t, err)

	assert.Equal(t, StatusUnhealthy, record.Status)
	assert.NotEmpty(t, record.Error)
}

func TestCheckUnknownService(t *testing.T) {
	t.Parallel()

	c := NewChecker(newTestRegistry(t))
	defer c.Close()

	record, err := c.Check(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrUnknownService))
	assert.Equal(t, StatusUnknown, record.Status)
}

func TestCheckNeverRetriesAndNeverCaches(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewChecker(newTestRegistry(t, registry.Service{Name: "weather", BaseURL: srv.URL}))
	defer c.Close()

	first, err := c.Check(context.Background(), "weather")
	require.NoError(t, err)
	second, err := c.Check(context.Background(), "weather")
	require.NoError(t, err)

	// Two calls, two independent probes, two fresh timestamps.
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, second.CheckedAt.Before(first.CheckedAt))
}

func TestCheckProbeTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewChecker(
		newTestRegistry(t, registry.Service{Name: "weather", BaseURL: srv.URL}),
		WithProbeTimeout(30*time.Millisecond),
	)
	defer c.Close()

	start := time.Now()
	record, err := c.Check(context.Background(), "weather")
	require.NoError(t, err)

	assert.Equal(t, StatusUnhealthy, record.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCheckAllIsolatesSlowProbes(t *testing.T) {
	t.Parallel()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer fast.Close()

	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer hang.Close()

	c := NewChecker(
		newTestRegistry(t,
			registry.Service{Name: "analytics", BaseURL: hang.URL},
			registry.Service{Name: "fields", BaseURL: fast.URL},
			registry.Service{Name: "weather", BaseURL: fast.URL},
		),
		WithProbeTimeout(100*time.Millisecond),
	)
	defer c.Close()

	start := time.Now()
	records := c.CheckAll(context.Background())
	elapsed := time.Since(start)

	require.Len(t, records, 3)
	assert.Equal(t, StatusUnhealthy, records["analytics"].Status)
	assert.Equal(t, StatusHealthy, records["fields"].Status)
	assert.Equal(t, StatusHealthy, records["weather"].Status)

	// Probes run concurrently: total time is bounded by the slowest
	// single probe, not the sum.
	assert.Less(t, elapsed, 300*time.Millisecond)
}

func TestCachedReadsWithoutProbing(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewChecker(newTestRegistry(t,
		registry.Service{Name: "weather", BaseURL: srv.URL},
		registry.Service{Name: "fields", BaseURL: srv.URL},
	))
	defer c.Close()

	// Never probed: unknown.
	assert.Equal(t, StatusUnknown, c.Cached("weather").Status)

	_, err := c.Check(context.Background(), "weather")
	require.NoError(t, err)
	probes := calls.Load()

	cached := c.Cached("weather")
	assert.Equal(t, StatusHealthy, cached.Status)
	assert.Equal(t, probes, calls.Load(), "Cached must not probe")

	all := c.CachedAll()
	require.Len(t, all, 2)
	assert.Equal(t, StatusHealthy, all["weather"].Status)
	assert.Equal(t, StatusUnknown, all["fields"].Status)
	assert.Equal(t, probes, calls.Load())
}

func TestCheckStaleRecordStaysReadable(t *testing.T) {
	t.Parallel()

	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewChecker(newTestRegistry(t, registry.Service{Name: "weather", BaseURL: srv.URL}))
	defer c.Close()

	_, err := c.Check(context.Background(), "weather")
	require.NoError(t, err)
	require.Equal(t, StatusHealthy, c.Cached("weather").Status)

	// Backend degrades, but the cache is not invalidated by time alone.
	healthy.Store(false)
	assert.Equal(t, StatusHealthy, c.Cached("weather").Status)

	// The next probe overwrites it.
	_, err = c.Check(context.Background(), "weather")
	require.NoError(t, err)
	assert.Equal(t, StatusUnhealthy, c.Cached("weather").Status)
}
