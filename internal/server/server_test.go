package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avsvcgw/internal/config"
	"github.com/vyrodovalexey/avsvcgw/internal/executor"
	"github.com/vyrodovalexey/avsvcgw/internal/gateway"
)

// newTestServer builds a server over a gateway pointed at backendURL.
func newTestServer(t *testing.T, backendURL string) *Server {
	t.Helper()

	cfg := &config.Config{
		Services: []config.ServiceConfig{
			{Name: "weather", Address: backendURL},
		},
	}
	cfg.Gateway.Breaker.Threshold = 2
	cfg.Gateway.Breaker.Cooldown = config.Duration(time.Minute)
	cfg.Gateway.Retry.InitialBackoff = config.Duration(time.Millisecond)
	cfg.Normalize()

	gw, err := gateway.New(cfg, gateway.WithSession(RelaySession{}))
	require.NoError(t, err)
	t.Cleanup(gw.Close)

	return New(&cfg.Server, gw, nil)
}

func doRequest(s *Server, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) executor.Result {
	t.Helper()
	var res executor.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestProxySuccess(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast/today", r.URL.Path)
		assert.Equal(t, "celsius", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{"temp":21}`))
	}))
	defer backend.Close()

	s := newTestServer(t, backend.URL)

	w := doRequest(s, http.MethodGet, "/api/weather/forecast/today?units=celsius", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	res := decodeEnvelope(t, w)
	assert.True(t, res.Success)
	assert.JSONEq(t, `{"temp":21}`, string(res.Data))
	assert.Equal(t, "weather", res.Meta.Service)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestProxyForwardsBearerToken(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	s := newTestServer(t, backend.URL)

	w := doRequest(s, http.MethodGet, "/api/weather/me", "", map[string]string{
		"Authorization": "Bearer tok-9",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProxyAuthRejectedHeader(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer backend.Close()

	s := newTestServer(t, backend.URL)

	w := doRequest(s, http.MethodGet, "/api/weather/me", "", map[string]string{
		"Authorization": "Bearer stale",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "true", w.Header().Get(AuthRejectedHeader))
	res := decodeEnvelope(t, w)
	require.NotNil(t, res.Error)
	assert.Equal(t, executor.CodeClientError, res.Error.Code)
}

func TestProxyUnknownServiceMapsTo404(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, "http://localhost:1")

	w := doRequest(s, http.MethodGet, "/api/nope/list", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	res := decodeEnvelope(t, w)
	assert.Equal(t, executor.CodeConfigurationError, res.Error.Code)
}

func TestProxyCircuitOpenMapsTo503(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer backend.Close()

	s := newTestServer(t, backend.URL)

	// Threshold is two; two failed calls open the breaker.
	doRequest(s, http.MethodPost, "/api/weather/x", "", nil)
	doRequest(s, http.MethodPost, "/api/weather/x", "", nil)

	w := doRequest(s, http.MethodGet, "/api/weather/forecast", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	res := decodeEnvelope(t, w)
	assert.Equal(t, executor.CodeCircuitOpen, res.Error.Code)
	assert.Zero(t, res.Meta.Latency)
}

func TestProxyPostForwardsBody(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "maize", payload["crop"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer backend.Close()

	s := newTestServer(t, backend.URL)

	w := doRequest(s, http.MethodPost, "/api/weather/fields", `{"crop":"maize"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	res := decodeEnvelope(t, w)
	assert.True(t, res.Success)
	assert.Equal(t, http.StatusCreated, res.Meta.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer backend.Close()

	s := newTestServer(t, backend.URL)

	// Cached before any probe: unknown.
	w := doRequest(s, http.MethodGet, "/v1/health/cached", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unknown"`)

	// Single probe.
	w = doRequest(s, http.MethodGet, "/v1/health/weather", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	// Unknown service.
	w = doRequest(s, http.MethodGet, "/v1/health/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Batch probe.
	w = doRequest(s, http.MethodGet, "/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestBreakersEndpoint(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	s := newTestServer(t, backend.URL)
	doRequest(s, http.MethodPost, "/api/weather/x", "", nil)

	w := doRequest(s, http.MethodGet, "/v1/breakers", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var snaps map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snaps))
	require.Contains(t, snaps, "weather")
	assert.Equal(t, "closed", snaps["weather"]["state"])
	assert.Equal(t, float64(1), snaps["weather"]["consecutiveFailures"])
}

func TestLivenessEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, "http://localhost:1")

	w := doRequest(s, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, "http://localhost:1")

	w := doRequest(s, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}
