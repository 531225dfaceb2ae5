package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Port is the port to listen on.
	Port int

	// Path is the path to serve metrics on.
	Path string

	// ReadTimeout is the read timeout for the server.
	ReadTimeout time.Duration

	// WriteTimeout is the write timeout for the server.
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns a MetricsServerConfig with default values.
func DefaultMetricsServerConfig() MetricsServerConfig {
	return MetricsServerConfig{
		Port:         9091,
		Path:         "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// MetricsServer exposes the default Prometheus registry over HTTP on a
// dedicated port, separate from the gateway's API surface.
type MetricsServer struct {
	config   MetricsServerConfig
	server   *http.Server
	logger   Logger
	stopOnce sync.Once
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(cfg MetricsServerConfig, logger Logger) *MetricsServer {
	if logger == nil {
		logger = NopLogger()
	}
	return &MetricsServer{
		config: cfg,
		logger: logger,
	}
}

// Start starts the metrics server and blocks until the context is canceled
// or the listener fails.
func (s *MetricsServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.Handle(s.config.Path, promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{
			ErrorLog:            &promErrorLogger{logger: s.logger},
			ErrorHandling:       promhttp.ContinueOnError,
			MaxRequestsInFlight: 10,
			Timeout:             s.config.WriteTimeout,
			EnableOpenMetrics:   true,
		},
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.Debug("failed to write health response", Error(err))
		}
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting metrics server",
		Int("port", s.config.Port),
		String("path", s.config.Path),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		return err
	}
}

// Stop gracefully shuts down the metrics server.
func (s *MetricsServer) Stop(ctx context.Context) error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.logger.Info("stopping metrics server")
		if s.server != nil {
			stopErr = s.server.Shutdown(ctx)
		}
	})
	return stopErr
}

// promErrorLogger adapts Logger to the promhttp.Logger interface.
type promErrorLogger struct {
	logger Logger
}

// Println implements promhttp.Logger.
func (l *promErrorLogger) Println(v ...interface{}) {
	l.logger.Error(fmt.Sprint(v...))
}
