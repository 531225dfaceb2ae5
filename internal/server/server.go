package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avsvcgw/internal/config"
	"github.com/vyrodovalexey/avsvcgw/internal/gateway"
	"github.com/vyrodovalexey/avsvcgw/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions.
var ginModeOnce sync.Once

// Server is the HTTP surface the front-end talks to.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *config.ServerConfig
	logger     observability.Logger

	// gateway is swapped atomically on configuration reload; in-flight
	// requests finish against the instance they started with.
	gateway atomic.Pointer[gateway.Gateway]

	rateLimiter *RateLimiter

	mu      sync.Mutex
	running bool
}

// New creates a server over a gateway.
func New(cfg *config.ServerConfig, gw *gateway.Gateway, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		engine: gin.New(),
		config: cfg,
		logger: logger,
	}
	s.gateway.Store(gw)

	s.engine.Use(RequestID())
	s.engine.Use(Logging(logger))
	s.engine.Use(Recovery(logger))

	if cfg.MaxRequestBodySize > 0 {
		s.engine.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxRequestBodySize)
			c.Next()
		})
	}

	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerSecond,
			cfg.RateLimit.Burst,
			cfg.RateLimit.PerClient,
		)
		s.engine.Use(RateLimit(s.rateLimiter, logger))
	}

	if cfg.Breaker.Enabled {
		cb := NewInboundBreaker(cfg.Breaker.Threshold, cfg.Breaker.Timeout.Duration(), logger)
		s.engine.Use(InboundBreaker(cb))
	}

	s.registerRoutes()

	return s
}

// Gateway returns the gateway currently serving requests.
func (s *Server) Gateway() *gateway.Gateway {
	return s.gateway.Load()
}

// SwapGateway atomically replaces the gateway, returning the previous
// instance so the caller can close it after in-flight requests drain.
func (s *Server) SwapGateway(gw *gateway.Gateway) *gateway.Gateway {
	return s.gateway.Swap(gw)
}

// Engine returns the underlying gin engine, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start starts the server and blocks until it stops.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout.Duration(),
		WriteTimeout: s.config.WriteTimeout.Duration(),
		IdleTimeout:  s.config.IdleTimeout.Duration(),
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
