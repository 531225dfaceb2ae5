package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/avsvcgw/internal/executor"
	"github.com/vyrodovalexey/avsvcgw/internal/util"
)

// registerRoutes wires all endpoints.
func (s *Server) registerRoutes() {
	s.engine.Any("/api/:service/*path", s.handleProxy)

	v1 := s.engine.Group("/v1")
	v1.GET("/health", s.handleHealthAll)
	v1.GET("/health/cached", s.handleHealthCached)
	v1.GET("/health/:service", s.handleHealthService)
	v1.GET("/breakers", s.handleBreakers)

	s.engine.GET("/healthz", s.handleLiveness)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// handleProxy brokers one front-end call to a backend service and
// answers with the result envelope.
func (s *Server) handleProxy(c *gin.Context) {
	service := c.Param("service")
	path := c.Param("path")
	method := c.Request.Method

	ctx, state := contextWithSession(c.Request.Context(), c.GetHeader("Authorization"))

	var body any
	if method != http.MethodGet && method != http.MethodHead && c.Request.Body != nil {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		if len(data) > 0 {
			body = json.RawMessage(data)
		}
	}

	res := s.Gateway().Request(ctx, executor.Request{
		Service:    service,
		Method:     method,
		Path:       path,
		Query:      c.Request.URL.Query(),
		Body:       body,
		Idempotent: method == http.MethodGet || method == http.MethodHead,
	})

	if state.wasRejected() {
		c.Header(AuthRejectedHeader, "true")
	}

	c.JSON(statusFor(res), res)
}

// statusFor maps an envelope to the HTTP status of the gateway's answer.
func statusFor(res *executor.Result) int {
	if res.Success {
		return http.StatusOK
	}

	switch res.Error.Code {
	case executor.CodeCircuitOpen:
		return http.StatusServiceUnavailable
	case executor.CodeTimeout:
		return http.StatusGatewayTimeout
	case executor.CodeServerError, executor.CodeRequestFailed:
		return http.StatusBadGateway
	case executor.CodeClientError:
		return http.StatusBadRequest
	case executor.CodeConfigurationError:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// handleHealthAll probes every registered service.
func (s *Server) handleHealthAll(c *gin.Context) {
	c.JSON(http.StatusOK, s.Gateway().CheckAllServicesHealth(c.Request.Context()))
}

// handleHealthCached returns the last records without probing.
func (s *Server) handleHealthCached(c *gin.Context) {
	c.JSON(http.StatusOK, s.Gateway().CachedHealth())
}

// handleHealthService probes one service.
func (s *Server) handleHealthService(c *gin.Context) {
	record, err := s.Gateway().CheckServiceHealth(c.Request.Context(), c.Param("service"))
	if err != nil {
		if errors.Is(err, util.ErrUnknownService) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// handleBreakers returns a snapshot of every circuit breaker.
func (s *Server) handleBreakers(c *gin.Context) {
	c.JSON(http.StatusOK, s.Gateway().BreakerStatus())
}

// handleLiveness answers for the daemon itself, not the backends.
func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
