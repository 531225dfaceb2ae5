package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avsvcgw/internal/observability"
	"github.com/vyrodovalexey/avsvcgw/internal/util"
)

// RequestIDHeader is the request correlation header.
const RequestIDHeader = "X-Request-ID"

// RequestID propagates an inbound request ID or generates one, putting
// it in the request context and the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := observability.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}

// Logging logs one line per request.
func Logging(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request handled",
			observability.String("method", c.Request.Method),
			observability.String("path", path),
			observability.Int("status", c.Writer.Status()),
			observability.Duration("latency", time.Since(start)),
			observability.String("request_id", observability.RequestIDFromContext(c.Request.Context())),
		)
	}
}

// Recovery converts panics into 500 answers instead of crashing the
// process.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					observability.String("path", c.Request.URL.Path),
					observability.String("method", c.Request.Method),
					observability.Any("error", err),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					gin.H{"error": "internal server error"})
			}
		}()

		c.Next()
	}
}

// clientEntry holds a per-client limiter and its last access time for
// TTL-based cleanup.
type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies an in-memory token-bucket limit, globally or per
// client IP. Idle per-client entries are dropped after a TTL so the map
// does not grow without bound.
type RateLimiter struct {
	limiter   *rate.Limiter
	perClient bool
	rps       int
	burst     int
	clientTTL time.Duration

	mu      sync.Mutex
	clients map[string]*clientEntry
	stopCh  chan struct{}
	stopped bool
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(rps, burst int, perClient bool) *RateLimiter {
	rl := &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		perClient: perClient,
		rps:       rps,
		burst:     burst,
		clientTTL: 10 * time.Minute,
		clients:   make(map[string]*clientEntry),
		stopCh:    make(chan struct{}),
	}

	if perClient {
		go rl.cleanupLoop()
	}

	return rl
}

// Allow checks whether a request from the client is admitted.
func (rl *RateLimiter) Allow(clientIP string) bool {
	if !rl.perClient {
		return rl.limiter.Allow()
	}

	now := time.Now()

	rl.mu.Lock()
	entry, ok := rl.clients[clientIP]
	if !ok {
		entry = &clientEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
		}
		rl.clients[clientIP] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !rl.stopped {
		rl.stopped = true
		close(rl.stopCh)
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.clientTTL)
			rl.mu.Lock()
			for ip, entry := range rl.clients {
				if entry.lastAccess.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimit returns a middleware enforcing the limiter.
func RateLimit(rl *RateLimiter, logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			limitErr := util.NewRateLimitError(rl.rps, time.Second)
			logger.Warn("rate limit exceeded",
				observability.String("client_ip", c.ClientIP()),
				observability.String("path", c.Request.URL.Path),
				observability.Error(limitErr),
			)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": limitErr.Error()})
			return
		}

		c.Next()
	}
}

// errInboundFailure marks a 5xx answer for the inbound breaker's counts.
var errInboundFailure = errors.New("gateway answered 5xx")

// NewInboundBreaker builds the gateway-level breaker that sheds inbound
// load when the gateway itself keeps failing. It trips on a 50% failure
// ratio once the request count reaches the threshold, complementing the
// per-backend breakers that guard individual services.
func NewInboundBreaker(threshold int, timeout time.Duration, logger observability.Logger) *gobreaker.CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	thresholdU32 := uint32(threshold) //nolint:gosec // clamped above

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gateway-inbound",
		MaxRequests: thresholdU32,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= thresholdU32 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("inbound circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})
}

// InboundBreaker returns a middleware gating all inbound traffic on the
// breaker. Open state answers 503 without running the handler.
func InboundBreaker(cb *gobreaker.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := cb.Execute(func() (any, error) {
			c.Next()
			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, errInboundFailure
			}
			return nil, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "gateway temporarily unavailable"})
		}
	}
}
