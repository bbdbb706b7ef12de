package webhook

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Darkosxl/immobiliare-agent/internal/server"
)

const (
	// SecretHeader carries the shared secret configured on the platform.
	SecretHeader    = "X-Vapi-Secret"
	RequestIDHeader = "X-Request-ID"

	requestIDKey   = "request_id"
	unmatchedRoute = "unmatched"
)

// Options configures the webhook router.
type Options struct {
	// Secret is compared with the X-Vapi-Secret header. Empty disables the check.
	Secret string

	// Limiter throttles requests per client address. Nil disables throttling.
	Limiter *server.ClientLimiter

	// AllowedOrigins enables CORS for browser-based test consoles.
	AllowedOrigins []string

	// MaxParallelCalls bounds concurrent tool calls per request.
	MaxParallelCalls int
}

// NewRouter builds the gin engine serving the webhook routes.
func NewRouter(sc *server.ServerContext, opts Options) (*gin.Engine, error) {
	if sc == nil {
		return nil, errors.New("server context is required")
	}
	if opts.MaxParallelCalls <= 0 {
		opts.MaxParallelCalls = DefaultMaxParallelCalls
	}
	h := &handler{sc: sc, maxParallel: opts.MaxParallelCalls}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(accessLog(sc))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", SecretHeader, RequestIDHeader},
			ExposeHeaders: []string{RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/health", handleHealth)

	api := r.Group("")
	api.Use(rateLimit(sc, opts.Limiter))
	api.Use(requireSecret(opts.Secret))
	{
		api.POST("/tool-calls", h.handleToolCalls)
		api.POST("/tools/:"+toolParam, h.handleTool)
		api.POST("/events", h.handleEvent)
	}
	return r, nil
}

// requestID propagates or assigns an X-Request-ID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// accessLog logs and counts every request by its route pattern.
func accessLog(sc *server.ServerContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		sc.Metrics().RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, status, duration)
		sc.Logger().Debug("webhook request",
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", duration),
			slog.String(requestIDKey, c.GetString(requestIDKey)))
	}
}

func rateLimit(sc *server.ServerContext, l *server.ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			sc.Logger().Warn("Rate limit exceeded",
				slog.String("ip", ip),
				slog.String(requestIDKey, c.GetString(requestIDKey)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func requireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !server.SecretMatches(c.GetHeader(SecretHeader), secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
		c.Next()
	}
}
