package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Transports served over HTTP.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// MCPHTTPOptions configures an MCPHTTPServer.
type MCPHTTPOptions struct {
	// Secret, when set, must be presented as "Authorization: Bearer <secret>".
	Secret string

	Limiter *ClientLimiter
	Health  *HealthChecker
	Logger  *slog.Logger
}

// MCPHTTPServer exposes an MCP server over SSE or streamable HTTP.
type MCPHTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	serverType string
	opts       MCPHTTPOptions

	mu         sync.Mutex
	httpServer *http.Server
	closed     bool
}

// NewMCPHTTPServer creates an MCPHTTPServer for serverType.
func NewMCPHTTPServer(mcpServer *mcpserver.MCPServer, serverType string, opts MCPHTTPOptions) (*MCPHTTPServer, error) {
	switch serverType {
	case TransportSSE, TransportStreamableHTTP:
	default:
		return nil, fmt.Errorf("unsupported server type: %s", serverType)
	}
	return &MCPHTTPServer{mcpServer: mcpServer, serverType: serverType, opts: opts}, nil
}

// Handler returns the routed handler with authentication and rate limiting.
func (s *MCPHTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.Handler) http.Handler {
		return s.opts.Limiter.Middleware(s.opts.Logger, requireBearer(s.opts.Secret, h))
	}

	switch s.serverType {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", protect(sseServer))
		mux.Handle("/message", protect(sseServer))

	case TransportStreamableHTTP:
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
		mux.Handle("/mcp", protect(httpServer))
	}

	if s.opts.Health != nil {
		s.opts.Health.RegisterHealthEndpoints(mux)
	}
	return mux
}

// Start serves on addr until Shutdown. It blocks.
func (s *MCPHTTPServer) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.httpServer = srv
	s.mu.Unlock()
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server; a later Start returns
// http.ErrServerClosed.
func (s *MCPHTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func requireBearer(secret string, next http.Handler) http.Handler {
	if secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !SecretMatches(token, secret) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
