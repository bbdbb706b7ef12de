package webhook

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultAddr = ":8069"

	readHeaderTimeout = 10 * time.Second
	// Long enough for end_call to wait out the playout bound.
	writeTimeout = 60 * time.Second
	idleTimeout  = 120 * time.Second
)

// Server runs the webhook router on its own listener.
type Server struct {
	addr    string
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	closed     bool
}

func NewServer(addr string, handler http.Handler) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{addr: addr, handler: handler}
}

// Start listens and serves until Shutdown. It blocks.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return http.ErrServerClosed
	}
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	slog.Info("starting webhook server", "addr", ln.Addr().String())
	return srv.Serve(ln)
}

// Shutdown gracefully stops the server. A Start after Shutdown returns
// http.ErrServerClosed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	slog.Info("shutting down webhook server")
	return srv.Shutdown(ctx)
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
