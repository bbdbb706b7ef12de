package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/callsession"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
	"github.com/Darkosxl/immobiliare-agent/internal/locale"
)

// ServerContext holds what the tool surfaces share: the booking desk, the live
// call registry and the agent's default locale.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	desk   *booking.Desk
	calls  *callsession.Registry
	policy locale.Policy

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. The registry is stopped by
// Shutdown.
func NewServerContext(ctx context.Context, desk *booking.Desk, calls *callsession.Registry, policy locale.Policy) (*ServerContext, error) {
	if desk == nil {
		return nil, errors.New("booking desk is required")
	}
	if calls == nil {
		return nil, errors.New("call registry is required")
	}
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		desk:   desk,
		calls:  calls,
		policy: policy,
		logger: slog.Default(),
	}, nil
}

// Context returns the server context. It is cancelled by Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) Desk() *booking.Desk {
	return sc.desk
}

func (sc *ServerContext) Calls() *callsession.Registry {
	return sc.calls
}

// Policy returns the locale used for callers that do not bring their own.
func (sc *ServerContext) Policy() locale.Policy {
	return sc.policy
}

// Caller builds the caller context for a session name.
func (sc *ServerContext) Caller(session string) booking.CallerContext {
	return booking.CallerFromSession(session, sc.policy)
}

// SetMetrics sets the metrics recorder used by tool handlers.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

func (sc *ServerContext) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.logger = logger
}

func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and stops the call registry.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	sc.calls.Stop()
	return nil
}
