package callsession

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
)

// DefaultIdleTimeout drops calls that saw no activity for this long. It covers
// calls whose end was never reported.
const DefaultIdleTimeout = 2 * time.Hour

// Registry holds the live calls of the process.
type Registry struct {
	calls map[string]*Call
	mu    sync.RWMutex

	hangup         HangupFunc
	metrics        *instrumentation.Metrics
	logger         *slog.Logger
	idleTimeout    time.Duration
	maxPlayoutWait time.Duration

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

func WithMetrics(m *instrumentation.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

func WithMaxPlayoutWait(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.maxPlayoutWait = d
		}
	}
}

// NewRegistry creates a Registry and starts its idle-call cleanup. Call Stop to
// release it.
func NewRegistry(hangup HangupFunc, opts ...RegistryOption) *Registry {
	r := &Registry{
		calls:          make(map[string]*Call),
		hangup:         hangup,
		logger:         slog.Default(),
		idleTimeout:    DefaultIdleTimeout,
		maxPlayoutWait: DefaultMaxPlayoutWait,
		cleanupDone:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	interval := r.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	r.cleanupTicker = time.NewTicker(interval)
	go r.cleanupIdleCalls()

	return r
}

// Open returns the live call with id, registering it for caller first if it
// is new.
func (r *Registry) Open(id string, caller booking.CallerContext) *Call {
	r.mu.Lock()
	call, ok := r.calls[id]
	if !ok {
		call = newCall(id, caller, r.hangup, r.maxPlayoutWait, r.logger)
		r.calls[id] = call
	}
	r.mu.Unlock()

	if ok {
		call.touch()
	} else {
		r.metrics.IncrementActiveCalls(context.Background())
	}
	return call
}

// Get returns the live call with id.
func (r *Registry) Get(id string) (*Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	call, ok := r.calls[id]
	return call, ok
}

// End hangs up the call with id after its playout and forgets it.
func (r *Registry) End(ctx context.Context, id string, caller booking.CallerContext, reason string) error {
	call := r.Open(id, caller)
	err := call.End(ctx, reason)
	r.remove(id, call)
	return err
}

// Close forgets a call that ended on the remote side. It does not hang up.
func (r *Registry) Close(id, reason string) {
	call, ok := r.Get(id)
	if !ok {
		return
	}
	call.finish(reason)
	r.remove(id, call)
}

// Len returns the number of live calls.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calls)
}

func (r *Registry) remove(id string, call *Call) {
	r.mu.Lock()
	current, ok := r.calls[id]
	if ok && current == call {
		delete(r.calls, id)
	}
	r.mu.Unlock()

	if ok && current == call {
		r.metrics.DecrementActiveCalls(context.Background())
	}
}

func (r *Registry) cleanupIdleCalls() {
	for {
		select {
		case <-r.cleanupTicker.C:
			r.sweep(time.Now())
		case <-r.cleanupDone:
			return
		}
	}
}

// sweep drops calls idle since before now minus the idle timeout.
func (r *Registry) sweep(now time.Time) int {
	r.mu.Lock()
	var expired []*Call
	for id, call := range r.calls {
		if now.Sub(call.idleSince()) > r.idleTimeout {
			delete(r.calls, id)
			expired = append(expired, call)
		}
	}
	r.mu.Unlock()

	for _, call := range expired {
		call.finish("idle")
		r.metrics.DecrementActiveCalls(context.Background())
	}
	if len(expired) > 0 {
		r.logger.Info("Cleaned up idle calls", "count", len(expired))
	}
	return len(expired)
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		r.cleanupTicker.Stop()
		close(r.cleanupDone)
	})
}
