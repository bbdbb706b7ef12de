package callsession

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
)

const (
	// DefaultMaxPlayoutWait bounds how long End waits for speech to finish.
	DefaultMaxPlayoutWait = 30 * time.Second

	// EndCallTool is the tool name agents use to end a call.
	EndCallTool = "end_call"
	// DefaultEndReason is recorded when the agent gives no reason.
	DefaultEndReason = "user_requested"
)

// HangupFunc terminates a call on the telephony side.
type HangupFunc func(ctx context.Context, call *Call, reason string) error

// Call is one live conversation.
type Call struct {
	ID     string
	Caller booking.CallerContext

	hangup         HangupFunc
	maxPlayoutWait time.Duration
	logger         *slog.Logger

	mu         sync.Mutex
	speaking   int
	idle       chan struct{} // closed when speaking drops to zero
	release    func()        // pending speech started by an event
	lastActive time.Time

	endOnce   sync.Once
	ended     chan struct{}
	endReason string
	endErr    error
}

func newCall(id string, caller booking.CallerContext, hangup HangupFunc, maxWait time.Duration, logger *slog.Logger) *Call {
	return &Call{
		ID:             id,
		Caller:         caller,
		hangup:         hangup,
		maxPlayoutWait: maxWait,
		logger:         logger.With(logging.Session(id)),
		lastActive:     time.Now(),
		ended:          make(chan struct{}),
	}
}

// BeginSpeech marks the start of an utterance. The returned function marks its
// end and may be called more than once.
func (c *Call) BeginSpeech() (done func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginLocked()
}

func (c *Call) beginLocked() func() {
	c.speaking++
	if c.speaking == 1 {
		c.idle = make(chan struct{})
	}
	c.lastActive = time.Now()

	var once sync.Once
	return func() {
		once.Do(c.endSpeech)
	}
}

func (c *Call) endSpeech() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking--
	if c.speaking == 0 {
		close(c.idle)
	}
}

// SpeechStarted and SpeechStopped translate start/stop events into
// BeginSpeech pairs. Repeated events of the same kind are ignored.
func (c *Call) SpeechStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.release == nil {
		c.release = c.beginLocked()
	}
}

func (c *Call) SpeechStopped() {
	c.mu.Lock()
	done := c.release
	c.release = nil
	c.mu.Unlock()
	if done != nil {
		done()
	}
}

// Speaking reports whether an utterance is in flight.
func (c *Call) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking > 0
}

// WaitForPlayout blocks until no utterance is in flight or ctx is done.
func (c *Call) WaitForPlayout(ctx context.Context) error {
	c.mu.Lock()
	if c.speaking == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// End waits for the current playout and hangs up. Only the first call runs the
// hangup; later calls wait for it and return its result.
func (c *Call) End(ctx context.Context, reason string) error {
	c.endOnce.Do(func() {
		waitCtx, cancel := context.WithTimeout(ctx, c.maxPlayoutWait)
		if err := c.WaitForPlayout(waitCtx); err != nil {
			c.logger.Warn("playout still running, hanging up", logging.Err(err))
		}
		cancel()

		if c.hangup != nil {
			c.endErr = c.hangup(ctx, c, reason)
		}
		c.endReason = reason
		c.logger.Info("call ended", slog.String("reason", reason), logging.Err(c.endErr))
		close(c.ended)
	})
	return c.endErr
}

// finish marks a call as ended by the remote side without hanging up.
func (c *Call) finish(reason string) {
	c.endOnce.Do(func() {
		c.endReason = reason
		close(c.ended)
	})
}

// Done is closed once the call has ended.
func (c *Call) Done() <-chan struct{} {
	return c.ended
}

// EndReason returns the reason given to End, or "" while the call is live.
func (c *Call) EndReason() string {
	select {
	case <-c.ended:
		return c.endReason
	default:
		return ""
	}
}

func (c *Call) touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

func (c *Call) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}
