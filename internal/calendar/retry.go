package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
)

// RetryingGateway retries transient failures of idempotent calls with
// exponential backoff and jitter. CreateEvent is never retried: a request that
// timed out may still have created the event, and a second insert would book
// the slot twice.
type RetryingGateway struct {
	inner    Gateway
	maxTries uint
	metrics  *instrumentation.Metrics

	newBackOff func() backoff.BackOff
}

// NewRetryingGateway wraps inner. maxRetries is the number of extra attempts
// after the first one; zero disables retries.
func NewRetryingGateway(inner Gateway, maxRetries int, metrics *instrumentation.Metrics) *RetryingGateway {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingGateway{
		inner:    inner,
		maxTries: uint(maxRetries) + 1,
		metrics:  metrics,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

func (g *RetryingGateway) QueryFreeBusy(ctx context.Context, calendarID string, min, max time.Time) ([]availability.Interval, error) {
	return retry(ctx, g, instrumentation.OperationFreeBusy, func() ([]availability.Interval, error) {
		return g.inner.QueryFreeBusy(ctx, calendarID, min, max)
	})
}

func (g *RetryingGateway) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	return g.inner.CreateEvent(ctx, calendarID, input)
}

func (g *RetryingGateway) ListEvents(ctx context.Context, calendarID string, min, max time.Time) ([]EventSummary, error) {
	return retry(ctx, g, instrumentation.OperationList, func() ([]EventSummary, error) {
		return g.inner.ListEvents(ctx, calendarID, min, max)
	})
}

func (g *RetryingGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	_, err := retry(ctx, g, instrumentation.OperationDelete, func() (struct{}, error) {
		return struct{}{}, g.inner.DeleteEvent(ctx, calendarID, eventID)
	})
	return err
}

func retry[T any](ctx context.Context, g *RetryingGateway, op string, call func() (T, error)) (T, error) {
	attempt := 0
	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		if attempt > 1 {
			g.metrics.RecordCalendarRetry(ctx, op)
		}
		v, err := call()
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(g.newBackOff()),
		backoff.WithMaxTries(g.maxTries),
	)
	if err == nil {
		return result, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	var ge *GatewayError
	if !errors.As(err, &ge) {
		err = newGatewayError(op, err)
	}
	return result, err
}
