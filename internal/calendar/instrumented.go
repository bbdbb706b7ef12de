package calendar

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
)

// InstrumentedGateway records a span and the calendar_operations metrics for
// every call.
type InstrumentedGateway struct {
	inner   Gateway
	metrics *instrumentation.Metrics
}

// NewInstrumentedGateway wraps inner. A nil metrics records spans only.
func NewInstrumentedGateway(inner Gateway, metrics *instrumentation.Metrics) *InstrumentedGateway {
	return &InstrumentedGateway{inner: inner, metrics: metrics}
}

func (g *InstrumentedGateway) QueryFreeBusy(ctx context.Context, calendarID string, min, max time.Time) ([]availability.Interval, error) {
	ctx, done := g.start(ctx, instrumentation.OperationFreeBusy, calendarID)
	busy, err := g.inner.QueryFreeBusy(ctx, calendarID, min, max)
	done(err)
	return busy, err
}

func (g *InstrumentedGateway) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	ctx, done := g.start(ctx, instrumentation.OperationInsert, calendarID)
	created, err := g.inner.CreateEvent(ctx, calendarID, input)
	if created != nil {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String(instrumentation.SpanAttrEventID, created.ID))
	}
	done(err)
	return created, err
}

func (g *InstrumentedGateway) ListEvents(ctx context.Context, calendarID string, min, max time.Time) ([]EventSummary, error) {
	ctx, done := g.start(ctx, instrumentation.OperationList, calendarID)
	events, err := g.inner.ListEvents(ctx, calendarID, min, max)
	done(err)
	return events, err
}

func (g *InstrumentedGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	ctx, done := g.start(ctx, instrumentation.OperationDelete, calendarID,
		attribute.String(instrumentation.SpanAttrEventID, eventID))
	err := g.inner.DeleteEvent(ctx, calendarID, eventID)
	done(err)
	return err
}

func (g *InstrumentedGateway) start(ctx context.Context, op, calendarID string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := instrumentation.StartCalendarSpan(ctx, op, calendarID, attrs...)
	return ctx, func(err error) {
		defer span.End()
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		g.metrics.RecordCalendarOperation(ctx, op, status, time.Since(started))
	}
}
