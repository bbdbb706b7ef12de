package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrRoute     = "route"
	attrStatus    = "status"
	attrOperation = "operation"
	attrTool      = "tool"
	attrLocale    = "locale"
	attrOutcome   = "outcome"
	attrReason    = "reason"
)

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// Metrics records the agent's metrics. The zero value is a no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeCalls         metric.Int64UpDownCounter

	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram
	calendarRetriesTotal      metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	bookingOutcomesTotal metric.Int64Counter
	bookingFailuresTotal metric.Int64Counter

	// detailedLabels adds high-cardinality labels such as the locale.
	detailedLabels bool
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error
	counter := func(dst *metric.Int64Counter, name, desc, unit string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			err = fmt.Errorf("failed to create %s counter: %w", name, err)
		}
	}
	histogram := func(dst *metric.Float64Histogram, name, desc string, buckets ...float64) {
		if err != nil {
			return
		}
		*dst, err = meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...),
		)
		if err != nil {
			err = fmt.Errorf("failed to create %s histogram: %w", name, err)
		}
	}

	counter(&m.httpRequestsTotal, "http_requests_total", "Total number of webhook HTTP requests", "{request}")
	histogram(&m.httpRequestDuration, "http_request_duration_seconds", "Webhook HTTP request duration in seconds",
		0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0)

	counter(&m.calendarOperationsTotal, "calendar_operations_total", "Total number of calendar gateway operations", "{operation}")
	histogram(&m.calendarOperationDuration, "calendar_operation_duration_seconds", "Calendar gateway operation duration in seconds", durationBuckets...)
	counter(&m.calendarRetriesTotal, "calendar_retries_total", "Total number of retried calendar gateway attempts", "{attempt}")

	counter(&m.toolInvocationsTotal, "tool_invocations_total", "Total number of tool invocations", "{invocation}")
	histogram(&m.toolDuration, "tool_duration_seconds", "Tool execution duration in seconds", durationBuckets...)

	counter(&m.bookingOutcomesTotal, "booking_outcomes_total", "Caller-visible outcomes of booking operations", "{operation}")
	counter(&m.bookingFailuresTotal, "booking_failures_total", "Booking failures hidden from the caller", "{failure}")
	if err != nil {
		return nil, err
	}

	m.activeCalls, err = meter.Int64UpDownCounter("active_calls",
		metric.WithDescription("Number of calls with an open session"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_calls gauge: %w", err)
	}
	return m, nil
}

// RecordHTTPRequest records a webhook request. route is the matched route
// pattern, never the raw path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrRoute, route),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarOperation records one gateway call (all retries included).
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.calendarOperationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.calendarOperationsTotal.Add(ctx, 1, attrs)
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarRetry counts one retried gateway attempt.
func (m *Metrics) RecordCalendarRetry(ctx context.Context, operation string) {
	if m == nil || m.calendarRetriesTotal == nil {
		return
	}
	m.calendarRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordToolInvocation records a tool call. The locale label is only added when
// detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, locale string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	kv := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && locale != "" {
		kv = append(kv, attribute.String(attrLocale, locale))
	}
	attrs := metric.WithAttributes(kv...)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordBookingOutcome counts what the caller was told.
func (m *Metrics) RecordBookingOutcome(ctx context.Context, operation, outcome string) {
	if m == nil || m.bookingOutcomesTotal == nil {
		return
	}
	m.bookingOutcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrOutcome, outcome),
	))
}

// RecordBookingFailure counts a failure that the caller did not hear about.
func (m *Metrics) RecordBookingFailure(ctx context.Context, operation, reason string) {
	if m == nil || m.bookingFailuresTotal == nil {
		return
	}
	m.bookingFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrReason, reason),
	))
}

func (m *Metrics) IncrementActiveCalls(ctx context.Context) {
	if m == nil || m.activeCalls == nil {
		return
	}
	m.activeCalls.Add(ctx, 1)
}

func (m *Metrics) DecrementActiveCalls(ctx context.Context) {
	if m == nil || m.activeCalls == nil {
		return
	}
	m.activeCalls.Add(ctx, -1)
}
