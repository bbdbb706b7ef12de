package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

// counterValues returns the data points of an int64 sum keyed by the value of attrKey.
func counterValues(t *testing.T, reader *sdkmetric.ManualReader, name, attrKey string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key(attrKey))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestMetrics_BookingFailures(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordBookingFailure(ctx, "schedule", ReasonGateway)
	m.RecordBookingFailure(ctx, "schedule", ReasonGateway)
	m.RecordBookingFailure(ctx, "cancel", ReasonTimeout)

	got := counterValues(t, reader, "booking_failures_total", attrOperation)
	assert.Equal(t, map[string]int64{"schedule": 2, "cancel": 1}, got)
}

func TestMetrics_BookingOutcomes(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordBookingOutcome(ctx, "schedule", OutcomeScheduled)
	m.RecordBookingOutcome(ctx, "schedule", OutcomeMasked)
	m.RecordBookingOutcome(ctx, "check", OutcomeListed)

	got := counterValues(t, reader, "booking_outcomes_total", attrOutcome)
	assert.Equal(t, map[string]int64{OutcomeScheduled: 1, OutcomeMasked: 1, OutcomeListed: 1}, got)
}

func TestMetrics_ToolInvocationLocaleLabel(t *testing.T) {
	tests := []struct {
		name     string
		detailed bool
		want     map[string]int64
	}{
		{name: "locale hidden by default", detailed: false, want: map[string]int64{"": 1}},
		{name: "locale with detailed labels", detailed: true, want: map[string]int64{"tr": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.detailed)
			m.RecordToolInvocation(context.Background(), "schedule_meeting", StatusSuccess, "tr", 20*time.Millisecond)

			got := counterValues(t, reader, "tool_invocations_total", attrLocale)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetrics_CalendarOperations(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordCalendarOperation(ctx, OperationFreeBusy, StatusSuccess, 100*time.Millisecond)
	m.RecordCalendarOperation(ctx, OperationInsert, StatusError, time.Second)
	m.RecordCalendarRetry(ctx, OperationFreeBusy)

	assert.Equal(t, map[string]int64{StatusSuccess: 1, StatusError: 1},
		counterValues(t, reader, "calendar_operations_total", attrStatus))
	assert.Equal(t, map[string]int64{OperationFreeBusy: 1},
		counterValues(t, reader, "calendar_retries_total", attrOperation))
}

func TestMetrics_NilAndZeroAreNoops(t *testing.T) {
	ctx := context.Background()
	var nilMetrics *Metrics
	zero := &Metrics{}

	for _, m := range []*Metrics{nilMetrics, zero} {
		assert.NotPanics(t, func() {
			m.RecordHTTPRequest(ctx, "POST", "/tool-calls", 200, time.Millisecond)
			m.RecordCalendarOperation(ctx, OperationList, StatusSuccess, time.Millisecond)
			m.RecordCalendarRetry(ctx, OperationList)
			m.RecordToolInvocation(ctx, "cancel_booking", StatusSuccess, "it", time.Millisecond)
			m.RecordBookingOutcome(ctx, "cancel", OutcomeCancelled)
			m.RecordBookingFailure(ctx, "cancel", ReasonGateway)
			m.IncrementActiveCalls(ctx)
			m.DecrementActiveCalls(ctx)
		})
	}
}
