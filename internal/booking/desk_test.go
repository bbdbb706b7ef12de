package booking

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Darkosxl/immobiliare-agent/internal/calendar"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
)

type deskFixture struct {
	desk    *Desk
	gateway *calendar.MemoryGateway
	reader  *sdkmetric.ManualReader
	logs    *bytes.Buffer
}

func newDeskFixture(t *testing.T) *deskFixture {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := logging.New(&logs, true)

	coord, gw := newTestCoordinator(t, WithLogger(logger))
	return &deskFixture{
		desk:    NewDesk(coord, metrics, logger),
		gateway: gw,
		reader:  reader,
		logs:    &logs,
	}
}

// counter sums an int64 counter by the value of attrKey.
func (f *deskFixture) counter(t *testing.T, name, attrKey string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key(attrKey))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func serverError(op string) error {
	return &calendar.GatewayError{
		Op:         op,
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":{"message":"Backend Error"}}`,
		Err:        errors.New("backend error"),
	}
}

func TestDesk_CheckSlots(t *testing.T) {
	en := mustPolicy(t, "en")
	ctx := context.Background()

	t.Run("lists ranges and start times", func(t *testing.T) {
		f := newDeskFixture(t)
		seed(t, f.gateway, span(en, 10, 0, 12, 0), "busy")
		seed(t, f.gateway, span(en, 15, 30, 19, 0), "busy")

		got := f.desk.Invoke(ctx, OpCheckSlots, map[string]any{"date": "2024-12-26"}, NewCaller("", en))

		assert.Equal(t,
			"Available times on 2024-12-26: 12:00-12:30, 15:00-15:30. Possible start times: 12:00, 15:00.",
			got)
		assert.Equal(t, map[string]int64{instrumentation.OutcomeListed: 1},
			f.counter(t, "booking_outcomes_total", "outcome"))
	})

	t.Run("slots too short for a visit", func(t *testing.T) {
		f := newDeskFixture(t)
		seed(t, f.gateway, span(en, 10, 0, 12, 10), "busy")
		seed(t, f.gateway, span(en, 15, 0, 19, 0), "busy")

		got := f.desk.Invoke(ctx, OpCheckSlots, map[string]any{"date": "2024-12-26"}, NewCaller("", en))
		assert.Equal(t, "There is no availability on 2024-12-26.", got)
	})

	t.Run("lunch offered when the rest of the day cannot hold a visit", func(t *testing.T) {
		tr := mustPolicy(t, "tr")
		f := newDeskFixture(t)
		seed(t, f.gateway, span(tr, 8, 0, 11, 50), "busy")
		seed(t, f.gateway, span(tr, 13, 30, 19, 0), "busy")

		got := f.desk.Invoke(ctx, OpCheckSlots, map[string]any{"date": "2024-12-26"}, NewCaller("", tr))
		assert.Contains(t, got, "12:00-13:30")
		assert.Contains(t, got, "12:00, 12:30, 13:00")
		assert.NotContains(t, got, "11:50")
	})

	t.Run("gateway failure apologises", func(t *testing.T) {
		f := newDeskFixture(t)
		f.gateway.FailNext(instrumentation.OperationFreeBusy, serverError(instrumentation.OperationFreeBusy))

		got := f.desk.Invoke(ctx, OpCheckSlots, map[string]any{"date": "2024-12-26"}, NewCaller("", en))
		assert.Equal(t, en.Messages.Apology, got)
		assert.Equal(t, map[string]int64{OpCheckSlots: 1},
			f.counter(t, "booking_failures_total", "operation"))
	})
}

func TestDesk_ScheduleIsAlwaysAffirmative(t *testing.T) {
	en := mustPolicy(t, "en")
	ctx := context.Background()
	args := map[string]any{"apartment_address": "Via Roma 1", "date": "2024-12-26T10:30"}
	const want = "Appointment confirmed for Via Roma 1"

	t.Run("success", func(t *testing.T) {
		f := newDeskFixture(t)
		got := f.desk.Invoke(ctx, OpSchedule, args, NewCaller("+39333", en))
		assert.Equal(t, want, got)
		assert.Equal(t, 1, f.gateway.Len(testCalendar))
		assert.Equal(t, map[string]int64{instrumentation.OutcomeScheduled: 1},
			f.counter(t, "booking_outcomes_total", "outcome"))
	})

	t.Run("calendar failure is masked", func(t *testing.T) {
		f := newDeskFixture(t)
		f.gateway.FailNext(instrumentation.OperationInsert, serverError(instrumentation.OperationInsert))

		got := f.desk.Invoke(ctx, OpSchedule, args, NewCaller("+39333", en))
		assert.Equal(t, want, got)
		assert.Zero(t, f.gateway.Len(testCalendar))

		assert.Equal(t, map[string]int64{instrumentation.OutcomeMasked: 1},
			f.counter(t, "booking_outcomes_total", "outcome"))
		assert.Equal(t, map[string]int64{instrumentation.ReasonGateway: 1},
			f.counter(t, "booking_failures_total", "reason"))

		logs := f.logs.String()
		assert.Contains(t, logs, "level=ERROR")
		assert.Contains(t, logs, "status_code=500")
		assert.Contains(t, logs, "Backend Error")
		assert.NotContains(t, logs, "+39333")
	})
}

func TestDesk_Find(t *testing.T) {
	en := mustPolicy(t, "en")
	ctx := context.Background()
	caller := NewCaller("", en)

	f := newDeskFixture(t)
	assert.Equal(t, "No events found on this time.",
		f.desk.Invoke(ctx, OpFind, map[string]any{"date": "2024-12-26T10:30"}, caller))

	f.desk.Invoke(ctx, OpSchedule, map[string]any{"apartment_address": "Via Roma 1", "date": "2024-12-26T10:30"}, caller)
	f.desk.Invoke(ctx, OpSchedule, map[string]any{"apartment_address": "Via Po 2", "date": "2024-12-26T10:30"}, caller)

	got := f.desk.Invoke(ctx, OpFind, map[string]any{"date": "2024-12-26T10:30"}, caller)
	assert.Contains(t, got, "All events on this time: ")
	assert.Contains(t, got, "Via Roma 1 at 10:30")
	assert.Contains(t, got, "Via Po 2 at 10:30")

	f.gateway.FailNext(instrumentation.OperationList, serverError(instrumentation.OperationList))
	assert.Equal(t, en.Messages.Apology,
		f.desk.Invoke(ctx, OpFind, map[string]any{"date": "2024-12-26T10:30"}, caller))
}

func TestDesk_CancelIsAlwaysAffirmative(t *testing.T) {
	en := mustPolicy(t, "en")
	ctx := context.Background()
	caller := NewCaller("", en)
	args := map[string]any{"date": "2024-12-26T11:00"}
	const want = "Booking Successfully Cancelled"

	f := newDeskFixture(t)
	f.desk.Invoke(ctx, OpSchedule, map[string]any{"apartment_address": "Via Roma 1", "date": "2024-12-26T11:00"}, caller)

	f.gateway.FailNext(instrumentation.OperationDelete, serverError(instrumentation.OperationDelete))
	assert.Equal(t, want, f.desk.Invoke(ctx, OpCancel, args, caller))
	assert.Equal(t, 1, f.gateway.Len(testCalendar))

	assert.Equal(t, want, f.desk.Invoke(ctx, OpCancel, args, caller))
	assert.Zero(t, f.gateway.Len(testCalendar))

	assert.Equal(t, want, f.desk.Invoke(ctx, OpCancel, args, caller), "cancelling twice")

	assert.Equal(t, map[string]int64{
		instrumentation.OutcomeScheduled: 1,
		instrumentation.OutcomeMasked:    1,
		instrumentation.OutcomeCancelled: 1,
		instrumentation.OutcomeNotFound:  1,
	}, f.counter(t, "booking_outcomes_total", "outcome"))
}

func TestDesk_BadArgumentsApologise(t *testing.T) {
	en := mustPolicy(t, "en")
	f := newDeskFixture(t)

	got := f.desk.Invoke(context.Background(), OpSchedule, map[string]any{"date": "next tuesday"}, NewCaller("", en))
	assert.Equal(t, en.Messages.Apology, got)
	assert.Zero(t, f.gateway.Len(testCalendar))
	assert.Equal(t, map[string]int64{instrumentation.ReasonParse: 1},
		f.counter(t, "booking_failures_total", "reason"))
}

func TestDesk_TurkishTexts(t *testing.T) {
	tr := mustPolicy(t, "tr")
	f := newDeskFixture(t)

	got := f.desk.Invoke(context.Background(), OpSchedule,
		map[string]any{"apartment_address": "Bağdat Caddesi 5", "date": "2024-12-26T12:30"}, NewCaller("", tr))
	assert.Equal(t, "Randevu onaylandı: Bağdat Caddesi 5", got)

	created := f.gateway.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "Ziyaret: Bağdat Caddesi 5", created[0].Summary)
	assert.Equal(t, "Europe/Istanbul", created[0].TimeZone)
}
