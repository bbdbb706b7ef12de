package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/calendar"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
	"github.com/Darkosxl/immobiliare-agent/internal/locale"
)

func italianPolicy(t *testing.T) locale.Policy {
	t.Helper()
	policy, err := locale.Lookup("it")
	require.NoError(t, err)
	return policy
}

func TestExpandDays(t *testing.T) {
	policy := italianPolicy(t)
	loc := policy.Location()
	now := time.Date(2024, 12, 26, 22, 30, 0, 0, time.UTC) // 23:30 in Rome

	tests := []struct {
		name    string
		args    []string
		count   int
		want    []string
		wantErr bool
	}{
		{name: "today in office time", count: 1, want: []string{"2024-12-26"}},
		{name: "explicit dates", args: []string{"2025-01-07", "2025-01-09"}, count: 1, want: []string{"2025-01-07", "2025-01-09"}},
		{name: "range after last date", args: []string{"2024-12-30"}, count: 3, want: []string{"2024-12-30", "2024-12-31", "2025-01-01"}},
		{name: "zero days", count: 0, wantErr: true},
		{name: "invalid date", args: []string{"tomorrow"}, count: 1, wantErr: true},
		{name: "too many days", count: maxDaysPerLookup + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandDays(tt.args, tt.count, policy, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			var days []string
			for _, d := range got {
				assert.Equal(t, loc.String(), d.Location().String())
				days = append(days, d.Format(dayLayout))
			}
			assert.Equal(t, tt.want, days)
		})
	}
}

func TestCollectSlots(t *testing.T) {
	policy := italianPolicy(t)
	loc := policy.Location()
	gw := calendar.NewMemoryGateway()
	coord, err := booking.NewCoordinator(gw, "office@example.com")
	require.NoError(t, err)

	caller := booking.NewCaller("+393331234567", policy)
	_, err = coord.Schedule(context.Background(), "Via Roma 1", time.Date(2024, 12, 26, 10, 0, 0, 0, loc), caller)
	require.NoError(t, err)

	days := []time.Time{
		time.Date(2024, 12, 26, 0, 0, 0, 0, loc),
		time.Date(2024, 12, 27, 0, 0, 0, 0, loc),
	}
	results, err := collectSlots(context.Background(), coord, days, caller)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Day.Equal(days[0]))
	assert.True(t, results[1].Day.Equal(days[1]))
	require.NotEmpty(t, results[0].Starts)
	assert.Equal(t, "10:30", policy.FormatClock(results[0].Starts[0]))
	assert.Equal(t, "10:00", policy.FormatClock(results[1].Starts[0]))

	var out bytes.Buffer
	writeSlots(&out, policy, results)
	assert.Contains(t, out.String(), "2024-12-26  10:30-12:30, 15:00-19:00")
	assert.Contains(t, out.String(), "2024-12-27  10:00-12:30, 15:00-19:00")
}

func TestCollectSlots_GatewayError(t *testing.T) {
	policy := italianPolicy(t)
	gw := calendar.NewMemoryGateway()
	gw.FailNext(instrumentation.OperationFreeBusy, &calendar.GatewayError{
		Op:         instrumentation.OperationFreeBusy,
		StatusCode: 403,
		Err:        errors.New("forbidden"),
	})
	coord, err := booking.NewCoordinator(gw, "office@example.com")
	require.NoError(t, err)

	days := []time.Time{time.Date(2024, 12, 26, 0, 0, 0, 0, policy.Location())}
	_, err = collectSlots(context.Background(), coord, days, booking.NewCaller("", policy))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check 2024-12-26")
}

func TestWriteSlots_NoAvailability(t *testing.T) {
	policy := italianPolicy(t)
	day := time.Date(2024, 12, 26, 0, 0, 0, 0, policy.Location())

	var out bytes.Buffer
	writeSlots(&out, policy, []daySlots{{Day: day}})
	assert.Equal(t, "2024-12-26  no availability\n", out.String())
}
