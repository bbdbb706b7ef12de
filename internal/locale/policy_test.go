package locale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := Lookup(name)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name)
			assert.Equal(t, 30*time.Minute, p.Duration())
			assert.NotEmpty(t, p.Messages.Confirmation)
			assert.NotEmpty(t, p.Messages.Apology)
		})
	}

	_, err := Lookup("xx")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"en", "it", "tr"}, Names())
}

func TestShiftsOn(t *testing.T) {
	p, err := Lookup("it")
	require.NoError(t, err)

	day := time.Date(2024, time.December, 26, 0, 0, 0, 0, time.UTC)
	shifts, err := p.ShiftsOn(day)
	require.NoError(t, err)
	require.Len(t, shifts, 2)

	assert.Equal(t, "morning", shifts[0].Name)
	assert.Equal(t, "2024-12-26T10:00:00+01:00", shifts[0].Window.Start.Format(time.RFC3339))
	assert.Equal(t, "2024-12-26T12:30:00+01:00", shifts[0].Window.End.Format(time.RFC3339))
	assert.Equal(t, "2024-12-26T15:00:00+01:00", shifts[1].Window.Start.Format(time.RFC3339))
	assert.Equal(t, "2024-12-26T19:00:00+01:00", shifts[1].Window.End.Format(time.RFC3339))

	hours, err := p.BusinessHours(day)
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour, hours.Duration())
}

func TestShiftsOnUsesPolicyDay(t *testing.T) {
	p, err := Lookup("tr")
	require.NoError(t, err)

	// 22:30 UTC on the 25th is already the 26th in Istanbul.
	instant := time.Date(2024, time.December, 25, 22, 30, 0, 0, time.UTC)
	shifts, err := p.ShiftsOn(instant)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, "2024-12-26T08:00:00+03:00", shifts[0].Window.Start.Format(time.RFC3339))
}

func TestExclusionOn(t *testing.T) {
	day := time.Date(2024, time.December, 26, 0, 0, 0, 0, time.UTC)

	it, err := Lookup("it")
	require.NoError(t, err)
	zone, err := it.ExclusionOn(day)
	require.NoError(t, err)
	assert.True(t, zone.IsZero())

	tr, err := Lookup("tr")
	require.NoError(t, err)
	zone, err = tr.ExclusionOn(day)
	require.NoError(t, err)
	assert.False(t, zone.IsZero())
	assert.Equal(t, "12:00", tr.FormatClock(zone.Start))
	assert.Equal(t, "13:30", tr.FormatClock(zone.End))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Policy)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(p *Policy) { p.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "no shifts",
			mutate:  func(p *Policy) { p.Shifts = nil },
			wantErr: "at least one shift",
		},
		{
			name: "overlapping shifts",
			mutate: func(p *Policy) {
				p.Shifts = []ShiftSpec{
					{Name: "a", ClockRange: ClockRange{Start: "09:00", End: "12:00"}},
					{Name: "b", ClockRange: ClockRange{Start: "11:00", End: "13:00"}},
				}
			},
			wantErr: "must not overlap",
		},
		{
			name: "inverted shift",
			mutate: func(p *Policy) {
				p.Shifts = []ShiftSpec{{Name: "a", ClockRange: ClockRange{Start: "12:00", End: "09:00"}}}
			},
			wantErr: "start must be before end",
		},
		{
			name: "bad clock",
			mutate: func(p *Policy) {
				p.Exclusion = &ClockRange{Start: "noon", End: "13:00"}
			},
			wantErr: "expected HH:MM",
		},
		{
			name:    "unknown zone without offset",
			mutate:  func(p *Policy) { p.TimeZone, p.UTCOffset = "Mars/Olympus", "" },
			wantErr: "unknown time zone",
		},
		{
			name:    "unsupported reminder",
			mutate:  func(p *Policy) { p.Reminders = []Reminder{{Method: "sms", Minutes: 5}} },
			wantErr: "unsupported reminder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Italian()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocationFallsBackToOffset(t *testing.T) {
	p := Italian()
	p.TimeZone = "Mars/Olympus"
	p.UTCOffset = "+02:00"
	require.NoError(t, p.Validate())

	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, p.Location()).Zone()
	assert.Equal(t, 2*3600, offset)
}

func TestRender(t *testing.T) {
	got := Render("Visita: {subject} ({missing})", map[string]string{"subject": "Via Roma 1"})
	assert.Equal(t, "Visita: Via Roma 1 ({missing})", got)
}

func TestParse(t *testing.T) {
	doc := []byte(`
base: tr
name: tr-short
shifts:
  - name: day
    start: "10:00"
    end: "16:00"
slot_duration: 45m
messages:
  confirmation: "Tamam: {subject}"
`)
	p, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "tr-short", p.Name)
	assert.Equal(t, "Europe/Istanbul", p.TimeZone)
	assert.Equal(t, 45*time.Minute, p.Duration())
	require.Len(t, p.Shifts, 1)
	assert.Equal(t, "10:00", p.Shifts[0].Start)
	require.NotNil(t, p.Exclusion)
	assert.Equal(t, "12:00", p.Exclusion.Start)
	assert.Equal(t, "Tamam: {subject}", p.Messages.Confirmation)
	assert.Equal(t, "Ziyaret: {subject}", p.Messages.EventSummary)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("base: xx\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("shifts: [oops"))
	assert.Error(t, err)
}

func TestIANAZone(t *testing.T) {
	p := Italian()
	assert.Equal(t, "Europe/Rome", p.IANAZone())

	p.TimeZone = "Mars/Olympus"
	p.UTCOffset = "+02:00"
	require.NoError(t, p.Validate())
	assert.Empty(t, p.IANAZone())
	assert.Equal(t, "2024-12-26T10:00:00+02:00",
		time.Date(2024, time.December, 26, 10, 0, 0, 0, p.Location()).Format(time.RFC3339))
}
