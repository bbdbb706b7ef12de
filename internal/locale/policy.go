package locale

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
)

const (
	// DefaultSlotDuration is the length of a visit when a policy does not set one.
	DefaultSlotDuration = 30 * time.Minute

	clockLayout = "15:04"
)

// Policy is the per-agent time and text configuration.
type Policy struct {
	Name string `yaml:"name"`

	// TimeZone is an IANA zone name. UTCOffset ("+01:00") is used when the zone
	// database does not know it.
	TimeZone  string `yaml:"time_zone"`
	UTCOffset string `yaml:"utc_offset"`

	Shifts    []ShiftSpec `yaml:"shifts"`
	Exclusion *ClockRange `yaml:"exclusion,omitempty"`

	SlotDuration time.Duration `yaml:"slot_duration"`
	Reminders    []Reminder    `yaml:"reminders"`
	Messages     Messages      `yaml:"messages"`

	loc *time.Location
}

// ClockRange is a wall-clock range within a day, such as 10:00-12:30.
type ClockRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ShiftSpec names a bookable clock range.
type ShiftSpec struct {
	Name       string `yaml:"name"`
	ClockRange `yaml:",inline"`
}

// Reminder is a calendar notification sent before a visit.
type Reminder struct {
	Method  string `yaml:"method"`
	Minutes int64  `yaml:"minutes"`
}

// Messages holds the caller-facing texts of one agent. Placeholders in braces,
// like {subject}, are filled by Render.
type Messages struct {
	EventSummary     string `yaml:"event_summary"`
	EventDescription string `yaml:"event_description"`
	Confirmation     string `yaml:"confirmation"`
	Slots            string `yaml:"slots"`
	NoAvailability   string `yaml:"no_availability"`
	BookingItem      string `yaml:"booking_item"`
	Bookings         string `yaml:"bookings"`
	NoBookings       string `yaml:"no_bookings"`
	Cancelled        string `yaml:"cancelled"`
	Apology          string `yaml:"apology"`
	CallEnded        string `yaml:"call_ended"`
}

// Render replaces {key} placeholders in tmpl. Unknown placeholders are kept.
func Render(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Validate checks the policy and resolves its location. Shifts must be well
// formed, ordered and non-overlapping.
func (p *Policy) Validate() error {
	if p.Name == "" {
		return errors.New("locale policy name is required")
	}

	loc, err := resolveLocation(p.TimeZone, p.UTCOffset)
	if err != nil {
		return fmt.Errorf("locale %q: %w", p.Name, err)
	}
	p.loc = loc

	if len(p.Shifts) == 0 {
		return fmt.Errorf("locale %q: at least one shift is required", p.Name)
	}
	prevEnd := -1
	for _, s := range p.Shifts {
		start, end, err := s.minutes()
		if err != nil {
			return fmt.Errorf("locale %q shift %q: %w", p.Name, s.Name, err)
		}
		if start < prevEnd {
			return fmt.Errorf("locale %q shift %q: shifts must be ordered and must not overlap", p.Name, s.Name)
		}
		prevEnd = end
	}

	if p.Exclusion != nil {
		if _, _, err := p.Exclusion.minutes(); err != nil {
			return fmt.Errorf("locale %q exclusion: %w", p.Name, err)
		}
	}

	if p.SlotDuration < 0 {
		return fmt.Errorf("locale %q: slot duration must not be negative", p.Name)
	}
	if p.SlotDuration == 0 {
		p.SlotDuration = DefaultSlotDuration
	}
	for _, r := range p.Reminders {
		if r.Method != "email" && r.Method != "popup" {
			return fmt.Errorf("locale %q: unsupported reminder method %q", p.Name, r.Method)
		}
	}
	return nil
}

// Location returns the policy's time zone.
func (p Policy) Location() *time.Location {
	if p.loc != nil {
		return p.loc
	}
	loc, err := resolveLocation(p.TimeZone, p.UTCOffset)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IANAZone returns TimeZone when the zone database knows it, otherwise "".
func (p Policy) IANAZone() string {
	if p.TimeZone == "" {
		return ""
	}
	if _, err := time.LoadLocation(p.TimeZone); err != nil {
		return ""
	}
	return p.TimeZone
}

// Duration returns the visit length.
func (p Policy) Duration() time.Duration {
	if p.SlotDuration <= 0 {
		return DefaultSlotDuration
	}
	return p.SlotDuration
}

// ShiftsOn returns the bookable shifts of the calendar day that contains day,
// read in the policy's location.
func (p Policy) ShiftsOn(day time.Time) ([]availability.Shift, error) {
	shifts := make([]availability.Shift, 0, len(p.Shifts))
	for _, s := range p.Shifts {
		window, err := s.On(day, p.Location())
		if err != nil {
			return nil, fmt.Errorf("shift %q: %w", s.Name, err)
		}
		shifts = append(shifts, availability.Shift{Name: s.Name, Window: window})
	}
	return shifts, nil
}

// ExclusionOn returns the soft exclusion zone of the given day. It is the zero
// zone when the policy has none.
func (p Policy) ExclusionOn(day time.Time) (availability.ExclusionZone, error) {
	if p.Exclusion == nil {
		return availability.ExclusionZone{}, nil
	}
	window, err := p.Exclusion.On(day, p.Location())
	if err != nil {
		return availability.ExclusionZone{}, fmt.Errorf("exclusion: %w", err)
	}
	return availability.ExclusionZone{Interval: window}, nil
}

// BusinessHours spans from the first shift start to the last shift end of a day.
func (p Policy) BusinessHours(day time.Time) (availability.Interval, error) {
	shifts, err := p.ShiftsOn(day)
	if err != nil {
		return availability.Interval{}, err
	}
	if len(shifts) == 0 {
		return availability.Interval{}, errors.New("no shifts configured")
	}
	return availability.NewInterval(shifts[0].Window.Start, shifts[len(shifts)-1].Window.End)
}

// FormatClock renders t as HH:MM in the policy's location.
func (p Policy) FormatClock(t time.Time) string {
	return t.In(p.Location()).Format(clockLayout)
}

// On places the clock range on the calendar day of day in loc.
func (c ClockRange) On(day time.Time, loc *time.Location) (availability.Interval, error) {
	start, end, err := c.minutes()
	if err != nil {
		return availability.Interval{}, err
	}
	y, m, d := day.In(loc).Date()
	return availability.NewInterval(
		time.Date(y, m, d, start/60, start%60, 0, 0, loc),
		time.Date(y, m, d, end/60, end%60, 0, 0, loc),
	)
}

func (c ClockRange) String() string {
	return c.Start + "-" + c.End
}

func (c ClockRange) minutes() (int, int, error) {
	start, err := parseClock(c.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClock(c.End)
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, fmt.Errorf("range %s: start must be before end", c)
	}
	return start, end, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func resolveLocation(zone, offset string) (*time.Location, error) {
	if zone != "" {
		if loc, err := time.LoadLocation(zone); err == nil {
			return loc, nil
		}
	}
	if offset == "" {
		if zone == "" {
			return nil, errors.New("time zone or UTC offset is required")
		}
		return nil, fmt.Errorf("unknown time zone %q and no UTC offset fallback", zone)
	}
	t, err := time.Parse("-07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("invalid UTC offset %q, expected +HH:MM", offset)
	}
	_, secs := t.Zone()
	name := zone
	if name == "" {
		name = "UTC" + offset
	}
	return time.FixedZone(name, secs), nil
}
