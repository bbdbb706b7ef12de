package booking

import (
	"strings"
	"time"

	"github.com/Darkosxl/immobiliare-agent/internal/locale"
)

// Operation names as exposed to the voice agent.
const (
	OpCheckSlots = "check_available_slots"
	OpSchedule   = "schedule_meeting"
	OpFind       = "get_existing_bookings"
	OpCancel     = "cancel_booking"
)

// Argument names.
const (
	ArgDate    = "date"
	ArgAddress = "apartment_address"
)

// subjectAliases are accepted in place of ArgAddress.
var subjectAliases = []string{ArgAddress, "address", "subject"}

// Request is a parsed, validated tool call.
type Request interface {
	Operation() string
}

// CheckSlotsRequest asks for the free slots of one day. Any time of day given
// with the date is ignored.
type CheckSlotsRequest struct {
	Day time.Time
}

// ScheduleRequest books a visit of Subject starting at Start.
type ScheduleRequest struct {
	Subject string
	Start   time.Time
}

// FindRequest looks up the bookings starting at At.
type FindRequest struct {
	At time.Time
}

// CancelRequest cancels the bookings starting at At.
type CancelRequest struct {
	At time.Time
}

func (CheckSlotsRequest) Operation() string { return OpCheckSlots }
func (ScheduleRequest) Operation() string   { return OpSchedule }
func (FindRequest) Operation() string       { return OpFind }
func (CancelRequest) Operation() string     { return OpCancel }

// localLayouts are read in the policy's zone. The first entry has no time of day.
var localLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseRequest validates the raw arguments of op. Dates without an offset are
// wall-clock times in the policy's zone; RFC 3339 timestamps keep their instant.
// All errors are *ParseError.
func ParseRequest(op string, args map[string]any, policy locale.Policy) (Request, error) {
	switch op {
	case OpCheckSlots:
		t, _, err := dateArg(op, args, policy)
		if err != nil {
			return nil, err
		}
		return CheckSlotsRequest{Day: t}, nil

	case OpSchedule:
		subject, err := stringArg(op, args, subjectAliases...)
		if err != nil {
			return nil, err
		}
		start, err := instantArg(op, args, policy)
		if err != nil {
			return nil, err
		}
		return ScheduleRequest{Subject: subject, Start: start}, nil

	case OpFind:
		at, err := instantArg(op, args, policy)
		if err != nil {
			return nil, err
		}
		return FindRequest{At: at}, nil

	case OpCancel:
		at, err := instantArg(op, args, policy)
		if err != nil {
			return nil, err
		}
		return CancelRequest{At: at}, nil
	}
	return nil, &ParseError{Op: op, Field: "operation", Err: errUnknownTool}
}

// instantArg is dateArg for operations that need a time of day.
func instantArg(op string, args map[string]any, policy locale.Policy) (time.Time, error) {
	t, hasClock, err := dateArg(op, args, policy)
	if err != nil {
		return time.Time{}, err
	}
	if !hasClock {
		raw, _ := args[ArgDate].(string)
		return time.Time{}, &ParseError{Op: op, Field: ArgDate, Value: raw, Err: errNeedsTime}
	}
	return t, nil
}

func dateArg(op string, args map[string]any, policy locale.Policy) (time.Time, bool, error) {
	raw, err := stringArg(op, args, ArgDate)
	if err != nil {
		return time.Time{}, false, err
	}
	t, hasClock, err := ParseTime(raw, policy.Location())
	if err != nil {
		return time.Time{}, false, &ParseError{Op: op, Field: ArgDate, Value: raw, Err: err}
	}
	return t, hasClock, nil
}

// ParseTime reads s as RFC 3339 or as one of the local layouts in loc. hasClock
// is false for a bare date, which resolves to midnight.
func ParseTime(s string, loc *time.Location) (t time.Time, hasClock bool, err error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true, nil
	}
	for i, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, i > 0, nil
		}
	}
	return time.Time{}, false, errBadDate
}

// stringArg returns the first non-empty value among keys.
func stringArg(op string, args map[string]any, keys ...string) (string, error) {
	for _, key := range keys {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", &ParseError{Op: op, Field: key, Err: errNotString}
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", &ParseError{Op: op, Field: keys[0], Err: errMissing}
}
