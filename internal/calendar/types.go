package calendar

import (
	"context"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
)

// Gateway is the remote calendar as seen by the booking engine.
// All timestamps carry an explicit offset.
type Gateway interface {
	// QueryFreeBusy returns the busy intervals of calendarID between min and max.
	QueryFreeBusy(ctx context.Context, calendarID string, min, max time.Time) ([]availability.Interval, error)

	CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error)

	// ListEvents returns single (expanded) events overlapping [min, max),
	// ordered by start time.
	ListEvents(ctx context.Context, calendarID string, min, max time.Time) ([]EventSummary, error)

	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// EventInput represents the input for creating a calendar event.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string // IANA name, defaults to UTC
	Attendees   []string

	// Reminders replace the calendar's default reminders when non-empty.
	Reminders []Reminder

	// Properties are stored as private extended properties.
	Properties map[string]string
}

// Reminder is a notification override. Method is "email" or "popup".
type Reminder struct {
	Method  string
	Minutes int64
}

// EventSummary represents a calendar event.
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Status      string
	Properties  map[string]string
}

// toGoogleEvent builds the API representation of input.
func toGoogleEvent(input EventInput) *calendar.Event {
	tz := input.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		},
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	if len(input.Reminders) > 0 {
		reminders := &calendar.EventReminders{
			UseDefault: false,
			// UseDefault=false is the zero value and would be dropped from the request.
			ForceSendFields: []string{"UseDefault"},
		}
		for _, r := range input.Reminders {
			reminders.Overrides = append(reminders.Overrides, &calendar.EventReminder{
				Method:  r.Method,
				Minutes: r.Minutes,
			})
		}
		event.Reminders = reminders
	}

	if len(input.Properties) > 0 {
		event.ExtendedProperties = &calendar.EventExtendedProperties{Private: input.Properties}
	}
	return event
}

// toEventSummary converts a Google Calendar event to an EventSummary.
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}
	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		Start:       parseEventTime(event.Start),
		End:         parseEventTime(event.End),
	}
	if event.ExtendedProperties != nil && len(event.ExtendedProperties.Private) > 0 {
		summary.Properties = event.ExtendedProperties.Private
	}
	return summary
}

func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	}
	if dt.Date != "" {
		loc := time.UTC
		if dt.TimeZone != "" {
			if l, err := time.LoadLocation(dt.TimeZone); err == nil {
				loc = l
			}
		}
		if t, err := time.ParseInLocation("2006-01-02", dt.Date, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
