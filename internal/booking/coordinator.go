package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
	"github.com/Darkosxl/immobiliare-agent/internal/calendar"
	"github.com/Darkosxl/immobiliare-agent/internal/locale"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
)

const (
	// DefaultTimeout bounds every gateway call made by one operation.
	DefaultTimeout = 10 * time.Second

	// DefaultMatchTolerance is how far an event start may be from the requested
	// time and still count as the booking at that time.
	DefaultMatchTolerance = time.Minute
)

// Extended property keys stored on created events.
const (
	PropertySubject    = "subject"
	PropertyOriginator = "originator"
	PropertyLocale     = "locale"
)

// Booking is a visit on the calendar.
type Booking struct {
	ID            string
	SubjectLabel  string
	Interval      availability.Interval
	OriginatorRef string
	Description   string
}

// Coordinator runs the booking operations against one calendar. It keeps no
// state between calls and is safe for concurrent use.
//
// Two concurrent Schedule calls for the same slot both succeed; the remote
// calendar decides what a double booking means.
type Coordinator struct {
	gateway        calendar.Gateway
	calendarID     string
	attendees      []string
	timeout        time.Duration
	matchTolerance time.Duration
	logger         *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAttendees invites the given addresses to every created event.
func WithAttendees(emails ...string) Option {
	return func(c *Coordinator) {
		c.attendees = slices.Clone(emails)
	}
}

// WithTimeout sets the deadline of each operation. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMatchTolerance(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.matchTolerance = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a Coordinator for calendarID.
func NewCoordinator(gateway calendar.Gateway, calendarID string, opts ...Option) (*Coordinator, error) {
	if gateway == nil {
		return nil, errors.New("calendar gateway is required")
	}
	if calendarID == "" {
		return nil, errors.New("calendar id is required")
	}
	c := &Coordinator{
		gateway:        gateway,
		calendarID:     calendarID,
		timeout:        DefaultTimeout,
		matchTolerance: DefaultMatchTolerance,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Availability returns the free slots of the day containing day, read in the
// caller's locale. Free time shorter than one visit is left out, and time
// inside the locale's exclusion zone is only offered when nothing else can hold
// a visit.
func (c *Coordinator) Availability(ctx context.Context, day time.Time, caller CallerContext) ([]availability.Interval, error) {
	policy := caller.Policy
	shifts, err := policy.ShiftsOn(day)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shifts: %w", err)
	}
	zone, err := policy.ExclusionOn(day)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exclusion zone: %w", err)
	}
	hours, err := policy.BusinessHours(day)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve business hours: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	busy, err := c.gateway.QueryFreeBusy(ctx, c.calendarID, hours.Start, hours.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	slots := availability.SelectBookable(availability.ComposeShifts(shifts, busy), zone, policy.Duration())
	for i := range slots {
		slots[i] = slots[i].In(policy.Location())
	}
	c.logger.Debug("availability computed",
		logging.Operation(OpCheckSlots),
		logging.Locale(policy.Name),
		slog.Int("busy", len(busy)),
		slog.Int("slots", len(slots)))
	return slots, nil
}

// Schedule books a visit of subject starting at start. The visit lasts the
// locale's slot duration.
func (c *Coordinator) Schedule(ctx context.Context, subject string, start time.Time, caller CallerContext) (*Booking, error) {
	policy := caller.Policy
	start = start.In(policy.Location())
	window, err := availability.NewInterval(start, start.Add(policy.Duration()))
	if err != nil {
		return nil, err
	}

	values := map[string]string{"subject": subject, "originator": caller.OriginatorRef}
	input := calendar.EventInput{
		Summary:     locale.Render(policy.Messages.EventSummary, values),
		Description: locale.Render(policy.Messages.EventDescription, values),
		Location:    subject,
		Start:       window.Start,
		End:         window.End,
		TimeZone:    policy.IANAZone(),
		Attendees:   slices.Clone(c.attendees),
		Properties: map[string]string{
			PropertySubject:    subject,
			PropertyOriginator: caller.OriginatorRef,
			PropertyLocale:     policy.Name,
		},
	}
	for _, r := range policy.Reminders {
		input.Reminders = append(input.Reminders, calendar.Reminder{Method: r.Method, Minutes: r.Minutes})
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.gateway.CreateEvent(ctx, c.calendarID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return &Booking{
		ID:            created.ID,
		SubjectLabel:  subject,
		Interval:      window,
		OriginatorRef: caller.OriginatorRef,
		Description:   input.Description,
	}, nil
}

// FindAll returns every booking whose start lies within the match tolerance of
// at, in start order. An empty result is not an error.
func (c *Coordinator) FindAll(ctx context.Context, at time.Time, caller CallerContext) ([]Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.findAll(ctx, at, caller)
}

func (c *Coordinator) findAll(ctx context.Context, at time.Time, caller CallerContext) ([]Booking, error) {
	policy := caller.Policy
	events, err := c.gateway.ListEvents(ctx, c.calendarID, at, at.Add(policy.Duration()))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var found []Booking
	for _, ev := range events {
		if !c.matches(ev.Start, at) {
			continue
		}
		found = append(found, toBooking(ev, policy))
	}
	return found, nil
}

// Find returns the first booking starting at at, or ErrNotFound.
func (c *Coordinator) Find(ctx context.Context, at time.Time, caller CallerContext) (*Booking, error) {
	found, err := c.FindAll(ctx, at, caller)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

// Cancel deletes every booking starting at at and returns them with their
// event ids cleared. Cancelling a time with no booking, or a booking already
// deleted, succeeds.
func (c *Coordinator) Cancel(ctx context.Context, at time.Time, caller CallerContext) ([]Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	found, err := c.findAll(ctx, at, caller)
	if err != nil {
		return nil, err
	}

	cancelled := make([]Booking, 0, len(found))
	for _, b := range found {
		err := c.gateway.DeleteEvent(ctx, c.calendarID, b.ID)
		switch {
		case err == nil:
		case calendar.IsNotFound(err):
			c.logger.Debug("booking already gone",
				logging.Operation(OpCancel),
				slog.String("event_id", b.ID))
		default:
			return cancelled, fmt.Errorf("failed to delete event %s: %w", b.ID, err)
		}
		b.ID = ""
		cancelled = append(cancelled, b)
	}
	return cancelled, nil
}

func (c *Coordinator) matches(start, at time.Time) bool {
	d := start.Sub(at)
	if d < 0 {
		d = -d
	}
	return d < c.matchTolerance
}

func toBooking(ev calendar.EventSummary, policy locale.Policy) Booking {
	subject := ev.Properties[PropertySubject]
	if subject == "" {
		subject = ev.Location
	}
	if subject == "" {
		subject = ev.Summary
	}
	originator := ev.Properties[PropertyOriginator]
	if originator == "" {
		originator = UnknownOriginator
	}
	return Booking{
		ID:            ev.ID,
		SubjectLabel:  subject,
		Interval:      availability.Interval{Start: ev.Start.In(policy.Location()), End: ev.End.In(policy.Location())},
		OriginatorRef: originator,
		Description:   ev.Description,
	}
}
