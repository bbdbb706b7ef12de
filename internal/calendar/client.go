package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
)

// Client wraps the Google Calendar service.
type Client struct {
	svc *calendar.Service
}

// NewClient creates a Calendar client authenticated with a service-account key.
func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	conf, err := google.JWTConfigFromJSON(credentialsJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, conf.TokenSource(ctx))

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}

	return NewClientWithOptions(ctx, option.WithHTTPClient(client))
}

// NewClientWithOptions creates a Client from raw API options.
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// QueryFreeBusy returns the busy intervals of one calendar.
func (c *Client) QueryFreeBusy(ctx context.Context, calendarID string, min, max time.Time) ([]availability.Interval, error) {
	query := &calendar.FreeBusyRequest{
		TimeMin: min.Format(time.RFC3339),
		TimeMax: max.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, newGatewayError(instrumentation.OperationFreeBusy, err)
	}

	cal, ok := result.Calendars[calendarID]
	if !ok {
		return nil, badResponse(instrumentation.OperationFreeBusy, fmt.Errorf("calendar %q missing from response", calendarID))
	}
	if len(cal.Errors) > 0 {
		return nil, badResponse(instrumentation.OperationFreeBusy, fmt.Errorf("calendar %q: %s", calendarID, cal.Errors[0].Reason))
	}

	busy := make([]availability.Interval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return nil, badResponse(instrumentation.OperationFreeBusy, fmt.Errorf("invalid busy start %q: %w", b.Start, err))
		}
		end, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			return nil, badResponse(instrumentation.OperationFreeBusy, fmt.Errorf("invalid busy end %q: %w", b.End, err))
		}
		busy = append(busy, availability.Interval{Start: start, End: end})
	}
	return busy, nil
}

// CreateEvent inserts a timed event.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	created, err := c.svc.Events.Insert(calendarID, toGoogleEvent(input)).Context(ctx).Do()
	if err != nil {
		return nil, newGatewayError(instrumentation.OperationInsert, err)
	}
	summary := toEventSummary(created)
	return &summary, nil
}

// ListEvents lists single events overlapping [min, max) ordered by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, min, max time.Time) ([]EventSummary, error) {
	var summaries []EventSummary
	err := c.svc.Events.List(calendarID).
		TimeMin(min.Format(time.RFC3339)).
		TimeMax(max.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			for _, event := range page.Items {
				if event.Status == "cancelled" {
					continue
				}
				summaries = append(summaries, toEventSummary(event))
			}
			return nil
		})
	if err != nil {
		return nil, newGatewayError(instrumentation.OperationList, err)
	}
	return summaries, nil
}

// DeleteEvent deletes an event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return newGatewayError(instrumentation.OperationDelete, err)
	}
	return nil
}
