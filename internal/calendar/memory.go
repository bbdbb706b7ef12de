package calendar

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
)

// MemoryGateway is an in-memory Gateway. Every event counts as busy time.
// It is safe for concurrent use.
type MemoryGateway struct {
	mu       sync.Mutex
	events   map[string]map[string]EventSummary
	failures map[string][]error
	created  []EventInput
}

// NewMemoryGateway creates an empty MemoryGateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		events:   make(map[string]map[string]EventSummary),
		failures: make(map[string][]error),
	}
}

// FailNext makes the next call of operation (see instrumentation.Operation*)
// return err. Calls queue up.
func (g *MemoryGateway) FailNext(operation string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[operation] = append(g.failures[operation], err)
}

// Created returns every input passed to a successful CreateEvent, in order.
func (g *MemoryGateway) Created() []EventInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.created)
}

// Len returns the number of stored events of a calendar.
func (g *MemoryGateway) Len(calendarID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.events[calendarID])
}

func (g *MemoryGateway) popFailure(operation string) error {
	queue := g.failures[operation]
	if len(queue) == 0 {
		return nil
	}
	g.failures[operation] = queue[1:]
	return queue[0]
}

func (g *MemoryGateway) QueryFreeBusy(ctx context.Context, calendarID string, min, max time.Time) ([]availability.Interval, error) {
	if err := ctx.Err(); err != nil {
		return nil, newGatewayError(instrumentation.OperationFreeBusy, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.popFailure(instrumentation.OperationFreeBusy); err != nil {
		return nil, err
	}

	window := availability.Interval{Start: min, End: max}
	var busy []availability.Interval
	for _, ev := range g.sorted(calendarID) {
		iv := availability.Interval{Start: ev.Start, End: ev.End}
		if iv.Overlaps(window) {
			busy = append(busy, iv)
		}
	}
	return busy, nil
}

func (g *MemoryGateway) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, newGatewayError(instrumentation.OperationInsert, err)
	}
	if !input.Start.Before(input.End) {
		return nil, &GatewayError{
			Op:         instrumentation.OperationInsert,
			StatusCode: http.StatusBadRequest,
			Body:       "The specified time range is empty.",
			Err:        errors.New("time range empty"),
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.popFailure(instrumentation.OperationInsert); err != nil {
		return nil, err
	}

	ev := EventSummary{
		ID:          uuid.NewString(),
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start,
		End:         input.End,
		Status:      "confirmed",
		Properties:  maps.Clone(input.Properties),
	}
	if g.events[calendarID] == nil {
		g.events[calendarID] = make(map[string]EventSummary)
	}
	g.events[calendarID][ev.ID] = ev
	g.created = append(g.created, input)
	return &ev, nil
}

func (g *MemoryGateway) ListEvents(ctx context.Context, calendarID string, min, max time.Time) ([]EventSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, newGatewayError(instrumentation.OperationList, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.popFailure(instrumentation.OperationList); err != nil {
		return nil, err
	}

	window := availability.Interval{Start: min, End: max}
	var out []EventSummary
	for _, ev := range g.sorted(calendarID) {
		if (availability.Interval{Start: ev.Start, End: ev.End}).Overlaps(window) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (g *MemoryGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return newGatewayError(instrumentation.OperationDelete, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.popFailure(instrumentation.OperationDelete); err != nil {
		return err
	}

	if _, ok := g.events[calendarID][eventID]; !ok {
		return &GatewayError{
			Op:         instrumentation.OperationDelete,
			StatusCode: http.StatusGone,
			Body:       "Resource has been deleted",
			Err:        errors.New("event not found"),
		}
	}
	delete(g.events[calendarID], eventID)
	return nil
}

// sorted returns the events of a calendar ordered by start time. Callers hold mu.
func (g *MemoryGateway) sorted(calendarID string) []EventSummary {
	events := slices.Collect(maps.Values(g.events[calendarID]))
	slices.SortFunc(events, func(a, b EventSummary) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
	return events
}
