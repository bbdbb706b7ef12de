package calendar

import (
	"context"
	"log/slog"

	"github.com/Darkosxl/immobiliare-agent/internal/logging"
)

// SelfCleaningGateway deletes every event right after it is created, so runs
// against a real calendar leave nothing behind. Other calls pass through.
type SelfCleaningGateway struct {
	Gateway
	logger *slog.Logger
}

// NewSelfCleaningGateway wraps inner. A nil logger means slog.Default().
func NewSelfCleaningGateway(inner Gateway, logger *slog.Logger) *SelfCleaningGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelfCleaningGateway{Gateway: inner, logger: logger}
}

// CreateEvent creates the event and immediately deletes it again. The created
// event is returned either way; a failed delete is only logged.
func (g *SelfCleaningGateway) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	created, err := g.Gateway.CreateEvent(ctx, calendarID, input)
	if err != nil {
		return nil, err
	}
	if err := g.Gateway.DeleteEvent(ctx, calendarID, created.ID); err != nil {
		g.logger.Warn("failed to clean up created event",
			logging.Operation("calendar.self_clean"),
			slog.String("event_id", created.ID),
			logging.Err(err))
	}
	return created, nil
}
