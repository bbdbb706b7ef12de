package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/calendar"
	"github.com/Darkosxl/immobiliare-agent/internal/config"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
)

// buildGateway assembles the calendar gateway chosen by cfg:
//
//	Google client | memory -> retrying -> self-cleaning (optional) -> instrumented
func buildGateway(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (calendar.Gateway, error) {
	var gw calendar.Gateway
	if cfg.DryRun {
		logger.Warn("dry run: bookings are kept in memory only")
		gw = calendar.NewMemoryGateway()
	} else {
		creds, err := calendar.LoadCredentialsJSON(cfg.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to load calendar credentials: %w", err)
		}
		client, err := calendar.NewClient(ctx, creds)
		if err != nil {
			return nil, fmt.Errorf("failed to create calendar client: %w", err)
		}
		gw = client
	}

	gw = calendar.NewRetryingGateway(gw, cfg.MaxRetries, metrics)
	if cfg.SelfCleaning {
		logger.Warn("self-cleaning calendar: every booking is deleted right after it is created")
		gw = calendar.NewSelfCleaningGateway(gw, logger)
	}
	return calendar.NewInstrumentedGateway(gw, metrics), nil
}

// buildCoordinator wires a coordinator for cfg on top of buildGateway.
func buildCoordinator(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (*booking.Coordinator, error) {
	gw, err := buildGateway(ctx, cfg, metrics, logger)
	if err != nil {
		return nil, err
	}
	return booking.NewCoordinator(gw, cfg.CalendarID,
		booking.WithAttendees(cfg.Attendees()...),
		booking.WithTimeout(cfg.CalendarTimeout),
		booking.WithLogger(logger),
	)
}
