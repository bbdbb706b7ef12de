package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/calendar"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
)

func newCleanupCmd() *cobra.Command {
	var (
		from  string
		until string
		apply bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the bookings the agent made in a date range",
		Long: `Scan the calendar between --from and --until (inclusive, YYYY-MM-DD) for
bookings created by the agent and delete them. Events created by people are
never touched. Without --yes the bookings are only listed.`,
	}

	bindings := addCalendarFlags(cmd.Flags())
	cmd.Flags().StringVar(&from, "from", "", "First day to clean (required)")
	cmd.Flags().StringVar(&until, "until", "", "Last day to clean (default: --from)")
	cmd.Flags().BoolVar(&apply, "yes", false, "Delete instead of listing")
	_ = cmd.MarkFlagRequired("from")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags(), bindings)
		if err != nil {
			return err
		}
		policy, err := cfg.Policy()
		if err != nil {
			return err
		}
		if until == "" {
			until = from
		}
		first, _, err := booking.ParseTime(from, policy.Location())
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		last, _, err := booking.ParseTime(until, policy.Location())
		if err != nil {
			return fmt.Errorf("invalid --until: %w", err)
		}
		if last.Before(first) {
			return fmt.Errorf("--until is before --from")
		}

		gw, err := buildGateway(cmd.Context(), cfg, nil, slog.Default())
		if err != nil {
			return err
		}
		n, err := cleanupBookings(cmd.Context(), gw, cfg.CalendarID, first, last.AddDate(0, 0, 1), apply, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if apply {
			slog.Info("cleanup finished", slog.Int("deleted", n))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%d bookings would be deleted; rerun with --yes\n", n)
		}
		return nil
	}
	return cmd
}

// cleanupBookings lists the agent's bookings in [min, max) and deletes them
// when apply is set. It returns the number of bookings found. A failed delete
// stops the scan.
func cleanupBookings(ctx context.Context, gw calendar.Gateway, calendarID string, min, max time.Time, apply bool, out io.Writer) (int, error) {
	events, err := gw.ListEvents(ctx, calendarID, min, max)
	if err != nil {
		return 0, fmt.Errorf("failed to list events: %w", err)
	}

	n := 0
	for _, ev := range events {
		if _, ok := ev.Properties[booking.PropertySubject]; !ok {
			continue
		}
		n++
		fmt.Fprintf(out, "%s  %s  %s\n", ev.Start.Format(time.RFC3339), ev.ID, ev.Summary)
		if !apply {
			continue
		}
		if err := gw.DeleteEvent(ctx, calendarID, ev.ID); err != nil && !calendar.IsNotFound(err) {
			slog.Error("failed to delete booking", slog.String("event_id", ev.ID), logging.Err(err))
			return n, fmt.Errorf("failed to delete %s: %w", ev.ID, err)
		}
	}
	return n, nil
}
