package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/locale"
)

const (
	dayLayout        = "2006-01-02"
	maxParallelDays  = 4
	maxDaysPerLookup = 31
)

func newSlotsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "slots [date...]",
		Short: "Print the free visit slots",
		Long: `Print the free visit slots and bookable start times for each date
(YYYY-MM-DD, office time). Without dates, today is used. --days extends the
last date into a range of consecutive days.`,
		Example: `  immobiliare-agent slots 2024-12-26
  immobiliare-agent slots --days 5 --locale tr`,
	}

	bindings := addCalendarFlags(cmd.Flags())
	cmd.Flags().IntVar(&days, "days", 1, "Number of consecutive days starting at the last date")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags(), bindings)
		if err != nil {
			return err
		}
		policy, err := cfg.Policy()
		if err != nil {
			return err
		}
		dates, err := expandDays(args, days, policy, time.Now())
		if err != nil {
			return err
		}
		coord, err := buildCoordinator(cmd.Context(), cfg, nil, slog.Default())
		if err != nil {
			return err
		}
		results, err := collectSlots(cmd.Context(), coord, dates, booking.NewCaller("", policy))
		if err != nil {
			return err
		}
		writeSlots(cmd.OutOrStdout(), policy, results)
		return nil
	}
	return cmd
}

type daySlots struct {
	Day    time.Time
	Free   []availability.Interval
	Starts []time.Time
}

// expandDays parses the requested dates in the policy's zone and appends
// count-1 days after the last one.
func expandDays(args []string, count int, policy locale.Policy, now time.Time) ([]time.Time, error) {
	if count < 1 {
		return nil, errors.New("--days must be at least 1")
	}
	loc := policy.Location()

	var dates []time.Time
	for _, arg := range args {
		d, _, err := booking.ParseTime(arg, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", arg, err)
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		y, m, d := now.In(loc).Date()
		dates = append(dates, time.Date(y, m, d, 0, 0, 0, 0, loc))
	}

	last := dates[len(dates)-1]
	for i := 1; i < count; i++ {
		dates = append(dates, last.AddDate(0, 0, i))
	}
	if len(dates) > maxDaysPerLookup {
		return nil, fmt.Errorf("at most %d days per lookup", maxDaysPerLookup)
	}
	return dates, nil
}

// collectSlots looks up every day concurrently. Results keep the order of days.
func collectSlots(ctx context.Context, coord *booking.Coordinator, days []time.Time, caller booking.CallerContext) ([]daySlots, error) {
	results := make([]daySlots, len(days))
	duration := caller.Policy.Duration()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDays)
	for i, day := range days {
		g.Go(func() error {
			free, err := coord.Availability(gctx, day, caller)
			if err != nil {
				return fmt.Errorf("failed to check %s: %w", day.Format(dayLayout), err)
			}
			results[i] = daySlots{
				Day:    day,
				Free:   free,
				Starts: availability.StartTimes(free, duration, duration),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeSlots(w io.Writer, policy locale.Policy, results []daySlots) {
	for _, r := range results {
		day := r.Day.In(policy.Location()).Format(dayLayout)
		if len(r.Starts) == 0 {
			fmt.Fprintf(w, "%s  no availability\n", day)
			continue
		}
		ranges := make([]string, 0, len(r.Free))
		for _, f := range r.Free {
			ranges = append(ranges, policy.FormatClock(f.Start)+"-"+policy.FormatClock(f.End))
		}
		starts := make([]string, 0, len(r.Starts))
		for _, s := range r.Starts {
			starts = append(starts, policy.FormatClock(s))
		}
		fmt.Fprintf(w, "%s  %s\n            starts: %s\n", day, strings.Join(ranges, ", "), strings.Join(starts, ", "))
	}
}
