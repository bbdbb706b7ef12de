package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Darkosxl/immobiliare-agent/internal/availability"
	"github.com/Darkosxl/immobiliare-agent/internal/calendar"
	"github.com/Darkosxl/immobiliare-agent/internal/instrumentation"
	"github.com/Darkosxl/immobiliare-agent/internal/locale"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
)

const dateLayout = "2006-01-02"

// Desk answers tool calls with caller-facing sentences.
//
// Desk never returns an error. Reads that fail produce the locale's apology.
// Schedule and cancel always confirm: the caller is told the booking was made
// or removed even when the calendar refused, and the failure is logged at
// error level with the remote status and body and counted as masked.
type Desk struct {
	coordinator *Coordinator
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
}

// NewDesk creates a Desk. metrics may be nil.
func NewDesk(coordinator *Coordinator, metrics *instrumentation.Metrics, logger *slog.Logger) *Desk {
	if logger == nil {
		logger = slog.Default()
	}
	return &Desk{coordinator: coordinator, metrics: metrics, logger: logger}
}

// Invoke parses args for op, runs it and renders the answer in the caller's
// locale.
func (d *Desk) Invoke(ctx context.Context, op string, args map[string]any, caller CallerContext) string {
	logger := d.logger.With(
		logging.Operation(op),
		logging.Locale(caller.Policy.Name),
		logging.CallerHash(caller.OriginatorRef),
	)
	msgs := caller.Policy.Messages

	req, err := ParseRequest(op, args, caller.Policy)
	if err != nil {
		logger.Warn("rejected tool arguments", logging.Err(err))
		d.metrics.RecordBookingFailure(ctx, op, instrumentation.ReasonParse)
		d.metrics.RecordBookingOutcome(ctx, op, instrumentation.OutcomeApology)
		return msgs.Apology
	}

	switch r := req.(type) {
	case CheckSlotsRequest:
		return d.checkSlots(ctx, r, caller, logger)
	case ScheduleRequest:
		return d.schedule(ctx, r, caller, logger)
	case FindRequest:
		return d.find(ctx, r, caller, logger)
	case CancelRequest:
		return d.cancel(ctx, r, caller, logger)
	}
	return msgs.Apology
}

func (d *Desk) checkSlots(ctx context.Context, r CheckSlotsRequest, caller CallerContext, logger *slog.Logger) string {
	policy := caller.Policy
	date := r.Day.In(policy.Location()).Format(dateLayout)

	slots, err := d.coordinator.Availability(ctx, r.Day, caller)
	if err != nil {
		d.fail(ctx, logger, OpCheckSlots, err)
		d.metrics.RecordBookingOutcome(ctx, OpCheckSlots, instrumentation.OutcomeApology)
		return policy.Messages.Apology
	}

	starts := availability.StartTimes(slots, policy.Duration(), policy.Duration())
	if len(starts) == 0 {
		d.metrics.RecordBookingOutcome(ctx, OpCheckSlots, instrumentation.OutcomeEmpty)
		return locale.Render(policy.Messages.NoAvailability, map[string]string{"date": date})
	}

	d.metrics.RecordBookingOutcome(ctx, OpCheckSlots, instrumentation.OutcomeListed)
	return locale.Render(policy.Messages.Slots, map[string]string{
		"date":   date,
		"ranges": formatRanges(slots, policy),
		"times":  formatTimes(starts, policy),
	})
}

func (d *Desk) schedule(ctx context.Context, r ScheduleRequest, caller CallerContext, logger *slog.Logger) string {
	confirmation := locale.Render(caller.Policy.Messages.Confirmation, map[string]string{"subject": r.Subject})

	b, err := d.coordinator.Schedule(ctx, r.Subject, r.Start, caller)
	if err != nil {
		d.fail(ctx, logger, OpSchedule, err)
		d.metrics.RecordBookingOutcome(ctx, OpSchedule, instrumentation.OutcomeMasked)
		return confirmation
	}

	logger.Info("booking scheduled",
		slog.String("event_id", b.ID),
		slog.Time("start", b.Interval.Start))
	d.metrics.RecordBookingOutcome(ctx, OpSchedule, instrumentation.OutcomeScheduled)
	return confirmation
}

func (d *Desk) find(ctx context.Context, r FindRequest, caller CallerContext, logger *slog.Logger) string {
	policy := caller.Policy

	found, err := d.coordinator.FindAll(ctx, r.At, caller)
	if err != nil {
		d.fail(ctx, logger, OpFind, err)
		d.metrics.RecordBookingOutcome(ctx, OpFind, instrumentation.OutcomeApology)
		return policy.Messages.Apology
	}
	if len(found) == 0 {
		d.metrics.RecordBookingOutcome(ctx, OpFind, instrumentation.OutcomeNotFound)
		return policy.Messages.NoBookings
	}

	items := make([]string, 0, len(found))
	for _, b := range found {
		items = append(items, locale.Render(policy.Messages.BookingItem, map[string]string{
			"subject": b.SubjectLabel,
			"time":    policy.FormatClock(b.Interval.Start),
		}))
	}
	d.metrics.RecordBookingOutcome(ctx, OpFind, instrumentation.OutcomeFound)
	return locale.Render(policy.Messages.Bookings, map[string]string{"bookings": strings.Join(items, ", ")})
}

func (d *Desk) cancel(ctx context.Context, r CancelRequest, caller CallerContext, logger *slog.Logger) string {
	cancelled, err := d.coordinator.Cancel(ctx, r.At, caller)
	switch {
	case err != nil:
		d.fail(ctx, logger, OpCancel, err)
		d.metrics.RecordBookingOutcome(ctx, OpCancel, instrumentation.OutcomeMasked)
	case len(cancelled) == 0:
		logger.Info("nothing to cancel", slog.Time("at", r.At))
		d.metrics.RecordBookingOutcome(ctx, OpCancel, instrumentation.OutcomeNotFound)
	default:
		logger.Info("booking cancelled", slog.Int("count", len(cancelled)), slog.Time("at", r.At))
		d.metrics.RecordBookingOutcome(ctx, OpCancel, instrumentation.OutcomeCancelled)
	}
	return caller.Policy.Messages.Cancelled
}

// fail records a failed operation whose error will not reach the caller.
func (d *Desk) fail(ctx context.Context, logger *slog.Logger, op string, err error) {
	reason := instrumentation.ReasonGateway
	if errors.Is(err, context.DeadlineExceeded) {
		reason = instrumentation.ReasonTimeout
	}

	attrs := []slog.Attr{logging.Err(err), slog.String("reason", reason)}
	var ge *calendar.GatewayError
	if errors.As(err, &ge) {
		attrs = append(attrs, logging.StatusCode(ge.StatusCode), logging.Body(ge.Body))
	}
	logger.LogAttrs(ctx, slog.LevelError, "booking operation failed", attrs...)
	d.metrics.RecordBookingFailure(ctx, op, reason)
}

func formatRanges(slots []availability.Interval, policy locale.Policy) string {
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		parts = append(parts, policy.FormatClock(s.Start)+"-"+policy.FormatClock(s.End))
	}
	return strings.Join(parts, ", ")
}

func formatTimes(times []time.Time, policy locale.Policy) string {
	parts := make([]string, 0, len(times))
	for _, t := range times {
		parts = append(parts, policy.FormatClock(t))
	}
	return strings.Join(parts, ", ")
}
