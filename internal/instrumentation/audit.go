package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation describes one tool call for audit logging.
type ToolInvocation struct {
	Tool string

	// CallerRef is the caller's phone number. It is only logged raw when the
	// audit logger includes PII.
	CallerRef string
	Locale    string
	Transport string // "mcp" or "webhook"

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing an invocation of tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

func (ti *ToolInvocation) WithCaller(ref, locale string) *ToolInvocation {
	ti.CallerRef = ref
	ti.Locale = locale
	return ti
}

func (ti *ToolInvocation) WithTransport(transport string) *ToolInvocation {
	ti.Transport = transport
	return ti
}

// WithSpanContext copies trace and span IDs from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete stops the timer and stores the result.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

func (ti *ToolInvocation) logAttrs(includePII bool) []any {
	caller := slog.String("caller_prefix", CallerPrefix(ti.CallerRef))
	if includePII {
		caller = slog.String("caller", ti.CallerRef)
	}
	attrs := []any{
		slog.String("tool", ti.Tool),
		caller,
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	for _, kv := range [][2]string{
		{"locale", ti.Locale},
		{"transport", ti.Transport},
		{"trace_id", ti.TraceID},
		{"span_id", ti.SpanID},
		{"error", ti.Error},
	} {
		if kv[1] != "" {
			attrs = append(attrs, slog.String(kv[0], kv[1]))
		}
	}
	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger means slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs ti at info level on success and warn level otherwise.
// A nil AuditLogger discards the record.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}
	if ti.Success {
		al.logger.Info("tool_executed", ti.logAttrs(al.includePII)...)
	} else {
		al.logger.Warn("tool_failed", ti.logAttrs(al.includePII)...)
	}
}
