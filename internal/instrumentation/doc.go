// Package instrumentation wires OpenTelemetry metrics and tracing for the
// booking agent.
//
// # Metrics
//
// Transport:
//   - http_requests_total, http_request_duration_seconds: webhook requests by method, route and status
//   - active_calls: calls with an open session
//
// Calendar gateway:
//   - calendar_operations_total, calendar_operation_duration_seconds: by operation and status
//   - calendar_retries_total: retried gateway attempts by operation
//
// Tools and bookings:
//   - tool_invocations_total, tool_duration_seconds: by tool and status
//   - booking_outcomes_total: caller-visible outcome of every booking operation
//   - booking_failures_total: failures hidden from the caller by the fail-soft boundary
//
// booking_failures_total is the signal to alert on. Callers always hear a
// confirmation for schedule and cancel, so a failed booking only shows up here
// and in the error log.
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>) and calendar gateway
// calls (calendar.<operation>).
//
// # Configuration
//
// Environment variables:
//   - INSTRUMENTATION_ENABLED (default true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default 0.1)
//   - OTEL_SERVICE_NAME (default immobiliare-agent)
//   - METRICS_DETAILED_LABELS: adds the locale label to tool metrics
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
package instrumentation
