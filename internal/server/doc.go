// Package server holds the process-wide plumbing of the agent.
//
// ServerContext carries the booking desk, the live call registry, the default
// locale and the instrumentation handles that tool handlers need.
//
// MCPHTTPServer exposes the MCP tools over SSE or streamable HTTP behind an
// optional shared bearer secret and a per-client rate limit. MetricsServer
// serves Prometheus metrics and the health probes on a separate port so
// operational data never shares a listener with caller traffic.
package server
