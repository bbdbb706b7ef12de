// Package common provides helpers shared by the MCP tool packages: resolving
// the caller of a tool call and wrapping handlers with metrics, tracing and
// audit logging.
package common
