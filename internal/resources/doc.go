// Package resources provides read-only MCP resources describing the office the
// agent books for: its opening hours in the active locale and the calls in
// progress. Clients read them to brief the model before the first tool call.
package resources
