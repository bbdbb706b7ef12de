// Package cmd implements the command-line interface for immobiliare-agent.
//
// This package provides the following commands:
//   - serve: Start the MCP tool server and, optionally, the HTTP webhook
//   - slots: Print the free visit slots for one or more days
//   - cleanup: Delete the bookings made by the agent in a date range
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Every command reads its configuration from flags, environment variables and
// an optional config file (see internal/config).
package cmd
