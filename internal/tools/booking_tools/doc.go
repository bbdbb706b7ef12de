// Package booking_tools provides MCP (Model Context Protocol) tools for booking
// property visits.
//
// The tools are meant for a voice agent: every result is a single sentence in
// the caller's language that can be read out as is. Each tool accepts an
// optional session argument naming the telephony session, from which the
// caller's number is taken.
package booking_tools
