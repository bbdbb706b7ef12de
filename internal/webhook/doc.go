// Package webhook exposes the booking tools to hosted voice platforms over
// HTTP.
//
// The platform posts tool calls in an envelope:
//
//	{"message": {"toolCalls": [{"id": "c1", "function": {"name": "check_available_slots", "arguments": {"date": "2024-12-26"}}}],
//	             "call": {"id": "abc", "customer": {"number": "+393331234567"}}}}
//
// and receives one spoken sentence per call:
//
//	{"results": [{"toolCallId": "c1", "result": "..."}]}
//
// Status messages posted to /events drive the playout tracking used by end_call.
package webhook
