package instrumentation

import "strings"

// Calendar gateway operations.
const (
	OperationFreeBusy = "freebusy"
	OperationInsert   = "insert"
	OperationList     = "list"
	OperationDelete   = "delete"
)

// Booking outcomes as seen by the caller.
const (
	OutcomeListed    = "listed"
	OutcomeEmpty     = "empty"
	OutcomeScheduled = "scheduled"
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeCancelled = "cancelled"
	OutcomeApology   = "apology"
	OutcomeMasked    = "masked_failure"
)

// Failure reasons for booking_failures_total.
const (
	ReasonParse   = "parse"
	ReasonGateway = "gateway"
	ReasonTimeout = "timeout"
)

// CallerPrefix reduces a caller number to its leading "+" and two digits so it
// can be used as a label without exploding cardinality.
//
//	CallerPrefix("+393331234567") // "+39"
//	CallerPrefix("Unknown")       // "unknown"
func CallerPrefix(ref string) string {
	if len(ref) < 3 || !strings.HasPrefix(ref, "+") {
		return "unknown"
	}
	for _, r := range ref[1:3] {
		if r < '0' || r > '9' {
			return "unknown"
		}
	}
	return ref[:3]
}
