// Package availability turns busy time reported by a calendar into bookable free time.
//
// All functions are pure: they never mutate their inputs, hold no state and are
// safe to call from any number of goroutines. Intervals are half-open, [Start, End).
//
// The typical pipeline for one day is:
//
//	shifts := []availability.Shift{
//	    {Name: "morning", Window: availability.MustInterval(at(10, 0), at(12, 30))},
//	    {Name: "afternoon", Window: availability.MustInterval(at(15, 0), at(19, 0))},
//	}
//	free := availability.ComposeShifts(shifts, busy)
//	slots := availability.SelectSlots(free, lunch)
//
// ComposeShifts merges the busy list per shift and extracts the gaps, and
// SelectSlots applies a soft exclusion zone such as a lunch break.
package availability
