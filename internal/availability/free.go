package availability

import (
	"slices"
	"time"
)

// MergeBusy normalizes busy intervals for one target window.
//
// The result is sorted, non-overlapping and clipped to window. Invalid entries
// (start >= end) are ignored. Intervals that touch are merged, so the output never
// holds two intervals where one ends exactly where the next begins.
func MergeBusy(busy []Interval, window Interval) []Interval {
	if window.IsEmpty() {
		return nil
	}

	sorted := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if !b.IsEmpty() {
			sorted = append(sorted, b)
		}
	}
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})

	var merged []Interval
	for _, b := range sorted {
		if n := len(merged); n > 0 && !b.Start.After(merged[n-1].End) {
			if b.End.After(merged[n-1].End) {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}

	var clipped []Interval
	for _, m := range merged {
		if c := m.Intersect(window); !c.IsEmpty() {
			clipped = append(clipped, c)
		}
	}
	return clipped
}

// FreeSlots returns the gaps of window that are not covered by merged, in order.
//
// merged is expected to be the output of MergeBusy for the same window. Together
// the two lists reconstruct window exactly.
func FreeSlots(window Interval, merged []Interval) []Interval {
	if window.IsEmpty() {
		return nil
	}

	var free []Interval
	cursor := window.Start
	for _, b := range merged {
		start := earliest(b.Start, window.End)
		if cursor.Before(start) {
			free = append(free, Interval{Start: cursor, End: start})
		}
		cursor = latest(cursor, b.End)
		if !cursor.Before(window.End) {
			return free
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// StartTimes expands free intervals into candidate appointment starts.
//
// Starting at the beginning of each interval it steps by step and keeps every start
// whose appointment of the given length still ends inside the interval.
func StartTimes(free []Interval, step, length time.Duration) []time.Time {
	if step <= 0 || length <= 0 {
		return nil
	}
	var starts []time.Time
	for _, iv := range free {
		for t := iv.Start; !t.Add(length).After(iv.End); t = t.Add(step) {
			starts = append(starts, t)
		}
	}
	return starts
}
