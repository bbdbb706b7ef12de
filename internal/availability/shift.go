package availability

import "time"

// Shift is a named, independently bookable period of a day.
type Shift struct {
	Name   string
	Window Interval
}

// ComposeShifts extracts the free time of every shift and concatenates the
// results in shift order.
//
// Each shift only sees the busy time inside its own window, so no free interval
// crosses a shift boundary even when neighbouring shifts are both free.
func ComposeShifts(shifts []Shift, busy []Interval) []Interval {
	var free []Interval
	for _, s := range shifts {
		free = append(free, FreeSlots(s.Window, MergeBusy(busy, s.Window))...)
	}
	return free
}

// ExclusionZone is a soft no-preference period such as a lunch break.
// The zero value means no exclusion.
type ExclusionZone struct {
	Interval
}

// IsZero reports whether the zone excludes nothing.
func (z ExclusionZone) IsZero() bool {
	return z.IsEmpty()
}

// CarveOut splits free time around an exclusion zone.
//
// Time outside the zone goes to preferred, time inside it to fallback. Both lists
// keep chronological order, and together they hold exactly the time of free.
func CarveOut(free []Interval, zone ExclusionZone) (preferred, fallback []Interval) {
	if zone.IsZero() {
		return append([]Interval(nil), free...), nil
	}

	for _, s := range free {
		if !s.Overlaps(zone.Interval) {
			preferred = append(preferred, s)
			continue
		}
		if s.Start.Before(zone.Start) {
			preferred = append(preferred, Interval{Start: s.Start, End: zone.Start})
		}
		fallback = append(fallback, s.Intersect(zone.Interval))
		if s.End.After(zone.End) {
			preferred = append(preferred, Interval{Start: zone.End, End: s.End})
		}
	}
	return preferred, fallback
}

// SelectSlots applies the exclusion policy: it returns the preferred time when
// there is any, and the excluded time only when nothing else is left.
func SelectSlots(free []Interval, zone ExclusionZone) []Interval {
	preferred, fallback := CarveOut(free, zone)
	if len(preferred) > 0 {
		return preferred
	}
	return fallback
}

// SelectBookable is SelectSlots for visits of the given length: free time too
// short to hold one visit is dropped from both sides before choosing, so a
// zone is only avoided when the time outside it can actually be booked.
// A non-positive length keeps every interval.
func SelectBookable(free []Interval, zone ExclusionZone, length time.Duration) []Interval {
	preferred, fallback := CarveOut(free, zone)
	if preferred = atLeast(preferred, length); len(preferred) > 0 {
		return preferred
	}
	return atLeast(fallback, length)
}

func atLeast(intervals []Interval, length time.Duration) []Interval {
	var out []Interval
	for _, iv := range intervals {
		if iv.Duration() >= length {
			out = append(out, iv)
		}
	}
	return out
}
