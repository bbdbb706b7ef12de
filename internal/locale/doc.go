// Package locale describes how one agent deployment tells time.
//
// A Policy carries the time zone, the bookable shifts of a day, an optional
// soft exclusion zone, the visit length, the reminders put on created events
// and the caller-facing texts. Built-in policies exist for the Italian, Turkish
// and English agents; custom ones are loaded from YAML:
//
//	base: tr
//	name: tr-weekend
//	shifts:
//	  - name: day
//	    start: "10:00"
//	    end: "16:00"
//	slot_duration: 45m
package locale
