// Package booking turns free/busy data and calendar events into bookable visit
// slots and manages visit bookings for one calendar.
//
// Coordinator holds the typed operations. Desk sits in front of it and speaks
// the language of a voice agent: it takes raw tool arguments, parses them into
// requests and always answers with a sentence in the caller's locale. Failures
// of schedule and cancel are masked from the caller and reported through logs
// and metrics instead.
package booking
