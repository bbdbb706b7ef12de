package locale

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultName is the locale used when none is configured.
const DefaultName = "it"

var defaultReminders = []Reminder{
	{Method: "email", Minutes: 360},
	{Method: "popup", Minutes: 30},
}

// Italian serves the Rome office: two shifts around a long midday break.
func Italian() Policy {
	return Policy{
		Name:      "it",
		TimeZone:  "Europe/Rome",
		UTCOffset: "+01:00",
		Shifts: []ShiftSpec{
			{Name: "morning", ClockRange: ClockRange{Start: "10:00", End: "12:30"}},
			{Name: "afternoon", ClockRange: ClockRange{Start: "15:00", End: "19:00"}},
		},
		SlotDuration: DefaultSlotDuration,
		Reminders:    slices.Clone(defaultReminders),
		Messages: Messages{
			EventSummary:     "Visita: {subject}",
			EventDescription: "Visita immobile\nTelefono cliente: {originator}",
			Confirmation:     "Appuntamento confermato per {subject}",
			Slots:            "Orari disponibili il {date}: {ranges}. Orari di inizio possibili: {times}.",
			NoAvailability:   "Non ci sono orari disponibili il {date}.",
			BookingItem:      "{subject} alle {time}",
			Bookings:         "Appuntamenti a quest'ora: {bookings}",
			NoBookings:       "Nessun appuntamento trovato a quest'ora.",
			Cancelled:        "Appuntamento cancellato con successo.",
			Apology:          "Mi dispiace, non è stato possibile completare la richiesta. Proviamo un altro orario.",
			CallEnded:        "Chiamata terminata.",
		},
	}
}

// Turkish serves the Istanbul office: one long shift with a soft lunch break.
func Turkish() Policy {
	return Policy{
		Name:      "tr",
		TimeZone:  "Europe/Istanbul",
		UTCOffset: "+03:00",
		Shifts: []ShiftSpec{
			{Name: "day", ClockRange: ClockRange{Start: "08:00", End: "19:00"}},
		},
		Exclusion:    &ClockRange{Start: "12:00", End: "13:30"},
		SlotDuration: DefaultSlotDuration,
		Reminders:    slices.Clone(defaultReminders),
		Messages: Messages{
			EventSummary:     "Ziyaret: {subject}",
			EventDescription: "Emlak ziyareti\nMüşteri telefonu: {originator}",
			Confirmation:     "Randevu onaylandı: {subject}",
			Slots:            "{date} için müsait ziyaret saatleri: {ranges}. Olası başlangıç saatleri: {times}.",
			NoAvailability:   "{date} için müsait saat yok.",
			BookingItem:      "{time} saatinde {subject}",
			Bookings:         "Bu saatteki randevular: {bookings}",
			NoBookings:       "Bu saatte randevu bulunamadı.",
			Cancelled:        "Randevu başarıyla iptal edildi.",
			Apology:          "Üzgünüm, bu işlem tamamlanamadı. Başka bir saat deneyelim.",
			CallEnded:        "Görüşme sonlandırıldı.",
		},
	}
}

// English keeps the Rome hours with English texts.
func English() Policy {
	p := Italian()
	p.Name = "en"
	p.Messages = Messages{
		EventSummary:     "Visit: {subject}",
		EventDescription: "Property visit\nCustomer phone: {originator}",
		Confirmation:     "Appointment confirmed for {subject}",
		Slots:            "Available times on {date}: {ranges}. Possible start times: {times}.",
		NoAvailability:   "There is no availability on {date}.",
		BookingItem:      "{subject} at {time}",
		Bookings:         "All events on this time: {bookings}",
		NoBookings:       "No events found on this time.",
		Cancelled:        "Booking Successfully Cancelled",
		Apology:          "Sorry, that didn't work. Let's try a different time.",
		CallEnded:        "Call ended.",
	}
	return p
}

var presets = map[string]func() Policy{
	"it": Italian,
	"tr": Turkish,
	"en": English,
}

// Names lists the built-in locales in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns a validated copy of a built-in locale.
func Lookup(name string) (Policy, error) {
	build, ok := presets[name]
	if !ok {
		return Policy{}, fmt.Errorf("unknown locale %q (available: %v)", name, Names())
	}
	p := build()
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadFile reads a policy from a YAML file. Fields left empty are taken from the
// built-in locale named by the file's base field, or from Italian when unset.
func LoadFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read locale file: %w", err)
	}
	return Parse(data)
}

type policyFile struct {
	Base   string `yaml:"base"`
	Policy `yaml:",inline"`
}

// Parse decodes a YAML policy document. See LoadFile.
func Parse(data []byte) (Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Policy{}, fmt.Errorf("failed to parse locale file: %w", err)
	}

	base := f.Base
	if base == "" {
		base = DefaultName
	}
	build, ok := presets[base]
	if !ok {
		return Policy{}, fmt.Errorf("unknown base locale %q", base)
	}
	p := merge(build(), f.Policy)
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func merge(base, over Policy) Policy {
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.TimeZone != "" {
		base.TimeZone = over.TimeZone
		base.UTCOffset = over.UTCOffset
	} else if over.UTCOffset != "" {
		base.UTCOffset = over.UTCOffset
	}
	if len(over.Shifts) > 0 {
		base.Shifts = over.Shifts
	}
	if over.Exclusion != nil {
		base.Exclusion = over.Exclusion
	}
	if over.SlotDuration != 0 {
		base.SlotDuration = over.SlotDuration
	}
	if over.Reminders != nil {
		base.Reminders = over.Reminders
	}

	m := &base.Messages
	o := over.Messages
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&m.EventSummary, o.EventSummary},
		{&m.EventDescription, o.EventDescription},
		{&m.Confirmation, o.Confirmation},
		{&m.Slots, o.Slots},
		{&m.NoAvailability, o.NoAvailability},
		{&m.BookingItem, o.BookingItem},
		{&m.Bookings, o.Bookings},
		{&m.NoBookings, o.NoBookings},
		{&m.Cancelled, o.Cancelled},
		{&m.Apology, o.Apology},
		{&m.CallEnded, o.CallEnded},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	return base
}
