package models

import "time"

// Consultation modes. The scheduling backend historically emitted a
// "virtual" label for online sessions; it is accepted on input but the
// canonical pair below is the only thing this service stores or sends.
const (
	ModeOnline   = "online"
	ModeInPerson = "in_person"
	ModeVirtual  = "virtual"
)

// CanonicalMode collapses legacy labels into the canonical mode pair.
// Unknown values pass through unchanged so validation can reject them.
func CanonicalMode(mode string) string {
	if mode == ModeVirtual {
		return ModeOnline
	}
	return mode
}

// ModesEquivalent reports whether two consultation mode labels refer to
// the same mode once legacy aliases are collapsed.
func ModesEquivalent(a, b string) bool {
	return CanonicalMode(a) == CanonicalMode(b)
}

// TimeSlot is an immutable snapshot of a bookable window on a
// specialist's calendar. Staleness is expected; slots are re-resolved
// rather than trusted across time.
type TimeSlot struct {
	ID              string    `json:"slot_id"`
	SpecialistID    string    `json:"specialist_id"`
	Start           time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Mode            string    `json:"appointment_type"`
	IsAvailable     bool      `json:"is_available"`
	CanBeBooked     bool      `json:"can_be_booked"`
}

// Bookable reports whether both server-side availability flags are set.
func (s TimeSlot) Bookable() bool {
	return s.IsAvailable && s.CanBeBooked
}

// DateKey returns the calendar-day key ("2006-01-02") of the slot start.
func (s TimeSlot) DateKey() string {
	return s.Start.Format("2006-01-02")
}
