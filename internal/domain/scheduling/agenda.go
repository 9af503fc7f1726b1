package scheduling

import "time"

// BuildAgenda emits, for each window in order, its morning slots followed by
// its afternoon slots. Overlapping windows are neither merged nor
// deduplicated. The result is never nil.
func BuildAgenda(windows []*WeeklyWindow, bookings []*Booking, duration time.Duration, date time.Time) []Slot {
	agenda := []Slot{}
	for _, w := range windows {
		agenda = append(agenda, GenerateSlots(date, w.MorningStart, w.MorningEnd, duration, bookings)...)
		agenda = append(agenda, GenerateSlots(date, w.AfternoonStart, w.AfternoonEnd, duration, bookings)...)
	}
	return agenda
}
