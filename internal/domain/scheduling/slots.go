package scheduling

import "time"

// GenerateSlots cuts [start, end) on day into consecutive slots of duration.
// A trailing remainder shorter than duration is dropped. A slot is occupied
// when a booking fully contains it; the first such booking in the given order
// is recorded. end before start, or a duration under one minute, yields no
// slots.
func GenerateSlots(day time.Time, start, end Clock, duration time.Duration, bookings []*Booking) []Slot {
	step := Clock(duration / time.Minute)
	if step <= 0 || end < start {
		return nil
	}

	var slots []Slot
	for cursor := start; cursor+step <= end; cursor += step {
		slot := Slot{Start: cursor, End: cursor + step}
		slotStart, slotEnd := slot.Start.On(day), slot.End.On(day)
		for _, b := range bookings {
			if !b.Start.After(slotStart) && !b.End.Before(slotEnd) {
				id := b.ID
				slot.Occupied = true
				slot.BookingID = &id
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots
}
