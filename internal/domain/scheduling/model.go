package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/medmeet/medmeet/internal/platform/apperr"
)

// StatusConfirmed is the status given to every new booking.
const StatusConfirmed = "confirmed"

// DateLayout is the wire format of a calendar date.
const DateLayout = "2006-01-02"

// TimestampLayout is the wire format of a booking start or end. Times are
// naive local wall-clock values and carry no zone.
const TimestampLayout = "2006-01-02T15:04:05"

// Weekday wraps time.Weekday. Its text form is the lowercase English name and
// it is stored as SMALLINT with Sunday = 0.
type Weekday time.Weekday

// ParseWeekday accepts an English weekday name in any case.
func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return Weekday(d), nil
		}
	}
	return 0, apperr.InvalidInput("unknown weekday %q", s)
}

// WeekdayOf returns the weekday of date. It does not depend on any locale.
func WeekdayOf(date time.Time) Weekday { return Weekday(date.Weekday()) }

func (d Weekday) Valid() bool { return d >= Weekday(time.Sunday) && d <= Weekday(time.Saturday) }

func (d Weekday) String() string { return strings.ToLower(time.Weekday(d).String()) }

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	v, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Clock is a time of day with minute precision, counted in minutes since
// midnight. Its text form is "HH:MM".
type Clock int

const minutesPerDay = 24 * 60

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

// ParseClock parses "HH:MM" on a 24-hour clock.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, apperr.InvalidInput("invalid time %q, expected HH:MM", s)
	}
	return ClockOf(t), nil
}

// ClockOf returns the time of day of t, truncated to the minute.
func ClockOf(t time.Time) Clock { return NewClock(t.Hour(), t.Minute()) }

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

// On places c on the calendar day of date.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, date.Location())
}

func (c Clock) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ScanTime lets pgx scan a TIME column straight into a Clock.
func (c *Clock) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		return fmt.Errorf("cannot scan NULL into Clock")
	}
	*c = Clock(v.Microseconds / int64(time.Minute/time.Microsecond))
	return nil
}

// TimeValue lets pgx encode a Clock as TIME.
func (c Clock) TimeValue() (pgtype.Time, error) {
	return pgtype.Time{Microseconds: int64(c) * int64(time.Minute/time.Microsecond), Valid: true}, nil
}

// WeeklyWindow is a provider's recurring working hours for one weekday, split
// into a morning and an afternoon range.
type WeeklyWindow struct {
	ID             uuid.UUID `json:"id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	Weekday        Weekday   `json:"weekday"`
	MorningStart   Clock     `json:"morning_start"`
	MorningEnd     Clock     `json:"morning_end"`
	AfternoonStart Clock     `json:"afternoon_start"`
	AfternoonEnd   Clock     `json:"afternoon_end"`
	CreatedAt      time.Time `json:"created_at"`
}

func (w *WeeklyWindow) Validate() error {
	if w.ProviderID == uuid.Nil {
		return apperr.InvalidInput("provider_id is required")
	}
	if !w.Weekday.Valid() {
		return apperr.InvalidInput("invalid weekday")
	}
	for _, c := range []Clock{w.MorningStart, w.MorningEnd, w.AfternoonStart, w.AfternoonEnd} {
		if c < 0 || c >= minutesPerDay {
			return apperr.InvalidInput("time of day out of range")
		}
	}
	if w.MorningStart > w.MorningEnd {
		return apperr.InvalidInput("morning start must not be after morning end")
	}
	if w.AfternoonStart > w.AfternoonEnd {
		return apperr.InvalidInput("afternoon start must not be after afternoon end")
	}
	return nil
}

// Booking is a committed appointment. End is always Start plus the
// provider's consultation duration.
type Booking struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	PatientID  uuid.UUID
	Start      time.Time
	End        time.Time
	Status     string
	CreatedAt  time.Time
}

func (b *Booking) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         uuid.UUID `json:"id"`
		ProviderID uuid.UUID `json:"provider_id"`
		PatientID  uuid.UUID `json:"patient_id"`
		Start      string    `json:"start"`
		End        string    `json:"end"`
		Status     string    `json:"status"`
		CreatedAt  time.Time `json:"created_at"`
	}{b.ID, b.ProviderID, b.PatientID, b.Start.Format(TimestampLayout), b.End.Format(TimestampLayout), b.Status, b.CreatedAt})
}

// BookingDetail is a booking with the names of both parties resolved.
type BookingDetail struct {
	ID           uuid.UUID `json:"id"`
	PatientName  string    `json:"patient_name"`
	ProviderName string    `json:"provider_name"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	Status       string    `json:"status"`
}

// Slot is one bookable interval of an agenda. BookingID is set when the slot
// is occupied.
type Slot struct {
	Start     Clock      `json:"start"`
	End       Clock      `json:"end"`
	Occupied  bool       `json:"occupied"`
	BookingID *uuid.UUID `json:"booking_id"`
}

// ProviderInfo is the part of a provider the scheduling core needs.
type ProviderInfo struct {
	ID       uuid.UUID
	Name     string
	Duration time.Duration
}

// PatientInfo is the part of a patient the scheduling core needs.
type PatientInfo struct {
	ID   uuid.UUID
	Name string
}
