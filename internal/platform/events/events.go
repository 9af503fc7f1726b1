// Package events publishes domain events after the owning transaction has
// committed. Delivery is at-most-once from the caller's view: a failed publish
// is logged by the caller and never undoes the committed write.
package events

import (
	"context"
	"time"
)

// BookingCreated is emitted once per successfully persisted booking.
type BookingCreated struct {
	EventID    string    `json:"event_id"`
	BookingID  string    `json:"booking_id"`
	ProviderID string    `json:"provider_id"`
	PatientID  string    `json:"patient_id"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers domain events.
type Publisher interface {
	PublishBookingCreated(ctx context.Context, evt BookingCreated) error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishBookingCreated(context.Context, BookingCreated) error { return nil }
