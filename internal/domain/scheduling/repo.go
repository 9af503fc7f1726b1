package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type WindowRepository interface {
	Create(ctx context.Context, w *WeeklyWindow) error
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*WeeklyWindow, error)
	// ListByProviderWeekday returns windows in creation order.
	ListByProviderWeekday(ctx context.Context, providerID uuid.UUID, day Weekday) ([]*WeeklyWindow, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// ListByProviderDate returns the provider's bookings starting on date,
	// ordered by start.
	ListByProviderDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*Booking, error)
	// ListOverlapping returns the provider's bookings intersecting [start, end).
	ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]*Booking, error)
	// CountByDate counts bookings, of any provider, starting on date.
	CountByDate(ctx context.Context, date time.Time) (int, error)
}

// Transactor runs fn in one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Directory resolves providers and patients for the scheduling core. Lookups
// by name are exact; no match is NotFound and more than one is InvalidInput.
type Directory interface {
	Provider(ctx context.Context, id uuid.UUID) (ProviderInfo, error)
	Patient(ctx context.Context, id uuid.UUID) (PatientInfo, error)
	ProviderByName(ctx context.Context, name string) (ProviderInfo, error)
	PatientByName(ctx context.Context, name string) (PatientInfo, error)
}

// Locker serializes booking creation per provider.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
