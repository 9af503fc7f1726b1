package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/medmeet/medmeet/internal/platform/apperr"
)

// ErrOverlapMessage is returned, as a Conflict, whenever a new booking would
// intersect an existing one of the same provider.
const ErrOverlapMessage = "provider already has a booking in this interval"

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// ValidateAndBuild computes the interval [start, start+duration) for a new
// booking and rejects it with Conflict when any existing booking of the same
// provider overlaps it. The returned booking has no ID yet.
func ValidateAndBuild(provider ProviderInfo, patient PatientInfo, start time.Time, existing []*Booking) (*Booking, error) {
	if provider.ID == uuid.Nil {
		return nil, apperr.NotFound("provider not found")
	}
	if patient.ID == uuid.Nil {
		return nil, apperr.NotFound("patient not found")
	}
	if provider.Duration <= 0 {
		return nil, apperr.InvalidInput("provider has no consultation duration")
	}
	if start.IsZero() {
		return nil, apperr.InvalidInput("start is required")
	}

	end := start.Add(provider.Duration)
	for _, b := range existing {
		if b.ProviderID != provider.ID {
			continue
		}
		if Overlaps(b.Start, b.End, start, end) {
			return nil, apperr.Conflict(ErrOverlapMessage)
		}
	}

	return &Booking{
		ProviderID: provider.ID,
		PatientID:  patient.ID,
		Start:      start,
		End:        end,
		Status:     StatusConfirmed,
	}, nil
}
