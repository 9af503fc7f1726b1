package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/medmeet/medmeet/internal/platform/apperr"
	"github.com/medmeet/medmeet/internal/platform/events"
	"github.com/medmeet/medmeet/internal/platform/lock"
	"github.com/medmeet/medmeet/internal/platform/metrics"
)

var tracer = otel.Tracer("medmeet.internal.domain.scheduling")

// DefaultPublishTimeout bounds the wait for the broker to confirm a
// booking.created event.
const DefaultPublishTimeout = 5 * time.Second

type Service struct {
	tx        Transactor
	windows   WindowRepository
	bookings  BookingRepository
	directory Directory
	locker    Locker
	publisher events.Publisher
	publishTO time.Duration
	metrics   *metrics.SchedulingMetrics
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithLocker replaces the default in-process provider lock.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) { s.publishTO = d }
}

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(tx Transactor, windows WindowRepository, bookings BookingRepository, dir Directory, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		tx:        tx,
		windows:   windows,
		bookings:  bookings,
		directory: dir,
		locker:    lock.NewLocal(),
		publisher: events.Nop{},
		publishTO: DefaultPublishTimeout,
		logger:    logger.With().Str("component", "scheduling").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -- Weekly windows --

func (s *Service) CreateWindow(ctx context.Context, w *WeeklyWindow) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if _, err := s.directory.Provider(ctx, w.ProviderID); err != nil {
		return err
	}
	return s.windows.Create(ctx, w)
}

func (s *Service) ListWindows(ctx context.Context, providerID uuid.UUID) ([]*WeeklyWindow, error) {
	if _, err := s.directory.Provider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.windows.ListByProvider(ctx, providerID)
}

// -- Agenda --

// GetAgenda returns every slot the provider's windows produce on date, each
// marked free or occupied by that day's bookings.
func (s *Service) GetAgenda(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Slot, error) {
	ctx, span := tracer.Start(ctx, "scheduling.agenda")
	defer span.End()
	span.SetAttributes(
		attribute.String("medmeet.provider_id", providerID.String()),
		attribute.String("medmeet.date", date.Format(DateLayout)),
	)

	provider, err := s.directory.Provider(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	windows, err := s.windows.ListByProviderWeekday(ctx, providerID, WeekdayOf(date))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	bookings, err := s.bookings.ListByProviderDate(ctx, providerID, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	agenda := BuildAgenda(windows, bookings, provider.Duration, date)
	s.metrics.ObserveAgenda(len(agenda))
	span.SetAttributes(attribute.Int("medmeet.slots", len(agenda)))
	return agenda, nil
}

// -- Bookings --

// BookingRequest identifies both parties by id, or by exact name when the id
// is empty.
type BookingRequest struct {
	ProviderID   uuid.UUID
	PatientID    uuid.UUID
	ProviderName string
	PatientName  string
	Start        time.Time
}

// CreateBooking books [Start, Start+duration) for the provider. The overlap
// check and insert run under a per-provider lock inside one transaction; the
// booking.created event is published only after commit.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "scheduling.create_booking")
	defer span.End()

	b, err := s.createBooking(ctx, req)
	s.metrics.ObserveBooking(outcomeOf(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.PublicMessage(err))
		s.logBookingFailure(ctx, req, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("medmeet.booking_id", b.ID.String()))

	s.logger.Info().
		Str("trace_id", traceID(ctx)).
		Str("booking_id", b.ID.String()).
		Str("provider_id", b.ProviderID.String()).
		Str("patient_id", b.PatientID.String()).
		Time("start", b.Start).
		Msg("booking created")

	s.publish(ctx, b)
	return b, nil
}

func (s *Service) createBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	if req.Start.IsZero() {
		return nil, apperr.InvalidInput("start is required")
	}
	provider, err := s.resolveProvider(ctx, req)
	if err != nil {
		return nil, err
	}
	patient, err := s.resolvePatient(ctx, req)
	if err != nil {
		return nil, err
	}

	waitStart := time.Now()
	release, err := s.locker.Acquire(ctx, "provider:"+provider.ID.String())
	s.metrics.ObserveLockWait(time.Since(waitStart))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, apperr.Conflict("another booking for this provider is in progress, try again")
		}
		return nil, apperr.StorageFailure(err, "acquire provider lock")
	}
	defer release()

	var booking *Booking
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		end := req.Start.Add(provider.Duration)
		existing, err := s.bookings.ListOverlapping(ctx, provider.ID, req.Start, end)
		if err != nil {
			return err
		}
		b, err := ValidateAndBuild(provider, patient, req.Start, existing)
		if err != nil {
			return err
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Service) resolveProvider(ctx context.Context, req BookingRequest) (ProviderInfo, error) {
	if req.ProviderID != uuid.Nil {
		return s.directory.Provider(ctx, req.ProviderID)
	}
	name := strings.TrimSpace(req.ProviderName)
	if name == "" {
		return ProviderInfo{}, apperr.InvalidInput("provider_id or provider_name is required")
	}
	return s.directory.ProviderByName(ctx, name)
}

func (s *Service) resolvePatient(ctx context.Context, req BookingRequest) (PatientInfo, error) {
	if req.PatientID != uuid.Nil {
		return s.directory.Patient(ctx, req.PatientID)
	}
	name := strings.TrimSpace(req.PatientName)
	if name == "" {
		return PatientInfo{}, apperr.InvalidInput("patient_id or patient_name is required")
	}
	return s.directory.PatientByName(ctx, name)
}

func (s *Service) publish(ctx context.Context, b *Booking) {
	evt := events.BookingCreated{
		EventID:    uuid.NewString(),
		BookingID:  b.ID.String(),
		ProviderID: b.ProviderID.String(),
		PatientID:  b.PatientID.String(),
		Start:      b.Start.Format(TimestampLayout),
		End:        b.End.Format(TimestampLayout),
		Status:     b.Status,
		OccurredAt: s.now().UTC(),
	}
	// The booking is committed; a request that ends now must not cut the
	// confirm wait short.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTO)
	defer cancel()
	if err := s.publisher.PublishBookingCreated(ctx, evt); err != nil {
		s.logger.Error().Err(err).Str("booking_id", evt.BookingID).Msg("failed to publish booking.created")
	}
}

func (s *Service) logBookingFailure(ctx context.Context, req BookingRequest, err error) {
	ev := s.logger.Warn()
	if apperr.KindOf(err) == apperr.KindStorageFailure {
		ev = s.logger.Error()
	}
	ev.Err(err).
		Str("trace_id", traceID(ctx)).
		Str("provider_id", req.ProviderID.String()).
		Str("patient_id", req.PatientID.String()).
		Time("start", req.Start).
		Msg("booking rejected")
}

// traceID is empty when no tracer provider is installed.
func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeCreated
	}
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return metrics.OutcomeConflict
	case apperr.KindInvalidInput, apperr.KindNotFound:
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}

// GetBookingDetail returns the booking with patient and provider names.
func (s *Service) GetBookingDetail(ctx context.Context, id uuid.UUID) (*BookingDetail, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	provider, err := s.directory.Provider(ctx, b.ProviderID)
	if err != nil {
		return nil, err
	}
	patient, err := s.directory.Patient(ctx, b.PatientID)
	if err != nil {
		return nil, err
	}
	return &BookingDetail{
		ID:           b.ID,
		PatientName:  patient.Name,
		ProviderName: provider.Name,
		Start:        b.Start.Format(TimestampLayout),
		End:          b.End.Format(TimestampLayout),
		Status:       b.Status,
	}, nil
}

// CountBookingsToday counts bookings of all providers starting today.
func (s *Service) CountBookingsToday(ctx context.Context) (int, error) {
	return s.bookings.CountByDate(ctx, s.now())
}
