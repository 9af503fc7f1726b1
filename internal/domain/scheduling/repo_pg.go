package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medmeet/medmeet/internal/platform/db"
)

var schedulingConstraints = db.Constraints{
	"weekly_window_morning_check":   "morning start must not be after morning end",
	"weekly_window_afternoon_check": "afternoon start must not be after afternoon end",
	"weekly_window_weekday_check":   "invalid weekday",
	"weekly_window_provider_fkey":   "provider not found",
	"booking_provider_start_key":    ErrOverlapMessage,
	"booking_no_overlap":            ErrOverlapMessage,
	"booking_interval_check":        "booking must end after it starts",
	"booking_provider_fkey":         "provider not found",
	"booking_patient_fkey":          "patient not found",
}

// =========== Window Repository ===========

type windowRepoPG struct{ db db.DBTX }

func NewWindowRepo(conn db.DBTX) WindowRepository { return &windowRepoPG{db: conn} }

const windowCols = `id, provider_id, weekday, morning_start, morning_end, afternoon_start, afternoon_end, created_at`

func scanWindow(row pgx.Row) (*WeeklyWindow, error) {
	var w WeeklyWindow
	var weekday int16
	err := row.Scan(&w.ID, &w.ProviderID, &weekday, &w.MorningStart, &w.MorningEnd,
		&w.AfternoonStart, &w.AfternoonEnd, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	w.Weekday = Weekday(weekday)
	return &w, nil
}

func (r *windowRepoPG) Create(ctx context.Context, w *WeeklyWindow) error {
	w.ID = uuid.New()
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO weekly_window (id, provider_id, weekday, morning_start, morning_end, afternoon_start, afternoon_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		w.ID, w.ProviderID, int16(w.Weekday), w.MorningStart, w.MorningEnd, w.AfternoonStart, w.AfternoonEnd,
	).Scan(&w.CreatedAt)
	return db.Classify(err, "weekly window", schedulingConstraints)
}

func (r *windowRepoPG) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*WeeklyWindow, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx,
		`SELECT `+windowCols+` FROM weekly_window WHERE provider_id = $1 ORDER BY weekday, created_at, id`, providerID)
	if err != nil {
		return nil, db.Classify(err, "weekly window", nil)
	}
	return collectWindows(rows)
}

func (r *windowRepoPG) ListByProviderWeekday(ctx context.Context, providerID uuid.UUID, day Weekday) ([]*WeeklyWindow, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx,
		`SELECT `+windowCols+` FROM weekly_window WHERE provider_id = $1 AND weekday = $2 ORDER BY created_at, id`,
		providerID, int16(day))
	if err != nil {
		return nil, db.Classify(err, "weekly window", nil)
	}
	return collectWindows(rows)
}

func collectWindows(rows pgx.Rows) ([]*WeeklyWindow, error) {
	defer rows.Close()
	var out []*WeeklyWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, db.Classify(err, "weekly window", nil)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err, "weekly window", nil)
	}
	return out, nil
}

// =========== Booking Repository ===========

type bookingRepoPG struct{ db db.DBTX }

func NewBookingRepo(conn db.DBTX) BookingRepository { return &bookingRepoPG{db: conn} }

const bookingCols = `id, provider_id, patient_id, start_at, end_at, status, created_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.ProviderID, &b.PatientID, &b.Start, &b.End, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	if b.Status == "" {
		b.Status = StatusConfirmed
	}
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO booking (id, provider_id, patient_id, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		b.ID, b.ProviderID, b.PatientID, b.Start, b.End, b.Status,
	).Scan(&b.CreatedAt)
	return db.Classify(err, "booking", schedulingConstraints)
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := scanBooking(db.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "booking", nil)
	}
	return b, nil
}

func (r *bookingRepoPG) ListByProviderDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*Booking, error) {
	dayStart, dayEnd := dayBounds(date)
	rows, err := db.Conn(ctx, r.db).Query(ctx,
		`SELECT `+bookingCols+` FROM booking
		WHERE provider_id = $1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at, id`,
		providerID, dayStart, dayEnd)
	if err != nil {
		return nil, db.Classify(err, "booking", nil)
	}
	return collectBookings(rows)
}

func (r *bookingRepoPG) ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]*Booking, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx,
		`SELECT `+bookingCols+` FROM booking
		WHERE provider_id = $1 AND start_at < $3 AND end_at > $2
		ORDER BY start_at, id
		FOR UPDATE`,
		providerID, start, end)
	if err != nil {
		return nil, db.Classify(err, "booking", nil)
	}
	return collectBookings(rows)
}

func (r *bookingRepoPG) CountByDate(ctx context.Context, date time.Time) (int, error) {
	dayStart, dayEnd := dayBounds(date)
	var n int
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM booking WHERE start_at >= $1 AND start_at < $2`, dayStart, dayEnd,
	).Scan(&n)
	return n, db.Classify(err, "booking", nil)
}

func collectBookings(rows pgx.Rows) ([]*Booking, error) {
	defer rows.Close()
	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, db.Classify(err, "booking", nil)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err, "booking", nil)
	}
	return out, nil
}

// dayBounds returns midnight of date and of the following day.
func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}
