package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medmeet/medmeet/internal/platform/db"
)

// Unique constraints from migrations/001_init.sql.
var identityConstraints = db.Constraints{
	"person_email_key":            "email already registered",
	"provider_license_number_key": "license number already registered",
	"patient_national_id_key":     "national id already registered",
	"provider_consultation_check": "consultation_minutes must be positive",
	"provider_person_fkey":        "person does not exist",
	"patient_person_fkey":         "person does not exist",
}

// -- Person Repository --

type personRepoPG struct {
	db db.DBTX
}

func NewPersonRepo(conn db.DBTX) PersonRepository {
	return &personRepoPG{db: conn}
}

func (r *personRepoPG) Create(ctx context.Context, p *Person) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO person (id, name, email) VALUES ($1, $2, $3) RETURNING created_at`,
		p.ID, p.Name, p.Email,
	).Scan(&p.CreatedAt)
	return db.Classify(err, "person", identityConstraints)
}

func (r *personRepoPG) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM person WHERE email = $1)`, email,
	).Scan(&exists)
	return exists, db.Classify(err, "person", nil)
}

// -- Provider Repository --

type providerRepoPG struct {
	db db.DBTX
}

func NewProviderRepo(conn db.DBTX) ProviderRepository {
	return &providerRepoPG{db: conn}
}

const providerSelect = `SELECT pr.id, pr.person_id, pe.name, pe.email, pr.specialty, pr.license_number,
	pr.consultation_minutes, pr.created_at
	FROM provider pr JOIN person pe ON pe.id = pr.person_id`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.PersonID, &p.Name, &p.Email, &p.Specialty, &p.LicenseNumber,
		&p.ConsultationMinutes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO provider (id, person_id, specialty, license_number, consultation_minutes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		p.ID, p.PersonID, p.Specialty, p.LicenseNumber, p.ConsultationMinutes,
	).Scan(&p.CreatedAt)
	return db.Classify(err, "provider", identityConstraints)
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	p, err := scanProvider(db.Conn(ctx, r.db).QueryRow(ctx, providerSelect+` WHERE pr.id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "provider", nil)
	}
	return p, nil
}

func (r *providerRepoPG) List(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	conn := db.Conn(ctx, r.db)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM provider`).Scan(&total); err != nil {
		return nil, 0, db.Classify(err, "provider", nil)
	}

	rows, err := conn.Query(ctx, providerSelect+` ORDER BY pe.name, pr.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.Classify(err, "provider", nil)
	}
	providers, err := collectProviders(rows)
	if err != nil {
		return nil, 0, err
	}
	return providers, total, nil
}

func (r *providerRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM provider`).Scan(&n)
	return n, db.Classify(err, "provider", nil)
}

func (r *providerRepoPG) LicenseExists(ctx context.Context, license string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM provider WHERE license_number = $1)`, license,
	).Scan(&exists)
	return exists, db.Classify(err, "provider", nil)
}

func (r *providerRepoPG) FindByName(ctx context.Context, name string) ([]*Provider, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, providerSelect+` WHERE pe.name = $1 ORDER BY pr.created_at LIMIT 2`, name)
	if err != nil {
		return nil, db.Classify(err, "provider", nil)
	}
	return collectProviders(rows)
}

func collectProviders(rows pgx.Rows) ([]*Provider, error) {
	defer rows.Close()
	var out []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, db.Classify(err, "provider", nil)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err, "provider", nil)
	}
	return out, nil
}

// -- Patient Repository --

type patientRepoPG struct {
	db db.DBTX
}

func NewPatientRepo(conn db.DBTX) PatientRepository {
	return &patientRepoPG{db: conn}
}

const patientSelect = `SELECT pa.id, pa.person_id, pe.name, pe.email, pa.national_id, pa.address, pa.created_at
	FROM patient pa JOIN person pe ON pe.id = pa.person_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.PersonID, &p.Name, &p.Email, &p.NationalID, &p.Address, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO patient (id, person_id, national_id, address)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		p.ID, p.PersonID, p.NationalID, p.Address,
	).Scan(&p.CreatedAt)
	return db.Classify(err, "patient", identityConstraints)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.db).QueryRow(ctx, patientSelect+` WHERE pa.id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "patient", nil)
	}
	return p, nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	conn := db.Conn(ctx, r.db)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, db.Classify(err, "patient", nil)
	}

	rows, err := conn.Query(ctx, patientSelect+` ORDER BY pe.name, pa.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.Classify(err, "patient", nil)
	}
	patients, err := collectPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *patientRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n)
	return n, db.Classify(err, "patient", nil)
}

func (r *patientRepoPG) NationalIDExists(ctx context.Context, nationalID string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM patient WHERE national_id = $1)`, nationalID,
	).Scan(&exists)
	return exists, db.Classify(err, "patient", nil)
}

// SearchByName matches query as a case-insensitive substring of the name.
// LIKE wildcards in query are matched literally.
func (r *patientRepoPG) SearchByName(ctx context.Context, query string, limit int) ([]*Patient, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx,
		patientSelect+` WHERE pe.name ILIKE '%' || $1 || '%' ESCAPE '\' ORDER BY pe.name, pa.id LIMIT $2`,
		escapeLike(query), limit,
	)
	if err != nil {
		return nil, db.Classify(err, "patient", nil)
	}
	return collectPatients(rows)
}

func (r *patientRepoPG) FindByName(ctx context.Context, name string) ([]*Patient, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, patientSelect+` WHERE pe.name = $1 ORDER BY pa.created_at LIMIT 2`, name)
	if err != nil {
		return nil, db.Classify(err, "patient", nil)
	}
	return collectPatients(rows)
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()
	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, db.Classify(err, "patient", nil)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err, "patient", nil)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
