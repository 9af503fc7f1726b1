package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Person holds the name and email shared by providers and patients. Email is
// unique across all persons.
type Person struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Provider is a medical provider. Name and Email come from the linked Person.
type Provider struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	PersonID            uuid.UUID `db:"person_id" json:"person_id"`
	Name                string    `db:"name" json:"name"`
	Email               string    `db:"email" json:"email"`
	Specialty           string    `db:"specialty" json:"specialty"`
	LicenseNumber       string    `db:"license_number" json:"license_number"`
	ConsultationMinutes int       `db:"consultation_minutes" json:"consultation_minutes"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// ConsultationDuration is the fixed length of every booking with p.
func (p *Provider) ConsultationDuration() time.Duration {
	return time.Duration(p.ConsultationMinutes) * time.Minute
}

// Patient is a patient. Name and Email come from the linked Person.
type Patient struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PersonID   uuid.UUID `db:"person_id" json:"person_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	NationalID string    `db:"national_id" json:"national_id"`
	Address    string    `db:"address" json:"address"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MaxConsultationMinutes caps a single consultation at one working day.
const MaxConsultationMinutes = 8 * 60

// normalizeEmail lowercases and trims so uniqueness does not depend on case.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
