package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medmeet/medmeet/internal/platform/apperr"
)

// SearchLimit caps patient name search results.
const SearchLimit = 10

type Service struct {
	tx        Transactor
	persons   PersonRepository
	providers ProviderRepository
	patients  PatientRepository
	logger    zerolog.Logger
}

func NewService(tx Transactor, persons PersonRepository, providers ProviderRepository, patients PatientRepository, logger zerolog.Logger) *Service {
	return &Service{
		tx:        tx,
		persons:   persons,
		providers: providers,
		patients:  patients,
		logger:    logger.With().Str("component", "identity").Logger(),
	}
}

// -- Provider --

// CreateProvider inserts the person and provider rows in one transaction.
// A taken license number or email is a Conflict and nothing is written.
func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = normalizeEmail(p.Email)
	p.LicenseNumber = strings.TrimSpace(p.LicenseNumber)
	if p.Name == "" || p.Email == "" {
		return apperr.InvalidInput("name and email are required")
	}
	if p.Specialty == "" || p.LicenseNumber == "" {
		return apperr.InvalidInput("specialty and license_number are required")
	}
	if p.ConsultationMinutes <= 0 || p.ConsultationMinutes > MaxConsultationMinutes {
		return apperr.InvalidInput("consultation_minutes must be between 1 and %d", MaxConsultationMinutes)
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		taken, err := s.providers.LicenseExists(ctx, p.LicenseNumber)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("license number already registered")
		}
		if err := s.ensureEmailFree(ctx, p.Email); err != nil {
			return err
		}

		person := &Person{Name: p.Name, Email: p.Email}
		if err := s.persons.Create(ctx, person); err != nil {
			return err
		}
		p.PersonID = person.ID
		return s.providers.Create(ctx, p)
	})
	if err != nil {
		s.logger.Info().Err(err).Str("license_number", p.LicenseNumber).Msg("provider not created")
		return err
	}
	s.logger.Info().Str("provider_id", p.ID.String()).Msg("provider created")
	return nil
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, limit, offset)
}

func (s *Service) CountProviders(ctx context.Context) (int, error) {
	return s.providers.Count(ctx)
}

// ResolveProviderByName finds the single provider with exactly this name.
func (s *Service) ResolveProviderByName(ctx context.Context, name string) (*Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("provider name is required")
	}
	found, err := s.providers.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, apperr.NotFound("provider %q not found", name)
	case 1:
		return found[0], nil
	default:
		return nil, apperr.InvalidInput("provider name %q matches more than one provider; use provider_id", name)
	}
}

// -- Patient --

// CreatePatient inserts the person and patient rows in one transaction.
// A taken national id or email is a Conflict and nothing is written.
func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = normalizeEmail(p.Email)
	p.NationalID = strings.TrimSpace(p.NationalID)
	p.Address = strings.TrimSpace(p.Address)
	if p.Name == "" || p.Email == "" {
		return apperr.InvalidInput("name and email are required")
	}
	if p.NationalID == "" || p.Address == "" {
		return apperr.InvalidInput("national_id and address are required")
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		taken, err := s.patients.NationalIDExists(ctx, p.NationalID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("national id already registered")
		}
		if err := s.ensureEmailFree(ctx, p.Email); err != nil {
			return err
		}

		person := &Person{Name: p.Name, Email: p.Email}
		if err := s.persons.Create(ctx, person); err != nil {
			return err
		}
		p.PersonID = person.ID
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		s.logger.Info().Err(err).Msg("patient not created")
		return err
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient created")
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.patients.Count(ctx)
}

// SearchPatients returns up to SearchLimit patients whose name contains
// query, ignoring case. A blank query returns an empty list.
func (s *Service) SearchPatients(ctx context.Context, query string) ([]*Patient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Patient{}, nil
	}
	found, err := s.patients.SearchByName(ctx, query, SearchLimit)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []*Patient{}
	}
	return found, nil
}

// ResolvePatientByName finds the single patient with exactly this name.
func (s *Service) ResolvePatientByName(ctx context.Context, name string) (*Patient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("patient name is required")
	}
	found, err := s.patients.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, apperr.NotFound("patient %q not found", name)
	case 1:
		return found[0], nil
	default:
		return nil, apperr.InvalidInput("patient name %q matches more than one patient; use patient_id", name)
	}
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := s.persons.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("email already registered")
	}
	return nil
}
