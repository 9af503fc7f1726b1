package identity

import (
	"context"

	"github.com/google/uuid"
)

type PersonRepository interface {
	Create(ctx context.Context, p *Person) error
	EmailExists(ctx context.Context, email string) (bool, error)
}

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	List(ctx context.Context, limit, offset int) ([]*Provider, int, error)
	Count(ctx context.Context) (int, error)
	LicenseExists(ctx context.Context, license string) (bool, error)
	// FindByName returns providers whose name equals name exactly. At most
	// two rows are returned, enough to detect ambiguity.
	FindByName(ctx context.Context, name string) ([]*Provider, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Count(ctx context.Context) (int, error)
	NationalIDExists(ctx context.Context, nationalID string) (bool, error)
	SearchByName(ctx context.Context, query string, limit int) ([]*Patient, error)
	FindByName(ctx context.Context, name string) ([]*Patient, error)
}

// Transactor runs fn in one database transaction. Repositories called with
// the ctx handed to fn join that transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
