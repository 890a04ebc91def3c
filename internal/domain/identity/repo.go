package identity

import (
	"context"

	"github.com/google/uuid"
)

type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByName(ctx context.Context, name string) (*Organization, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListDoctors(ctx context.Context, f DoctorFilter) ([]*User, error)
}

// TxRunner runs fn in a unit of work. Repositories called with the context
// passed to fn take part in it.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

func noTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
