package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/SrinivasaPrasadGade/med-x/pkg/pagination"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// List returns one page of matches ordered by date_time, plus the total
	// number of matches.
	List(ctx context.Context, f ListFilter, p pagination.Params) ([]*AppointmentDetail, int, error)
}
