package medication

import (
	"context"

	"github.com/google/uuid"

	"github.com/SrinivasaPrasadGade/med-x/pkg/pagination"
)

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, p pagination.Params) ([]*Medication, int, error)
}

type AdherenceRepository interface {
	Record(ctx context.Context, event AdherenceEvent) error
}
