package medication

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SrinivasaPrasadGade/med-x/internal/domain/audit"
	"github.com/SrinivasaPrasadGade/med-x/pkg/pagination"
)

const auditWriteTimeout = 5 * time.Second

type Service struct {
	meds      MedicationRepository
	adherence AdherenceRepository
	sink      audit.Sink
	logger    zerolog.Logger
}

func NewService(meds MedicationRepository, adherence AdherenceRepository, sink audit.Sink, logger zerolog.Logger) *Service {
	return &Service{meds: meds, adherence: adherence, sink: sink, logger: logger}
}

func (s *Service) ListMedications(ctx context.Context, p pagination.Params) ([]*Medication, int, error) {
	return s.meds.List(ctx, p)
}

func (s *Service) AddMedication(ctx context.Context, in MedicationInput) (*Medication, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	m := &Medication{
		Name:      name,
		Dosage:    strings.TrimSpace(in.Dosage),
		Frequency: strings.TrimSpace(in.Frequency),
	}
	if err := s.meds.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	return s.meds.Delete(ctx, id)
}

// LogAdherence stores the event and appends an audit entry for it. A failed
// audit append is logged; the event itself is already stored.
func (s *Service) LogAdherence(ctx context.Context, event AdherenceEvent) error {
	if event == nil {
		return fmt.Errorf("%w: adherence payload must be a JSON object", ErrValidation)
	}
	if err := s.adherence.Record(ctx, event); err != nil {
		return err
	}
	if s.sink == nil {
		return nil
	}

	entry := audit.NewEntry(event.Action(), AdherenceActor, event.Status())
	if ts, ok := event.Timestamp(); ok {
		entry.Timestamp = ts
	} else {
		entry.Timestamp = audit.TimestampJustNow
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := s.sink.Append(wctx, entry); err != nil {
		s.logger.Error().
			Err(err).
			Str("audit_id", entry.ID).
			Str("action", entry.Action).
			Msg("audit append failed")
	}
	return nil
}
