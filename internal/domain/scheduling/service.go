package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/SrinivasaPrasadGade/med-x/pkg/pagination"
)

type Service struct {
	appts AppointmentRepository
}

func NewService(appts AppointmentRepository) *Service {
	return &Service{appts: appts}
}

// CreateAppointment books a new Scheduled appointment. It serves both the
// organization desk and patient self-booking.
func (s *Service) CreateAppointment(ctx context.Context, in CreateInput) (*Appointment, error) {
	dt, err := ParseDateTime(in.DateTime)
	if err != nil {
		return nil, err
	}
	if in.DoctorID == uuid.Nil || in.OrganizationID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id and organization_id are required", ErrValidation)
	}
	name := strings.TrimSpace(in.PatientName)
	if name == "" {
		return nil, fmt.Errorf("%w: patient_name is required", ErrValidation)
	}

	a := &Appointment{
		OrganizationID: in.OrganizationID,
		DoctorID:       in.DoctorID,
		PatientID:      in.PatientID,
		PatientName:    name,
		DateTime:       dt,
		Reason:         in.Reason,
		Status:         StatusScheduled,
	}
	if err := s.appts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

// ListForOrganization returns the organization's appointments, newest first.
func (s *Service) ListForOrganization(ctx context.Context, orgID uuid.UUID, p pagination.Params) ([]*AppointmentDetail, int, error) {
	return s.appts.List(ctx, ListFilter{OrganizationID: &orgID}, p)
}

// ListForDoctor returns the doctor's appointments, earliest first.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, p pagination.Params) ([]*AppointmentDetail, int, error) {
	return s.appts.List(ctx, ListFilter{DoctorID: &doctorID, Ascending: true}, p)
}

// ListForPatient returns the patient's appointments, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*AppointmentDetail, int, error) {
	return s.appts.List(ctx, ListFilter{PatientID: &patientID}, p)
}

// PatientHistory returns completed visits for patients whose name contains
// name, newest first.
func (s *Service) PatientHistory(ctx context.Context, name string, p pagination.Params) ([]*AppointmentDetail, int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, 0, fmt.Errorf("%w: patient name is required", ErrValidation)
	}
	return s.appts.List(ctx, ListFilter{PatientName: name, Status: StatusCompleted}, p)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("%w %q: must be %s, %s or %s", ErrInvalidStatus, status,
			StatusScheduled, StatusCompleted, StatusCancelled)
	}
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = status
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Complete records the consultation outcome and marks the appointment Completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, in CompleteInput) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	diagnosis, notes := in.Diagnosis, in.TreatmentNotes
	a.Status = StatusCompleted
	a.Diagnosis = &diagnosis
	a.TreatmentNotes = &notes
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}
