package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// UnknownDoctor labels appointments whose doctor row no longer exists.
const UnknownDoctor = "Unknown"

var (
	ErrNotFound         = errors.New("appointment not found")
	ErrInvalidDate      = errors.New("invalid date format")
	ErrInvalidReference = errors.New("unknown doctor, patient or organization")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidStatus    = errors.New("invalid status")
)

func validStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID      *uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName    string     `db:"patient_name" json:"patient_name"`
	DateTime       time.Time  `db:"date_time" json:"date_time"`
	Reason         string     `db:"reason" json:"reason"`
	Status         string     `db:"status" json:"status"`
	Diagnosis      *string    `db:"diagnosis" json:"diagnosis"`
	TreatmentNotes *string    `db:"treatment_notes" json:"treatment_notes"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// AppointmentDetail is an appointment joined with its doctor.
type AppointmentDetail struct {
	Appointment
	DoctorName           string
	DoctorSpecialization string
}

// ListFilter selects appointments. Nil and empty fields match everything.
type ListFilter struct {
	OrganizationID *uuid.UUID
	DoctorID       *uuid.UUID
	PatientID      *uuid.UUID
	// PatientName is a case-insensitive substring match.
	PatientName string
	Status      string
	Ascending   bool
}

type CreateInput struct {
	DoctorID       uuid.UUID  `json:"doctor_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	PatientID      *uuid.UUID `json:"patient_id"`
	PatientName    string     `json:"patient_name"`
	DateTime       string     `json:"date_time"`
	Reason         string     `json:"reason"`
}

type StatusInput struct {
	Status string `json:"status"`
}

type CompleteInput struct {
	Diagnosis      string `json:"diagnosis"`
	TreatmentNotes string `json:"treatment_notes"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime accepts ISO 8601 timestamps with a trailing Z, an explicit
// offset, or no zone at all. Zone-less values are taken as UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// -- Response views --

type OrgAppointmentView struct {
	ID                   uuid.UUID `json:"id"`
	DoctorName           string    `json:"doctor_name"`
	DoctorSpecialization string    `json:"doctor_specialization"`
	PatientName          string    `json:"patient_name"`
	DateTime             time.Time `json:"date_time"`
	Reason               string    `json:"reason"`
	Status               string    `json:"status"`
}

type DoctorAppointmentView struct {
	ID             uuid.UUID `json:"id"`
	PatientName    string    `json:"patient_name"`
	DateTime       time.Time `json:"date_time"`
	Reason         string    `json:"reason"`
	Status         string    `json:"status"`
	Diagnosis      *string   `json:"diagnosis"`
	TreatmentNotes *string   `json:"treatment_notes"`
}

type PatientAppointmentView struct {
	ID             uuid.UUID `json:"id"`
	DoctorName     string    `json:"doctor_name"`
	Specialization string    `json:"specialization"`
	DateTime       time.Time `json:"date_time"`
	Reason         string    `json:"reason"`
	Status         string    `json:"status"`
	Diagnosis      *string   `json:"diagnosis"`
	TreatmentNotes *string   `json:"treatment_notes"`
}

type HistoryEntry struct {
	Date           time.Time `json:"date"`
	DoctorName     string    `json:"doctor_name"`
	Diagnosis      *string   `json:"diagnosis"`
	TreatmentNotes *string   `json:"treatment_notes"`
}

func OrgView(d *AppointmentDetail) OrgAppointmentView {
	return OrgAppointmentView{
		ID:                   d.ID,
		DoctorName:           d.DoctorName,
		DoctorSpecialization: d.DoctorSpecialization,
		PatientName:          d.PatientName,
		DateTime:             d.DateTime,
		Reason:               d.Reason,
		Status:               d.Status,
	}
}

func DoctorView(d *AppointmentDetail) DoctorAppointmentView {
	return DoctorAppointmentView{
		ID:             d.ID,
		PatientName:    d.PatientName,
		DateTime:       d.DateTime,
		Reason:         d.Reason,
		Status:         d.Status,
		Diagnosis:      d.Diagnosis,
		TreatmentNotes: d.TreatmentNotes,
	}
}

func PatientView(d *AppointmentDetail) PatientAppointmentView {
	return PatientAppointmentView{
		ID:             d.ID,
		DoctorName:     d.DoctorName,
		Specialization: d.DoctorSpecialization,
		DateTime:       d.DateTime,
		Reason:         d.Reason,
		Status:         d.Status,
		Diagnosis:      d.Diagnosis,
		TreatmentNotes: d.TreatmentNotes,
	}
}

func HistoryView(d *AppointmentDetail) HistoryEntry {
	return HistoryEntry{
		Date:           d.DateTime,
		DoctorName:     d.DoctorName,
		Diagnosis:      d.Diagnosis,
		TreatmentNotes: d.TreatmentNotes,
	}
}
