package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/SrinivasaPrasadGade/med-x/pkg/pagination"
)

// -- Mock Appointment Repository --

type mockApptRepo struct {
	mu      sync.Mutex
	appts   map[uuid.UUID]*Appointment
	doctors map[uuid.UUID][2]string
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{
		appts:   make(map[uuid.UUID]*Appointment),
		doctors: make(map[uuid.UUID][2]string),
	}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) List(_ context.Context, f ListFilter, p pagination.Params) ([]*AppointmentDetail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*AppointmentDetail
	for _, a := range m.appts {
		if f.OrganizationID != nil && a.OrganizationID != *f.OrganizationID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && (a.PatientID == nil || *a.PatientID != *f.PatientID) {
			continue
		}
		if f.PatientName != "" && !strings.Contains(strings.ToLower(a.PatientName), strings.ToLower(f.PatientName)) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		d := &AppointmentDetail{Appointment: *a, DoctorName: UnknownDoctor}
		if doc, ok := m.doctors[a.DoctorID]; ok {
			d.DoctorName, d.DoctorSpecialization = doc[0], doc[1]
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].DateTime.Before(out[j].DateTime)
		}
		return out[i].DateTime.After(out[j].DateTime)
	})
	total := len(out)
	if p.Offset >= total {
		return nil, total, nil
	}
	end := p.Offset + p.Limit
	if end > total {
		end = total
	}
	return out[p.Offset:end], total, nil
}

func newTestService() (*Service, *mockApptRepo) {
	repo := newMockApptRepo()
	return NewService(repo), repo
}

var firstPage = pagination.Params{Limit: pagination.DefaultLimit}

func mustCreate(t *testing.T, svc *Service, in CreateInput) *Appointment {
	t.Helper()
	a, err := svc.CreateAppointment(context.Background(), in)
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T09:30:00Z", time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-03-01T09:30:00.000Z", time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-03-01T15:00:00+05:30", time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-03-01T09:30:00", time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-03-01T09:30", time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDateTime(tt.in)
		if err != nil {
			t.Errorf("ParseDateTime(%q): unexpected error %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDateTime(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "03/01/2025", "2025-13-01T00:00:00Z"} {
		if _, err := ParseDateTime(in); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDateTime(%q): expected ErrInvalidDate, got %v", in, err)
		}
	}
}

func TestService_CreateAppointment(t *testing.T) {
	svc, _ := newTestService()
	a := mustCreate(t, svc, CreateInput{
		DoctorID: uuid.New(), OrganizationID: uuid.New(),
		PatientName: " Jane Doe ", DateTime: "2025-03-01T09:30:00Z", Reason: "Checkup",
	})
	if a.Status != StatusScheduled {
		t.Errorf("expected Scheduled, got %s", a.Status)
	}
	if a.PatientName != "Jane Doe" {
		t.Errorf("expected trimmed patient name, got %q", a.PatientName)
	}
	if a.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
}

func TestService_CreateAppointment_Invalid(t *testing.T) {
	svc, _ := newTestService()
	base := CreateInput{DoctorID: uuid.New(), OrganizationID: uuid.New(), PatientName: "P", DateTime: "2025-03-01T09:30:00Z"}

	bad := base
	bad.DateTime = "not-a-date"
	if _, err := svc.CreateAppointment(context.Background(), bad); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}

	bad = base
	bad.PatientName = "  "
	if _, err := svc.CreateAppointment(context.Background(), bad); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for blank patient name, got %v", err)
	}

	bad = base
	bad.DoctorID = uuid.Nil
	if _, err := svc.CreateAppointment(context.Background(), bad); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing doctor, got %v", err)
	}
}

func TestService_ListOrderings(t *testing.T) {
	svc, _ := newTestService()
	org, doctor, patient := uuid.New(), uuid.New(), uuid.New()
	for _, dt := range []string{"2025-03-02T10:00:00Z", "2025-03-01T10:00:00Z", "2025-03-03T10:00:00Z"} {
		mustCreate(t, svc, CreateInput{
			DoctorID: doctor, OrganizationID: org, PatientID: &patient,
			PatientName: "Pat", DateTime: dt,
		})
	}
	// Another organization's appointment must not leak into the views.
	mustCreate(t, svc, CreateInput{DoctorID: uuid.New(), OrganizationID: uuid.New(), PatientName: "Other", DateTime: "2025-03-04T10:00:00Z"})

	orgList, total, err := svc.ListForOrganization(context.Background(), org, firstPage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || orgList[0].DateTime.Day() != 3 || orgList[2].DateTime.Day() != 1 {
		t.Errorf("expected org list newest first, got total=%d first=%s", total, orgList[0].DateTime)
	}

	docList, _, _ := svc.ListForDoctor(context.Background(), doctor, firstPage)
	if len(docList) != 3 || docList[0].DateTime.Day() != 1 {
		t.Error("expected doctor list earliest first")
	}

	patList, _, _ := svc.ListForPatient(context.Background(), patient, firstPage)
	if len(patList) != 3 || patList[0].DateTime.Day() != 3 {
		t.Error("expected patient list newest first")
	}
}

func TestService_UpdateStatus(t *testing.T) {
	svc, _ := newTestService()
	a := mustCreate(t, svc, CreateInput{DoctorID: uuid.New(), OrganizationID: uuid.New(), PatientName: "P", DateTime: "2025-03-01"})

	updated, err := svc.UpdateStatus(context.Background(), a.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Errorf("expected Cancelled, got %s", updated.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), a.ID, "Postponed"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), uuid.New(), StatusScheduled); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_CompleteAndHistory(t *testing.T) {
	svc, repo := newTestService()
	doctor := uuid.New()
	repo.doctors[doctor] = [2]string{"Dr Alice", "Cardiology"}
	org := uuid.New()

	first := mustCreate(t, svc, CreateInput{DoctorID: doctor, OrganizationID: org, PatientName: "John Smith", DateTime: "2025-01-01T10:00:00Z"})
	second := mustCreate(t, svc, CreateInput{DoctorID: doctor, OrganizationID: org, PatientName: "john smithson", DateTime: "2025-02-01T10:00:00Z"})
	mustCreate(t, svc, CreateInput{DoctorID: doctor, OrganizationID: org, PatientName: "John Smith", DateTime: "2025-03-01T10:00:00Z"})

	done, err := svc.Complete(context.Background(), first.ID, CompleteInput{Diagnosis: "Flu", TreatmentNotes: "Rest"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted || *done.Diagnosis != "Flu" || *done.TreatmentNotes != "Rest" {
		t.Errorf("unexpected completed appointment %+v", done)
	}
	svc.Complete(context.Background(), second.ID, CompleteInput{Diagnosis: "Cold", TreatmentNotes: "Fluids"})

	history, total, err := svc.PatientHistory(context.Background(), "SMITH", firstPage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 completed visits, got %d", total)
	}
	if *history[0].Diagnosis != "Cold" || *history[1].Diagnosis != "Flu" {
		t.Error("expected history newest first")
	}
	if history[0].DoctorName != "Dr Alice" {
		t.Errorf("expected doctor name joined, got %q", history[0].DoctorName)
	}
}

func TestService_PatientHistory_BlankName(t *testing.T) {
	svc, _ := newTestService()
	if _, _, err := svc.PatientHistory(context.Background(), " ", firstPage); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestService_Cancel(t *testing.T) {
	svc, _ := newTestService()
	a := mustCreate(t, svc, CreateInput{DoctorID: uuid.New(), OrganizationID: uuid.New(), PatientName: "P", DateTime: "2025-03-01"})

	c, err := svc.Cancel(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusCancelled {
		t.Errorf("expected Cancelled, got %s", c.Status)
	}
	if _, err := svc.Cancel(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ListPaging(t *testing.T) {
	svc, _ := newTestService()
	org := uuid.New()
	for i := 1; i <= 5; i++ {
		mustCreate(t, svc, CreateInput{
			DoctorID: uuid.New(), OrganizationID: org, PatientName: "P",
			DateTime: time.Date(2025, 3, i, 9, 0, 0, 0, time.UTC).Format(time.RFC3339),
		})
	}
	page, total, err := svc.ListForOrganization(context.Background(), org, pagination.Params{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(page), total)
	}
	if page[0].DateTime.Day() != 3 {
		t.Errorf("expected third-newest first on page 2, got day %d", page[0].DateTime.Day())
	}
}
