package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RolePatient  = "patient"
	RoleDoctor   = "doctor"
	RoleOrgAdmin = "org_admin"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrOrganizationExists = errors.New("organization already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("validation failed")
)

// ValidationError reports a rejected input. It matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

type Organization struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	HashedPassword string     `db:"hashed_password" json:"-"`
	FullName       *string    `db:"full_name" json:"full_name"`
	Role           string     `db:"role" json:"role"`
	OrganizationID *uuid.UUID `db:"organization_id" json:"organization_id"`
	Specialization *string    `db:"specialization" json:"specialization"`
	Availability   *string    `db:"availability" json:"availability"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// DisplayName is the full name, or the local part of the email when no
// name was given.
func (u *User) DisplayName() string {
	if u.FullName != nil && strings.TrimSpace(*u.FullName) != "" {
		return *u.FullName
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// DoctorFilter narrows a doctor listing. Zero values match everything.
type DoctorFilter struct {
	OrganizationID *uuid.UUID
	// Search matches full name or specialization, case-insensitively.
	Search string
	// Specialization matches specialization only.
	Specialization string
}

// DoctorSummary is the organization-side view of a doctor.
type DoctorSummary struct {
	ID             uuid.UUID `json:"id"`
	FullName       *string   `json:"full_name"`
	Email          string    `json:"email"`
	Specialization *string   `json:"specialization"`
	Availability   *string   `json:"availability"`
	IsActive       bool      `json:"is_active"`
}

func NewDoctorSummary(u *User) DoctorSummary {
	return DoctorSummary{
		ID:             u.ID,
		FullName:       u.FullName,
		Email:          u.Email,
		Specialization: u.Specialization,
		Availability:   u.Availability,
		IsActive:       u.IsActive,
	}
}

// DoctorListing is the patient-side directory view of a doctor.
type DoctorListing struct {
	ID               uuid.UUID  `json:"id"`
	FullName         *string    `json:"full_name"`
	Specialization   *string    `json:"specialization"`
	Availability     *string    `json:"availability"`
	OrganizationID   *uuid.UUID `json:"organization_id"`
	OrganizationName string     `json:"organization_name"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken      string     `json:"access_token"`
	TokenType        string     `json:"token_type"`
	ExpiresAt        time.Time  `json:"expires_at"`
	UserName         string     `json:"user_name"`
	UserID           uuid.UUID  `json:"user_id"`
	Role             string     `json:"role"`
	OrganizationName *string    `json:"organization_name"`
	OrganizationID   *uuid.UUID `json:"organization_id"`
}

type RegisterPatientInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

type RegisterOrganizationInput struct {
	OrgName       string `json:"org_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
	AdminName     string `json:"admin_name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AddDoctorInput struct {
	Email          string    `json:"email"`
	Password       string    `json:"password"`
	FullName       string    `json:"full_name"`
	Specialization *string   `json:"specialization"`
	Availability   *string   `json:"availability"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// DoctorUpdate is a partial update; nil or empty fields are left alone.
type DoctorUpdate struct {
	FullName       *string `json:"full_name"`
	Specialization *string `json:"specialization"`
	Availability   *string `json:"availability"`
}

type PatientProfileUpdate struct {
	FullName string  `json:"full_name"`
	Password *string `json:"password"`
}

func strPtr(s string) *string { return &s }

func nonEmpty(p *string) bool { return p != nil && *p != "" }
