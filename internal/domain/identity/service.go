package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	orgs   OrganizationRepository
	users  UserRepository
	tx     TxRunner
	tokens *TokenIssuer
	cost   int
}

func NewService(orgs OrganizationRepository, users UserRepository, tx TxRunner, tokens *TokenIssuer) *Service {
	if tx == nil {
		tx = noTx
	}
	return &Service{orgs: orgs, users: users, tx: tx, tokens: tokens, cost: bcrypt.DefaultCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) emailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

// -- Registration --

func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, invalid("email and password are required")
	}
	if err := s.emailFree(ctx, email); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:          email,
		HashedPassword: hash,
		FullName:       in.FullName,
		Role:           RolePatient,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterOrganization creates the organization and its admin user together.
func (s *Service) RegisterOrganization(ctx context.Context, in RegisterOrganizationInput) (*Organization, *User, error) {
	name := strings.TrimSpace(in.OrgName)
	email := normalizeEmail(in.AdminEmail)
	if name == "" {
		return nil, nil, invalid("org_name is required")
	}
	if email == "" || in.AdminPassword == "" {
		return nil, nil, invalid("admin_email and admin_password are required")
	}

	hash, err := hashPassword(in.AdminPassword, s.cost)
	if err != nil {
		return nil, nil, err
	}

	var org *Organization
	var admin *User
	err = s.tx(ctx, func(ctx context.Context) error {
		if _, err := s.orgs.GetByName(ctx, name); err == nil {
			return ErrOrganizationExists
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.emailFree(ctx, email); err != nil {
			return err
		}

		org = &Organization{Name: name}
		if err := s.orgs.Create(ctx, org); err != nil {
			return err
		}
		admin = &User{
			Email:          email,
			HashedPassword: hash,
			FullName:       strPtr(in.AdminName),
			Role:           RoleOrgAdmin,
			OrganizationID: &org.ID,
			IsActive:       true,
		}
		return s.users.Create(ctx, admin)
	})
	if err != nil {
		return nil, nil, err
	}
	return org, admin, nil
}

// -- Login --

func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(u.HashedPassword, in.Password) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}

	res := &LoginResult{
		AccessToken:    token,
		TokenType:      "bearer",
		ExpiresAt:      exp,
		UserName:       u.DisplayName(),
		UserID:         u.ID,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
	if u.OrganizationID != nil {
		org, err := s.orgs.GetByID(ctx, *u.OrganizationID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if org != nil {
			res.OrganizationName = &org.Name
		}
	}
	return res, nil
}

// -- Doctors --

func (s *Service) AddDoctor(ctx context.Context, in AddDoctorInput) (*User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.FullName) == "" {
		return nil, invalid("email, password and full_name are required")
	}
	if _, err := s.orgs.GetByID(ctx, in.OrganizationID); err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	if err := s.emailFree(ctx, email); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	orgID := in.OrganizationID
	u := &User{
		Email:          email,
		HashedPassword: hash,
		FullName:       strPtr(in.FullName),
		Role:           RoleDoctor,
		OrganizationID: &orgID,
		Specialization: in.Specialization,
		Availability:   in.Availability,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ListOrgDoctors(ctx context.Context, orgID uuid.UUID, search string) ([]DoctorSummary, error) {
	doctors, err := s.users.ListDoctors(ctx, DoctorFilter{OrganizationID: &orgID, Search: search})
	if err != nil {
		return nil, err
	}
	out := make([]DoctorSummary, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, NewDoctorSummary(d))
	}
	return out, nil
}

func (s *Service) getDoctor(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleDoctor {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, upd DoctorUpdate) (*User, error) {
	u, err := s.getDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if nonEmpty(upd.FullName) {
		u.FullName = upd.FullName
	}
	if nonEmpty(upd.Specialization) {
		u.Specialization = upd.Specialization
	}
	if nonEmpty(upd.Availability) {
		u.Availability = upd.Availability
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	if _, err := s.getDoctor(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

// ListDoctors is the patient-facing directory across all organizations.
func (s *Service) ListDoctors(ctx context.Context, specialization string) ([]DoctorListing, error) {
	doctors, err := s.users.ListDoctors(ctx, DoctorFilter{Specialization: specialization})
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string)
	out := make([]DoctorListing, 0, len(doctors))
	for _, d := range doctors {
		l := DoctorListing{
			ID:               d.ID,
			FullName:         d.FullName,
			Specialization:   d.Specialization,
			Availability:     d.Availability,
			OrganizationID:   d.OrganizationID,
			OrganizationName: "Unknown",
		}
		if d.OrganizationID != nil {
			name, ok := names[*d.OrganizationID]
			if !ok {
				org, err := s.orgs.GetByID(ctx, *d.OrganizationID)
				switch {
				case err == nil:
					name = org.Name
				case errors.Is(err, ErrNotFound):
					name = "Unknown"
				default:
					return nil, err
				}
				names[*d.OrganizationID] = name
			}
			l.OrganizationName = name
		}
		out = append(out, l)
	}
	return out, nil
}

// -- Patient profile --

func (s *Service) UpdatePatientProfile(ctx context.Context, userID uuid.UUID, upd PatientProfileUpdate) (*User, error) {
	if strings.TrimSpace(upd.FullName) == "" {
		return nil, invalid("full_name is required")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.FullName = strPtr(upd.FullName)
	if nonEmpty(upd.Password) {
		hash, err := hashPassword(*upd.Password, s.cost)
		if err != nil {
			return nil, err
		}
		u.HashedPassword = hash
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
