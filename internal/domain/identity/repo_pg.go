package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SrinivasaPrasadGade/med-x/internal/platform/db"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// -- Organization Repository --

type orgRepoPG struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepo(pool *pgxpool.Pool) OrganizationRepository {
	return &orgRepoPG{pool: pool}
}

func (r *orgRepoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO organizations (id, name) VALUES ($1, $2)
		RETURNING created_at`, o.ID, o.Name).Scan(&o.CreatedAt)
	if isUniqueViolation(err) {
		return ErrOrganizationExists
	}
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (r *orgRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return r.scanOne(ctx, `SELECT id, name, created_at FROM organizations WHERE id = $1`, id)
}

func (r *orgRepoPG) GetByName(ctx context.Context, name string) (*Organization, error) {
	return r.scanOne(ctx, `SELECT id, name, created_at FROM organizations WHERE name = $1`, name)
}

func (r *orgRepoPG) scanOne(ctx context.Context, query string, arg interface{}) (*Organization, error) {
	var o Organization
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, arg).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}

// -- User Repository --

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userCols = `id, email, hashed_password, full_name, role, organization_id,
	specialization, availability, is_active, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.OrganizationID,
		&u.Specialization, &u.Availability, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (id, email, hashed_password, full_name, role, organization_id,
			specialization, availability, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		u.ID, u.Email, u.HashedPassword, u.FullName, u.Role, u.OrganizationID,
		u.Specialization, u.Availability, u.IsActive,
	).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET hashed_password = $2, full_name = $3, specialization = $4,
			availability = $5, is_active = $6
		WHERE id = $1`,
		u.ID, u.HashedPassword, u.FullName, u.Specialization, u.Availability, u.IsActive)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoPG) ListDoctors(ctx context.Context, f DoctorFilter) ([]*User, error) {
	query := `SELECT ` + userCols + ` FROM users WHERE role = $1`
	args := []interface{}{RoleDoctor}
	idx := 2

	if f.OrganizationID != nil {
		query += fmt.Sprintf(" AND organization_id = $%d", idx)
		args = append(args, *f.OrganizationID)
		idx++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		query += fmt.Sprintf(" AND (full_name ILIKE $%d OR specialization ILIKE $%d)", idx, idx)
		args = append(args, "%"+s+"%")
		idx++
	}
	if s := strings.TrimSpace(f.Specialization); s != "" {
		query += fmt.Sprintf(" AND specialization ILIKE $%d", idx)
		args = append(args, "%"+s+"%")
	}
	query += " ORDER BY created_at, id"

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
