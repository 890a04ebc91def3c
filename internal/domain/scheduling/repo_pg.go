package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SrinivasaPrasadGade/med-x/internal/platform/db"
	"github.com/SrinivasaPrasadGade/med-x/pkg/pagination"
)

const foreignKeyViolation = "23503"

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `a.id, a.organization_id, a.doctor_id, a.patient_id, a.patient_name, a.date_time,
	a.reason, a.status, a.diagnosis, a.treatment_notes, a.created_at`

func scanAppointment(row pgx.Row, extra ...interface{}) (*Appointment, error) {
	var a Appointment
	dest := []interface{}{&a.ID, &a.OrganizationID, &a.DoctorID, &a.PatientID, &a.PatientName, &a.DateTime,
		&a.Reason, &a.Status, &a.Diagnosis, &a.TreatmentNotes, &a.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, organization_id, doctor_id, patient_id, patient_name,
			date_time, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		a.ID, a.OrganizationID, a.DoctorID, a.PatientID, a.PatientName,
		a.DateTime, a.Reason, a.Status,
	).Scan(&a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrInvalidReference
	}
	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments a WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointments SET status = $2, diagnosis = $3, treatment_notes = $4
		WHERE id = $1`,
		a.ID, a.Status, a.Diagnosis, a.TreatmentNotes)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter, p pagination.Params) ([]*AppointmentDetail, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.OrganizationID != nil {
		where += fmt.Sprintf(` AND a.organization_id = $%d`, idx)
		args = append(args, *f.OrganizationID)
		idx++
	}
	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.PatientID != nil {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.PatientName != "" {
		where += fmt.Sprintf(` AND a.patient_name ILIKE $%d`, idx)
		args = append(args, "%"+f.PatientName+"%")
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	order := "DESC"
	if f.Ascending {
		order = "ASC"
	}
	query := `SELECT ` + apptCols + `, COALESCE(d.full_name, $` + fmt.Sprint(idx) + `), COALESCE(d.specialization, '')
		FROM appointments a LEFT JOIN users d ON d.id = a.doctor_id` + where +
		fmt.Sprintf(` ORDER BY a.date_time %s, a.id %s LIMIT $%d OFFSET $%d`, order, order, idx+1, idx+2)
	args = append(args, UnknownDoctor, p.Limit, p.Offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		a, err := scanAppointment(rows, &d.DoctorName, &d.DoctorSpecialization)
		if err != nil {
			return nil, 0, fmt.Errorf("scan appointment: %w", err)
		}
		d.Appointment = *a
		out = append(out, &d)
	}
	return out, total, rows.Err()
}
