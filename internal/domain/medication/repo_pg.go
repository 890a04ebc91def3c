package medication

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SrinivasaPrasadGade/med-x/internal/platform/db"
	"github.com/SrinivasaPrasadGade/med-x/pkg/pagination"
)

// -- Medication Repository --

type medicationRepoPG struct {
	pool *pgxpool.Pool
}

func NewMedicationRepo(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medications (id, name, dosage, frequency) VALUES ($1, $2, $3, $4)
		RETURNING created_at`, m.ID, m.Name, m.Dosage, m.Frequency).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create medication: %w", err)
	}
	return nil
}

func (r *medicationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *medicationRepoPG) List(ctx context.Context, p pagination.Params) ([]*Medication, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM medications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count medications: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT id, name, dosage, frequency, created_at FROM medications
		ORDER BY created_at, id `+p.SQL())
	if err != nil {
		return nil, 0, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var out []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.Name, &m.Dosage, &m.Frequency, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan medication: %w", err)
		}
		out = append(out, &m)
	}
	return out, total, rows.Err()
}

// -- Adherence Repository --

type adherenceRepoPG struct {
	pool *pgxpool.Pool
}

func NewAdherenceRepo(pool *pgxpool.Pool) AdherenceRepository {
	return &adherenceRepoPG{pool: pool}
}

func (r *adherenceRepoPG) Record(ctx context.Context, event AdherenceEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode adherence event: %w", err)
	}
	if _, err := db.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO adherence_log (payload) VALUES ($1)`, payload); err != nil {
		return fmt.Errorf("record adherence: %w", err)
	}
	return nil
}
