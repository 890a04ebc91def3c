package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SrinivasaPrasadGade/med-x/internal/platform/db"
)

// PGSink stores entries in the audit_log table.
type PGSink struct {
	pool *pgxpool.Pool
}

func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

func (s *PGSink) Append(ctx context.Context, e Entry) error {
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO audit_log (id, ts, action, actor, status)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Timestamp, e.Action, e.User, e.Status,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PGSink) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, ts, action, actor, status FROM audit_log ORDER BY seq DESC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.Conn(ctx, s.pool).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.User, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
