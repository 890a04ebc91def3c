package audit

import "context"

// Sink is an append-only audit store shared by concurrent callers. Each
// Append is atomic. List returns the newest entries first.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}
