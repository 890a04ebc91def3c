package audit

import (
	"context"
	"sync"
)

// MemorySink keeps entries in process memory, newest first. A positive max
// drops the oldest entries beyond it.
type MemorySink struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

func NewMemorySink(max int) *MemorySink {
	return &MemorySink{max: max}
}

func (s *MemorySink) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{})
	copy(s.entries[1:], s.entries)
	s.entries[0] = e
	if s.max > 0 && len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
	return nil
}

func (s *MemorySink) List(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, s.entries[:n])
	return out, nil
}
