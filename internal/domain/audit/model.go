package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one audit record. Entries are never modified after Append.
type Entry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	User      string `json:"user"`
	Status    string `json:"status"`
}

// Placeholder timestamp used by callers that do not supply one.
const TimestampJustNow = "Just now"

// NewEntry stamps an entry with a random id and the current UTC time.
func NewEntry(action, user, status string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Action:    action,
		User:      user,
		Status:    status,
	}
}
