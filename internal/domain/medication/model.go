package medication

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("medication not found")
	ErrValidation = errors.New("validation failed")
)

// Adherence audit labels.
const (
	AdherenceActor         = "System"
	AdherenceDefaultStatus = "Logged"
	adherenceActionPrefix  = "Adherence Log: "
)

type Medication struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Dosage    string    `db:"dosage" json:"dosage"`
	Frequency string    `db:"frequency" json:"frequency"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

type MedicationInput struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// AdherenceEvent is a free-form adherence report. Only medication_id,
// status and timestamp are interpreted; the payload is stored as received.
type AdherenceEvent map[string]interface{}

func (a AdherenceEvent) str(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, s != ""
	}
	return fmt.Sprint(v), true
}

// Action is the audit action label for the event.
func (a AdherenceEvent) Action() string {
	id, ok := a.str("medication_id")
	if !ok {
		id = "unknown"
	}
	return adherenceActionPrefix + id
}

// Status is the reported status, or AdherenceDefaultStatus.
func (a AdherenceEvent) Status() string {
	if s, ok := a.str("status"); ok {
		return s
	}
	return AdherenceDefaultStatus
}

// Timestamp is the reported timestamp, or ok=false when absent.
func (a AdherenceEvent) Timestamp() (string, bool) {
	return a.str("timestamp")
}
