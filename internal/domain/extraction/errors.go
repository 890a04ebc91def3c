package extraction

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a caller precondition failure. Wrapped errors carry
// the detail.
var ErrInvalidRequest = errors.New("invalid request")

func invalidRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

func invalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)
}

// MalformedResponseError means the model text could not be decoded as JSON.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// SchemaMismatchError means the decoded JSON did not satisfy the kind's schema.
type SchemaMismatchError struct {
	Kind   Kind
	Detail string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("model response does not match %s schema: %s", e.Kind, e.Detail)
}
