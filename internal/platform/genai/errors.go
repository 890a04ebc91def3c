package genai

import (
	"errors"
	"fmt"
)

// Kind classifies a model invocation failure.
type Kind string

const (
	KindNoCredentials   Kind = "no_credentials"
	KindQuotaExceeded   Kind = "quota_exceeded"
	KindInvalidInput    Kind = "invalid_input"
	KindUpstreamFailure Kind = "upstream_failure"
)

// Error is the only error type an Invoker returns. StatusCode is the
// backend's HTTP status when one was received, zero otherwise.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("genai %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("genai %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so errors.Is(err, ErrQuotaExceeded)
// works regardless of status or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNoCredentials   = &Error{Kind: KindNoCredentials, Err: errors.New("no model credential configured")}
	ErrQuotaExceeded   = &Error{Kind: KindQuotaExceeded, Err: errors.New("quota exceeded")}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput, Err: errors.New("input rejected")}
	ErrUpstreamFailure = &Error{Kind: KindUpstreamFailure, Err: errors.New("upstream failure")}
)

// KindOf returns the failure kind carried by err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

func newError(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, StatusCode: status, Err: err}
}
