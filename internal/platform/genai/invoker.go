// Package genai is the boundary to the external generative model. Adapters
// classify every failure into a Kind so callers never inspect error text.
package genai

import "context"

// Blob is a binary attachment sent alongside the instruction.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Prompt is a fully rendered model request. It is not modified after it is
// built.
type Prompt struct {
	Instruction string
	Attachment  *Blob
}

// HasAttachment reports whether the prompt carries binary input.
func (p Prompt) HasAttachment() bool {
	return p.Attachment != nil && len(p.Attachment.Data) > 0
}

// Invoker sends a prompt to a generative backend and returns the raw text.
// Invoke makes exactly one backend call and never retries. Errors are *Error.
type Invoker interface {
	Configured() bool
	Invoke(ctx context.Context, p Prompt) (string, error)
}

// Unconfigured is the Invoker used when no credential is present.
type Unconfigured struct{}

func (Unconfigured) Configured() bool { return false }

func (Unconfigured) Invoke(context.Context, Prompt) (string, error) {
	return "", ErrNoCredentials
}
