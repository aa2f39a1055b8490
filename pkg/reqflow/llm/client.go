// Package llm defines the text-generation capability the pipelines consume:
// one prompt in, one text completion out. No streaming, no multi-turn
// context, no tool use.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Request configures a single generation call.
type Request struct {
	// SystemPrompt sets persistent instructions, if the backend supports it.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Prompt is the user-visible prompt text.
	Prompt string `json:"prompt"`

	// Model overrides the client's default model.
	Model string `json:"model,omitempty"`
}

// Response is the output of a generation call.
type Response struct {
	Text     string        `json:"text"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration"`
}

// Client is a stateless, single-shot generation service.
type Client interface {
	// Generate performs one completion call.
	// Implementations must honor context cancellation.
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Error wraps generation call failures with operation context.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}
