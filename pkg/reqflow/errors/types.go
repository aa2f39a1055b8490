package errors

import "fmt"

// InputError indicates a missing or invalid caller-supplied field.
// It is raised before any network or store call is made.
type InputError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("input error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("input error: %s", e.Message)
}

// UpstreamError indicates the generation service was unreachable or
// returned an error status.
type UpstreamError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation service failed during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ShapeError indicates the generation service responded but its output
// failed structural validation. Raw holds the offending text for diagnosis.
type ShapeError struct {
	Raw     string
	Message string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape error: %s", e.Message)
}

// PersistenceError indicates a store operation failed.
type PersistenceError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
