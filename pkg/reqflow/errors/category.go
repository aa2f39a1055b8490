// Package errors defines the error taxonomy shared by the synthesis and
// generation pipelines.
//
// Four kinds cross the public API:
//   - InputError: a required caller field is missing; never sent downstream
//   - UpstreamError: the generation service call itself failed
//   - ShapeError: the service responded but its output failed validation
//   - PersistenceError: a store operation failed
//
// None of them are retried automatically. Categorize distinguishes errors
// that a fresh user action might fix from those that need the same action
// repeated against a recovered dependency.
package errors

import "errors"

// Category describes how an error should be surfaced.
type Category int

const (
	// CategoryInvalid indicates the request itself was bad.
	// A corrected user action is required; retrying as-is cannot help.
	CategoryInvalid Category = iota

	// CategoryDependency indicates a dependency (generation service or
	// store) failed. The same action may succeed once it recovers.
	CategoryDependency

	// CategoryUnknown indicates an error outside the taxonomy.
	CategoryUnknown
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryInvalid:
		return "invalid"
	case CategoryDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// Categorize maps an error to its category by walking the wrap chain.
func Categorize(err error) Category {
	var inputErr *InputError
	var shapeErr *ShapeError
	var upstreamErr *UpstreamError
	var persistErr *PersistenceError

	switch {
	case errors.As(err, &inputErr), errors.As(err, &shapeErr):
		return CategoryInvalid
	case errors.As(err, &upstreamErr), errors.As(err, &persistErr):
		return CategoryDependency
	default:
		return CategoryUnknown
	}
}
