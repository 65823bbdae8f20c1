package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported indicates that the engine cannot perform the requested change.
	ErrUnsupported = errors.New("operation not supported by engine")

	// ErrInvalidOperation indicates that a DDL descriptor is incomplete.
	ErrInvalidOperation = errors.New("invalid schema operation")
)

// ProbeError reports that an existence query against the engine catalogue
// could not be answered.
type ProbeError struct {
	Object string // table, column, index or foreign key
	Table  string // Table the object belongs to
	Name   string // Object name
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Object == "table" {
		return fmt.Sprintf("probe table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("probe %s %s on %s: %v", e.Object, e.Name, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// MutationError reports a DDL statement that the engine rejected, or a
// descriptor that could not be rendered.
type MutationError struct {
	Operation string // Describe() of the failing descriptor
	Statement string // Rendered statement, empty when rendering failed
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *MutationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}
