package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName indicates that two definitions share a name
	ErrDuplicateName = errors.New("duplicate migration name")

	// ErrEmptyName indicates a definition without a name
	ErrEmptyName = errors.New("migration name is empty")

	// ErrNilAction indicates a definition without an action
	ErrNilAction = errors.New("migration action is nil")

	// ErrNilRegistry indicates that Run was called without a registry
	ErrNilRegistry = errors.New("migration registry is nil")

	// ErrAlreadyRecorded indicates that the ledger already holds a record for the name
	ErrAlreadyRecorded = errors.New("migration already recorded")

	// ErrLockNotAcquired indicates that the migration lock could not be obtained in time
	ErrLockNotAcquired = errors.New("migration lock not acquired")
)

// Phases reported by MigrationError.
const (
	PhaseApply  = "apply"
	PhaseRecord = "record"
	PhaseCommit = "commit"
)

// ConfigurationError reports an invalid registry. It is raised before any
// database interaction.
type ConfigurationError struct {
	Name string // Offending migration name, if any
	Err  error  // Underlying error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("migration configuration: %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("migration configuration: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LedgerWriteError reports that a completion record could not be written.
type LedgerWriteError struct {
	Name  string // Migration name being recorded
	Table string // Ledger table
	Err   error  // Underlying error
}

// Error implements the error interface
func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger %s: record %s: %v", e.Table, e.Name, e.Err)
}

// Unwrap returns the underlying error
func (e *LedgerWriteError) Unwrap() error {
	return e.Err
}

// MigrationError annotates a failure with the migration that caused it and
// the phase it failed in. The underlying ProbeError, MutationError,
// LedgerWriteError or GatewayError stays reachable through errors.As.
type MigrationError struct {
	Name  string // Migration name
	Phase string // apply, record or commit
	Err   error  // Underlying error
}

// Error implements the error interface
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s: %s: %v", e.Name, e.Phase, e.Err)
}

// Unwrap returns the underlying error for error unwrapping
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError creates a new MigrationError with context
func NewMigrationError(name, phase string, err error) *MigrationError {
	return &MigrationError{Name: name, Phase: phase, Err: err}
}
