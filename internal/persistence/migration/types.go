package migration

import (
	"context"
	"time"

	"github.com/example/colgit/internal/persistence/gateway"
)

// Action performs the schema change of a migration through gw. When the
// gateway supports transactional DDL, gw is bound to the transaction that
// also records the migration.
type Action func(ctx context.Context, gw gateway.Gateway) error

// Definition is a named, forward-only schema change. Names follow the
// "NNN_description" convention and are the only identity the ledger knows.
type Definition struct {
	Name   string
	Action Action
}

// Record is a ledger row: proof that the migration with Name completed.
type Record struct {
	Name       string
	ExecutedAt time.Time
}

// Report summarises a Run.
type Report struct {
	RunID    string
	Applied  []string
	Skipped  int
	Duration time.Duration
}

// Status compares a registry with the ledger.
type Status struct {
	// Applied lists ledger records for names present in the registry, in
	// registry order.
	Applied []Record
	// Pending lists registry names without a ledger record, in registry order.
	Pending []string
	// Unknown lists ledger names the registry does not define.
	Unknown []string
}
