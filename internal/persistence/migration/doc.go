// Package migration evolves a relational schema forward through an ordered
// registry of named migrations.
//
// The package provides:
//
//   - Registry, the static ordered list of definitions
//   - Store and SQLStore, the ledger of completed migrations
//   - Runner, which applies pending definitions in order and records each one
//   - Locker implementations that serialise runs across processes
//
// A migration's name is its only identity. Once the ledger holds a record
// for a name, that migration never runs again. There are no down migrations.
//
// Example usage:
//
//	reg, err := migration.NewRegistry(migrations.All()...)
//	if err != nil {
//		return err
//	}
//	runner := migration.NewRunner(migration.NewSQLStore(gw), gw, migration.WithLogger(logger))
//	if _, err := runner.Run(ctx, reg); err != nil {
//		return err
//	}
package migration
