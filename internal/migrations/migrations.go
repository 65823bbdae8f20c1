// Package migrations holds the col-git schema history. Definitions are
// append-only: never rename, reorder or remove an entry once it has shipped.
package migrations

import (
	"github.com/example/colgit/internal/persistence/migration"
	"github.com/example/colgit/internal/persistence/schema"
)

// All returns the col-git migrations in execution order.
func All() []migration.Definition {
	return []migration.Definition{
		{Name: "001_initial_schema", Action: migration.Apply(initialSchema()...)},
		{Name: "002_add_avatar_url_to_communities", Action: migration.Apply(
			schema.AddColumn{Table: "communities", Column: "avatar_url", Definition: "VARCHAR(255)", After: "description"},
		)},
		{Name: "003_add_indexes_to_repositories", Action: migration.Apply(
			schema.AddIndex{Table: "repositories", Name: "idx_repo_updated_at", Columns: []string{"updated_at"}},
		)},
	}
}

// Registry returns All as a validated registry.
func Registry() (*migration.Registry, error) {
	return migration.NewRegistry(All()...)
}
