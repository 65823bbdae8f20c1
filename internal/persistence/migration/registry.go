package migration

import (
	"context"
	"strings"

	"github.com/example/colgit/internal/logging"
	"github.com/example/colgit/internal/persistence/gateway"
	"github.com/example/colgit/internal/persistence/schema"
)

// Registry is the ordered, immutable list of migrations an application
// knows about. Declaration order is execution order.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry validates defs and returns a registry preserving their order.
// Duplicate or empty names and nil actions are reported as a
// *ConfigurationError before any database is touched.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for i, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return nil, &ConfigurationError{Err: ErrEmptyName}
		}
		if def.Action == nil {
			return nil, &ConfigurationError{Name: def.Name, Err: ErrNilAction}
		}
		if _, dup := r.index[def.Name]; dup {
			return nil, &ConfigurationError{Name: def.Name, Err: ErrDuplicateName}
		}
		r.index[def.Name] = i
		r.defs = append(r.defs, def)
	}
	return r, nil
}

// Definitions returns the definitions in declaration order.
func (r *Registry) Definitions() []Definition {
	return append([]Definition(nil), r.defs...)
}

// Names returns the migration names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, def := range r.defs {
		names[i] = def.Name
	}
	return names
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Apply builds an Action that executes the schema descriptors in order
// through a Mutator bound to the action's gateway.
func Apply(ops ...schema.Operation) Action {
	return func(ctx context.Context, gw gateway.Gateway) error {
		m, err := schema.NewMutator(gw, schema.WithLogger(logging.FromContext(ctx)))
		if err != nil {
			return err
		}
		return m.Apply(ctx, ops...)
	}
}

// Noop is an Action that changes nothing. It keeps a historical name in the
// registry after its work moved elsewhere.
func Noop(context.Context, gateway.Gateway) error {
	return nil
}
