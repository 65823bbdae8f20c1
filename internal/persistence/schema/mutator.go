package schema

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/colgit/internal/persistence/gateway"
)

// Option customises a Mutator.
type Option func(*Mutator)

// WithLogger sets the logger used to report applied and skipped changes.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Mutator) {
		m.logger = logger
	}
}

// Mutator applies schema changes with check-then-act semantics: every change
// is preceded by a catalogue probe and only issued when the object is absent.
// Running the same change twice therefore issues its DDL at most once.
//
// The probe and the change are not atomic. Concurrent mutators against the
// same schema must be serialised by the caller.
type Mutator struct {
	gw      gateway.Gateway
	dialect Dialect
	logger  zerolog.Logger
}

// NewMutator returns a Mutator that issues statements through gw.
func NewMutator(gw gateway.Gateway, opts ...Option) (*Mutator, error) {
	dialect, err := DialectFor(gw.Engine())
	if err != nil {
		return nil, err
	}
	m := &Mutator{
		gw:      gw,
		dialect: dialect,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Dialect returns the dialect used for rendering.
func (m *Mutator) Dialect() Dialect { return m.dialect }

// TableExists reports whether table exists.
func (m *Mutator) TableExists(ctx context.Context, table string) (bool, error) {
	query, args := m.dialect.tableProbe(table)
	return m.exists(ctx, &ProbeError{Object: "table", Table: table, Name: table}, query, args)
}

// ColumnExists reports whether table has column.
func (m *Mutator) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	query, args := m.dialect.columnProbe(table, column)
	return m.exists(ctx, &ProbeError{Object: "column", Table: table, Name: column}, query, args)
}

// IndexExists reports whether an index named index exists on table.
func (m *Mutator) IndexExists(ctx context.Context, table, index string) (bool, error) {
	query, args := m.dialect.indexProbe(table, index)
	return m.exists(ctx, &ProbeError{Object: "index", Table: table, Name: index}, query, args)
}

// ForeignKeyExists reports whether a foreign key constraint named name exists
// on table.
func (m *Mutator) ForeignKeyExists(ctx context.Context, table, name string) (bool, error) {
	query, args := m.dialect.foreignKeyProbe(table, name)
	return m.exists(ctx, &ProbeError{Object: "foreign key", Table: table, Name: name}, query, args)
}

// AddColumnIfAbsent adds column with definition to table unless it exists.
func (m *Mutator) AddColumnIfAbsent(ctx context.Context, table, column, definition string) error {
	return m.addColumn(ctx, AddColumn{Table: table, Column: column, Definition: definition})
}

// AddIndexIfAbsent creates a non-unique index over columns unless an index
// with that name already exists on table.
func (m *Mutator) AddIndexIfAbsent(ctx context.Context, table, index string, columns ...string) error {
	return m.addIndex(ctx, AddIndex{Table: table, Name: index, Columns: columns})
}

// CreateTableIfAbsent creates the table unless it exists, then ensures every
// declared index. Indexes are probed individually so that a run interrupted
// between the two steps is completed by the next one.
func (m *Mutator) CreateTableIfAbsent(ctx context.Context, op CreateTable) error {
	if err := op.validate(); err != nil {
		return &MutationError{Operation: op.Describe(), Err: err}
	}

	exists, err := m.TableExists(ctx, op.Table)
	if err != nil {
		return err
	}
	if exists {
		m.skipped(op)
	} else if err := m.exec(ctx, op, m.dialect.RenderCreateTable(op)); err != nil {
		return err
	}

	for _, idx := range op.Indexes {
		idx.Table = op.Table
		if err := m.addIndex(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// AddForeignKeyIfAbsent adds the constraint unless it exists. Engines that
// cannot alter constraints on existing tables return ErrUnsupported; declare
// those keys in CreateTable instead.
func (m *Mutator) AddForeignKeyIfAbsent(ctx context.Context, op ForeignKey) error {
	if err := op.validate(); err != nil {
		return &MutationError{Operation: op.Describe(), Err: err}
	}

	stmt, err := m.dialect.RenderAddForeignKey(op)
	if err != nil {
		return &MutationError{Operation: op.Describe(), Err: err}
	}

	exists, err := m.ForeignKeyExists(ctx, op.Table, op.Name)
	if err != nil {
		return err
	}
	if exists {
		m.skipped(op)
		return nil
	}
	return m.exec(ctx, op, stmt)
}

// Apply executes the descriptors in order, stopping at the first failure.
func (m *Mutator) Apply(ctx context.Context, ops ...Operation) error {
	for _, op := range ops {
		var err error
		switch op := op.(type) {
		case CreateTable:
			err = m.CreateTableIfAbsent(ctx, op)
		case AddColumn:
			err = m.addColumn(ctx, op)
		case AddIndex:
			err = m.addIndex(ctx, op)
		case ForeignKey:
			err = m.AddForeignKeyIfAbsent(ctx, op)
		default:
			err = &MutationError{Operation: fmt.Sprintf("%T", op), Err: ErrUnsupported}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Mutator) addColumn(ctx context.Context, op AddColumn) error {
	if err := op.validate(); err != nil {
		return &MutationError{Operation: op.Describe(), Err: err}
	}

	exists, err := m.ColumnExists(ctx, op.Table, op.Column)
	if err != nil {
		return err
	}
	if exists {
		m.skipped(op)
		return nil
	}
	return m.exec(ctx, op, m.dialect.RenderAddColumn(op))
}

func (m *Mutator) addIndex(ctx context.Context, op AddIndex) error {
	if err := op.validate(); err != nil {
		return &MutationError{Operation: op.Describe(), Err: err}
	}

	exists, err := m.IndexExists(ctx, op.Table, op.Name)
	if err != nil {
		return err
	}
	if exists {
		m.skipped(op)
		return nil
	}
	return m.exec(ctx, op, m.dialect.RenderAddIndex(op))
}

func (m *Mutator) exists(ctx context.Context, probeErr *ProbeError, query string, args []any) (bool, error) {
	var count int64
	if err := m.gw.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		probeErr.Err = err
		return false, probeErr
	}
	return count > 0, nil
}

func (m *Mutator) exec(ctx context.Context, op Operation, stmt string) error {
	if _, err := m.gw.ExecContext(ctx, stmt); err != nil {
		return &MutationError{Operation: op.Describe(), Statement: stmt, Err: err}
	}
	m.logger.Info().Str("change", op.Describe()).Msg("schema change applied")
	return nil
}

func (m *Mutator) skipped(op Operation) {
	m.logger.Debug().Str("change", op.Describe()).Msg("schema object already present, skipping")
}
