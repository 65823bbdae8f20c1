package schema

import (
	"fmt"
	"strings"

	"github.com/example/colgit/internal/persistence/gateway"
)

// Operation is a typed DDL descriptor. Descriptors are engine neutral and
// rendered by a Dialect at execution time.
type Operation interface {
	// Describe returns a short human readable summary used in logs and errors.
	Describe() string
	validate() error
}

// Column declares a column by name and its SQL definition, for example
// {Name: "email", Definition: "VARCHAR(255) NOT NULL"}. Overrides replaces
// the definition on the listed engines, for types without a portable
// spelling such as binary blobs.
type Column struct {
	Name       string
	Definition string
	Overrides  map[gateway.Engine]string
}

// definitionFor returns the column definition to render on engine.
func (c Column) definitionFor(engine gateway.Engine) string {
	if def, ok := c.Overrides[engine]; ok {
		return def
	}
	return c.Definition
}

// AddColumn adds a single column to an existing table. After positions the
// column on engines that support it and is ignored elsewhere.
type AddColumn struct {
	Table      string
	Column     string
	Definition string
	After      string
}

// AddIndex creates a secondary index.
type AddIndex struct {
	Table   string
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKey declares a named referential constraint.
type ForeignKey struct {
	Name       string
	Table      string
	Columns    []string
	RefTable   string
	RefColumns []string
	// OnDelete is the referential action, e.g. CASCADE or SET NULL.
	OnDelete string
}

// CreateTable creates a table with its primary key and inline foreign keys.
// Indexes are created after the table, each one guarded by its own probe.
type CreateTable struct {
	Table       string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
	Indexes     []AddIndex
}

// Describe implements Operation.
func (op AddColumn) Describe() string {
	return fmt.Sprintf("add column %s.%s", op.Table, op.Column)
}

func (op AddColumn) validate() error {
	switch {
	case op.Table == "":
		return fmt.Errorf("%w: add column: table is required", ErrInvalidOperation)
	case op.Column == "":
		return fmt.Errorf("%w: add column on %s: column is required", ErrInvalidOperation, op.Table)
	case strings.TrimSpace(op.Definition) == "":
		return fmt.Errorf("%w: add column %s.%s: definition is required", ErrInvalidOperation, op.Table, op.Column)
	}
	return nil
}

// Describe implements Operation.
func (op AddIndex) Describe() string {
	return fmt.Sprintf("add index %s on %s", op.Name, op.Table)
}

func (op AddIndex) validate() error {
	switch {
	case op.Table == "":
		return fmt.Errorf("%w: add index %s: table is required", ErrInvalidOperation, op.Name)
	case op.Name == "":
		return fmt.Errorf("%w: add index on %s: name is required", ErrInvalidOperation, op.Table)
	case len(op.Columns) == 0:
		return fmt.Errorf("%w: add index %s: at least one column is required", ErrInvalidOperation, op.Name)
	}
	return nil
}

// Describe implements Operation.
func (op ForeignKey) Describe() string {
	return fmt.Sprintf("add foreign key %s on %s", op.Name, op.Table)
}

func (op ForeignKey) validate() error {
	switch {
	case op.Name == "":
		return fmt.Errorf("%w: foreign key on %s: name is required", ErrInvalidOperation, op.Table)
	case op.Table == "" || op.RefTable == "":
		return fmt.Errorf("%w: foreign key %s: table and referenced table are required", ErrInvalidOperation, op.Name)
	case len(op.Columns) == 0 || len(op.Columns) != len(op.RefColumns):
		return fmt.Errorf("%w: foreign key %s: column lists must be non-empty and of equal length", ErrInvalidOperation, op.Name)
	}
	return nil
}

// Describe implements Operation.
func (op CreateTable) Describe() string {
	return fmt.Sprintf("create table %s", op.Table)
}

func (op CreateTable) validate() error {
	if op.Table == "" {
		return fmt.Errorf("%w: create table: table is required", ErrInvalidOperation)
	}
	if len(op.Columns) == 0 {
		return fmt.Errorf("%w: create table %s: at least one column is required", ErrInvalidOperation, op.Table)
	}
	for _, col := range op.Columns {
		if col.Name == "" || strings.TrimSpace(col.Definition) == "" {
			return fmt.Errorf("%w: create table %s: columns need a name and a definition", ErrInvalidOperation, op.Table)
		}
	}
	for _, fk := range op.ForeignKeys {
		fk.Table = op.Table
		if err := fk.validate(); err != nil {
			return err
		}
	}
	for _, idx := range op.Indexes {
		idx.Table = op.Table
		if err := idx.validate(); err != nil {
			return err
		}
	}
	return nil
}

// RenderAddColumn renders op for the dialect.
func (d Dialect) RenderAddColumn(op AddColumn) string {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", d.quote(op.Table), d.quote(op.Column), op.Definition)
	if op.After != "" && d.columnPosition {
		stmt += " AFTER " + d.quote(op.After)
	}
	return stmt
}

// RenderAddIndex renders op for the dialect.
func (d Dialect) RenderAddIndex(op AddIndex) string {
	kind := "INDEX"
	if op.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, d.quote(op.Name), d.quote(op.Table), d.quoteList(op.Columns))
}

// RenderAddForeignKey renders op as an ALTER TABLE statement. It fails with
// ErrUnsupported on engines that cannot add constraints to existing tables.
func (d Dialect) RenderAddForeignKey(op ForeignKey) (string, error) {
	if !d.alterForeignKey {
		return "", fmt.Errorf("%w: %s cannot add foreign key %s to an existing table", ErrUnsupported, d.engine, op.Name)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.quote(op.Table), d.foreignKeyClause(op)), nil
}

// RenderCreateTable renders the CREATE TABLE statement for op. Indexes are
// not part of the statement.
func (d Dialect) RenderCreateTable(op CreateTable) string {
	lines := make([]string, 0, len(op.Columns)+len(op.ForeignKeys)+1)
	for _, col := range op.Columns {
		lines = append(lines, fmt.Sprintf("%s %s", d.quote(col.Name), col.definitionFor(d.engine)))
	}
	if len(op.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", d.quoteList(op.PrimaryKey)))
	}
	for _, fk := range op.ForeignKeys {
		lines = append(lines, d.foreignKeyClause(fk))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.quote(op.Table), strings.Join(lines, ",\n  "))
}

func (d Dialect) foreignKeyClause(fk ForeignKey) string {
	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.quote(fk.Name), d.quoteList(fk.Columns), d.quote(fk.RefTable), d.quoteList(fk.RefColumns))
	if fk.OnDelete != "" {
		clause += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	return clause
}
