package schema

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/example/colgit/internal/persistence/gateway"
)

// probe builds an existence query for an object on a table. The query must
// return a single COUNT(*) row.
type probe func(table, object string) (string, []any)

// Dialect captures how an engine quotes identifiers, answers existence
// probes and which DDL forms it accepts.
type Dialect struct {
	engine gateway.Engine
	quote  func(string) string

	tableProbe      func(table string) (string, []any)
	columnProbe     probe
	indexProbe      probe
	foreignKeyProbe probe

	// columnPosition reports support for ADD COLUMN ... AFTER.
	columnPosition bool
	// alterForeignKey reports support for ALTER TABLE ... ADD CONSTRAINT.
	alterForeignKey bool
}

// DialectFor returns the dialect for engine.
func DialectFor(engine gateway.Engine) (Dialect, error) {
	switch engine {
	case gateway.EngineSQLite:
		return sqliteDialect, nil
	case gateway.EnginePostgres:
		return postgresDialect, nil
	case gateway.EngineMySQL:
		return mysqlDialect, nil
	}
	return Dialect{}, fmt.Errorf("%w: %q", gateway.ErrUnknownEngine, engine)
}

// Engine returns the engine the dialect renders for.
func (d Dialect) Engine() gateway.Engine { return d.engine }

// Quote quotes an identifier for the engine.
func (d Dialect) Quote(ident string) string { return d.quote(ident) }

func (d Dialect) quoteList(idents []string) string {
	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = d.quote(ident)
	}
	return strings.Join(quoted, ", ")
}

var sqliteDialect = Dialect{
	engine: gateway.EngineSQLite,
	quote:  quoteDouble,
	tableProbe: func(table string) (string, []any) {
		return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []any{table}
	},
	columnProbe: func(table, column string) (string, []any) {
		return "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", []any{table, column}
	},
	indexProbe: func(table, index string) (string, []any) {
		return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?", []any{table, index}
	},
	// SQLite does not catalogue constraint names; they only survive in the
	// stored CREATE TABLE text.
	foreignKeyProbe: func(table, name string) (string, []any) {
		return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? AND instr(sql, ?) > 0",
			[]any{table, "CONSTRAINT " + quoteDouble(name) + " FOREIGN KEY"}
	},
}

var postgresDialect = Dialect{
	engine: gateway.EnginePostgres,
	quote: func(ident string) string {
		return pgx.Identifier{ident}.Sanitize()
	},
	tableProbe: func(table string) (string, []any) {
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?", []any{table}
	},
	columnProbe: func(table, column string) (string, []any) {
		return "SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?", []any{table, column}
	},
	indexProbe: func(table, index string) (string, []any) {
		return "SELECT COUNT(*) FROM pg_indexes WHERE schemaname = current_schema() AND tablename = ? AND indexname = ?", []any{table, index}
	},
	foreignKeyProbe: func(table, name string) (string, []any) {
		return "SELECT COUNT(*) FROM information_schema.table_constraints WHERE constraint_schema = current_schema() AND table_name = ? AND constraint_name = ? AND constraint_type = 'FOREIGN KEY'", []any{table, name}
	},
	alterForeignKey: true,
}

var mysqlDialect = Dialect{
	engine: gateway.EngineMySQL,
	quote: func(ident string) string {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	},
	tableProbe: func(table string) (string, []any) {
		return "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?", []any{table}
	},
	columnProbe: func(table, column string) (string, []any) {
		return "SELECT COUNT(*) FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?", []any{table, column}
	},
	indexProbe: func(table, index string) (string, []any) {
		return "SELECT COUNT(*) FROM INFORMATION_SCHEMA.STATISTICS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = ?", []any{table, index}
	},
	foreignKeyProbe: func(table, name string) (string, []any) {
		return "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS WHERE CONSTRAINT_SCHEMA = DATABASE() AND TABLE_NAME = ? AND CONSTRAINT_NAME = ? AND CONSTRAINT_TYPE = 'FOREIGN KEY'", []any{table, name}
	},
	columnPosition:  true,
	alterForeignKey: true,
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
