package gateway

import (
	"fmt"
	"strings"
)

// Engine identifies the relational engine behind a gateway.
type Engine string

const (
	EngineSQLite   Engine = "sqlite"
	EnginePostgres Engine = "postgres"
	EngineMySQL    Engine = "mysql"
)

// ParseEngine maps a configuration value to an Engine. Common aliases such as
// "postgresql" and "sqlite3" are accepted.
func ParseEngine(value string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	case "postgres", "postgresql", "pgx":
		return EnginePostgres, nil
	case "mysql", "mariadb":
		return EngineMySQL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, value)
}

// String implements fmt.Stringer.
func (e Engine) String() string {
	return string(e)
}

// TransactionalDDL reports whether DDL statements on the engine can be
// rolled back as part of a transaction. MySQL commits implicitly on every
// DDL statement.
func (e Engine) TransactionalDDL() bool {
	switch e {
	case EngineSQLite, EnginePostgres:
		return true
	default:
		return false
	}
}

// driverName returns the database/sql driver registered for the engine.
func (e Engine) driverName() string {
	switch e {
	case EnginePostgres:
		return "pgx"
	case EngineMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}
