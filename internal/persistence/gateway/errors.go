package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrUnknownEngine indicates that a configured engine name is not supported.
	ErrUnknownEngine = errors.New("unknown database engine")

	// ErrInvalidConfig indicates that the connection configuration failed validation.
	ErrInvalidConfig = errors.New("invalid gateway configuration")
)

// GatewayError reports a transport level failure: the connection could not
// be opened, pinged, or a transaction could not be started or finished.
type GatewayError struct {
	Engine    Engine // Engine the gateway talks to
	Operation string // open, ping, begin, commit
	Err       error  // Driver error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %s: %v", e.Engine, e.Operation, e.Err)
}

// Unwrap returns the driver error.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

func newGatewayError(engine Engine, operation string, err error) *GatewayError {
	return &GatewayError{Engine: engine, Operation: operation, Err: err}
}

// Driver codes for primary key and unique constraint violations.
const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqlitePrimaryKeyCode = sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	sqliteUniqueCode     = sqlite3.SQLITE_CONSTRAINT_UNIQUE
)

// IsUniqueViolation reports whether err is a driver error for a duplicate
// primary key or unique index entry.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	// modernc.org/sqlite reports extended result codes through Code().
	var liteErr interface{ Code() int }
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlitePrimaryKeyCode || code == sqliteUniqueCode {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE constraint failed")
	}
	return false
}
