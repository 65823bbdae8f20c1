package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // SQLite driver
)

// TxMode selects whether migrations run inside transactions.
type TxMode string

const (
	// TxAuto follows the engine default.
	TxAuto TxMode = "auto"
	// TxOn forces transactional execution.
	TxOn TxMode = "on"
	// TxOff disables transactional execution.
	TxOff TxMode = "off"
)

// Config holds connection configuration for every supported engine. The
// SQLite specific fields are ignored for the server engines.
type Config struct {
	// Engine selects the driver
	Engine Engine

	// DSN is the driver specific connection string
	DSN string

	// TransactionalDDL overrides the engine default
	TransactionalDDL TxMode

	// BusyTimeout sets how long SQLite waits for database locks
	BusyTimeout time.Duration

	// EnableForeignKeys enables SQLite foreign key enforcement
	EnableForeignKeys bool

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, etc.)
	JournalMode string

	// Synchronous sets the SQLite synchronous mode (FULL, NORMAL, OFF)
	Synchronous string

	// MaxOpenConns sets the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns sets the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime sets the maximum lifetime of connections
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a configuration with sensible defaults for the engine.
func DefaultConfig(engine Engine, dsn string) Config {
	cfg := Config{
		Engine:           engine,
		DSN:              dsn,
		TransactionalDDL: TxAuto,
		MaxOpenConns:     10,
		MaxIdleConns:     2,
		ConnMaxLifetime:  5 * time.Minute,
	}
	if engine == EngineSQLite {
		cfg.BusyTimeout = 30 * time.Second
		cfg.EnableForeignKeys = true
		cfg.JournalMode = "WAL"
		cfg.Synchronous = "NORMAL"
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	return cfg
}

// InMemorySQLiteConfig returns a SQLite configuration for in-memory use. A
// single connection is enforced since every connection gets its own database.
func InMemorySQLiteConfig() Config {
	return Config{
		Engine:            EngineSQLite,
		DSN:               ":memory:",
		TransactionalDDL:  TxAuto,
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "MEMORY",
		Synchronous:       "OFF",
		MaxOpenConns:      1,
		MaxIdleConns:      1,
	}
}

// Validate checks the configuration before any connection is attempted.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineSQLite, EnginePostgres, EngineMySQL:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownEngine, c.Engine)
	}

	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("%w: DSN cannot be empty", ErrInvalidConfig)
	}

	switch c.TransactionalDDL {
	case "", TxAuto, TxOn, TxOff:
	default:
		return fmt.Errorf("%w: invalid transactional DDL mode: %s", ErrInvalidConfig, c.TransactionalDDL)
	}

	if c.BusyTimeout < 0 {
		return fmt.Errorf("%w: BusyTimeout cannot be negative", ErrInvalidConfig)
	}

	validJournalModes := map[string]bool{
		"DELETE":   true,
		"TRUNCATE": true,
		"PERSIST":  true,
		"MEMORY":   true,
		"WAL":      true,
		"OFF":      true,
	}
	if c.JournalMode != "" && !validJournalModes[strings.ToUpper(c.JournalMode)] {
		return fmt.Errorf("%w: invalid journal mode: %s", ErrInvalidConfig, c.JournalMode)
	}

	validSyncModes := map[string]bool{
		"OFF":    true,
		"NORMAL": true,
		"FULL":   true,
		"EXTRA":  true,
	}
	if c.Synchronous != "" && !validSyncModes[strings.ToUpper(c.Synchronous)] {
		return fmt.Errorf("%w: invalid synchronous mode: %s", ErrInvalidConfig, c.Synchronous)
	}

	if c.MaxOpenConns < 0 {
		return fmt.Errorf("%w: MaxOpenConns cannot be negative", ErrInvalidConfig)
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("%w: MaxIdleConns cannot be negative", ErrInvalidConfig)
	}
	if c.ConnMaxLifetime < 0 {
		return fmt.Errorf("%w: ConnMaxLifetime cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) transactionalDDL() bool {
	switch c.TransactionalDDL {
	case TxOn:
		return true
	case TxOff:
		return false
	default:
		return c.Engine.TransactionalDDL()
	}
}

// Open validates cfg, opens the pool for the configured engine and verifies
// connectivity.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Engine {
	case EnginePostgres:
		db, err = openPostgres(cfg.DSN)
	case EngineMySQL:
		db, err = openMySQL(cfg.DSN)
	default:
		db, err = openSQLite(cfg)
	}
	if err != nil {
		return nil, newGatewayError(cfg.Engine, "open", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, newGatewayError(cfg.Engine, "ping", err)
	}

	return New(db, cfg.Engine, WithTransactionalDDL(cfg.transactionalDDL())), nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return stdlib.OpenDB(*connConfig), nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	mysqlConfig, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	// Ledger timestamps are scanned into time.Time.
	mysqlConfig.ParseTime = true
	mysqlConfig.Loc = time.UTC

	connector, err := mysql.NewConnector(mysqlConfig)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func openSQLite(cfg Config) (*sql.DB, error) {
	if err := ensureSQLiteDir(cfg.DSN); err != nil {
		return nil, err
	}
	if isSQLiteMemory(cfg.DSN) {
		cfg.MaxOpenConns = 1
	}
	return sql.Open(EngineSQLite.driverName(), sqliteDSN(cfg))
}

// sqliteDSN appends the configured PRAGMAs as _pragma parameters so that
// every pooled connection is configured, not only the first one.
func sqliteDSN(cfg Config) string {
	pragmas := make([]string, 0, 4)
	if cfg.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	}
	if cfg.EnableForeignKeys {
		pragmas = append(pragmas, "foreign_keys(1)")
	}
	if cfg.JournalMode != "" && !isSQLiteMemory(cfg.DSN) {
		pragmas = append(pragmas, fmt.Sprintf("journal_mode(%s)", strings.ToUpper(cfg.JournalMode)))
	}
	if cfg.Synchronous != "" {
		pragmas = append(pragmas, fmt.Sprintf("synchronous(%s)", strings.ToUpper(cfg.Synchronous)))
	}
	if len(pragmas) == 0 {
		return cfg.DSN
	}

	var b strings.Builder
	b.WriteString(cfg.DSN)
	sep := "?"
	if strings.Contains(cfg.DSN, "?") {
		sep = "&"
	}
	for _, pragma := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(pragma)
		sep = "&"
	}
	return b.String()
}

func isSQLiteMemory(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, ":memory:?") || strings.Contains(dsn, "mode=memory")
}

// ensureSQLiteDir creates the parent directory of a file backed database.
func ensureSQLiteDir(dsn string) error {
	if isSQLiteMemory(dsn) {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}
