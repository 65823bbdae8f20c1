package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/colgit/internal/persistence/gateway"
	"github.com/example/colgit/internal/persistence/schema"
)

// DefaultLedgerTable is the table that records completed migrations.
const DefaultLedgerTable = "migrations"

// Store persists which migrations have completed.
type Store interface {
	// EnsureLedger creates the ledger if it does not exist yet.
	EnsureLedger(ctx context.Context) error

	// LoadExecutedNames returns the set of recorded migration names.
	LoadExecutedNames(ctx context.Context) (map[string]struct{}, error)

	// RecordExecuted appends a record for name. Recording the same name twice
	// fails with a *LedgerWriteError wrapping ErrAlreadyRecorded.
	RecordExecuted(ctx context.Context, name string) error

	// Records returns every record ordered by execution time.
	Records(ctx context.Context) ([]Record, error)
}

// TxStore is implemented by stores that can be rebound to a transaction so
// that a migration and its record commit together.
type TxStore interface {
	Store
	WithGateway(gw gateway.Gateway) Store
}

// StoreOption customises a SQLStore.
type StoreOption func(*SQLStore)

// WithLedgerTable overrides DefaultLedgerTable.
func WithLedgerTable(table string) StoreOption {
	return func(s *SQLStore) {
		if table != "" {
			s.table = table
		}
	}
}

// WithLedgerClock sets the time source for executed_at.
func WithLedgerClock(now func() time.Time) StoreOption {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger sets the logger used for ledger creation.
func WithStoreLogger(logger zerolog.Logger) StoreOption {
	return func(s *SQLStore) {
		s.logger = logger
	}
}

// SQLStore keeps the ledger in a table reached through a gateway.
type SQLStore struct {
	gw     gateway.Gateway
	table  string
	now    func() time.Time
	logger zerolog.Logger
}

// NewSQLStore returns a store writing to the ledger table through gw.
func NewSQLStore(gw gateway.Gateway, opts ...StoreOption) *SQLStore {
	s := &SQLStore{
		gw:     gw,
		table:  DefaultLedgerTable,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the ledger table name.
func (s *SQLStore) Table() string { return s.table }

// WithGateway returns a copy of the store bound to gw.
func (s *SQLStore) WithGateway(gw gateway.Gateway) Store {
	clone := *s
	clone.gw = gw
	return &clone
}

// LedgerTable describes the ledger. It is created through the same path as
// any other table, which makes it the implicit first migration.
func LedgerTable(table string) schema.CreateTable {
	return schema.CreateTable{
		Table: table,
		Columns: []schema.Column{
			{Name: "name", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "executed_at", Definition: "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"},
		},
		PrimaryKey: []string{"name"},
	}
}

// EnsureLedger implements Store.
func (s *SQLStore) EnsureLedger(ctx context.Context) error {
	m, err := schema.NewMutator(s.gw, schema.WithLogger(s.logger))
	if err != nil {
		return err
	}
	if err := m.CreateTableIfAbsent(ctx, LedgerTable(s.table)); err != nil {
		return fmt.Errorf("ensure ledger %s: %w", s.table, err)
	}
	return nil
}

// LoadExecutedNames implements Store.
func (s *SQLStore) LoadExecutedNames(ctx context.Context) (map[string]struct{}, error) {
	quoted, err := s.quotedTable()
	if err != nil {
		return nil, err
	}

	rows, err := s.gw.QueryContext(ctx, "SELECT name FROM "+quoted)
	if err != nil {
		return nil, fmt.Errorf("load executed migrations from %s: %w", s.table, err)
	}
	defer rows.Close()

	executed := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan executed migration: %w", err)
		}
		executed[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load executed migrations from %s: %w", s.table, err)
	}
	return executed, nil
}

// RecordExecuted implements Store.
func (s *SQLStore) RecordExecuted(ctx context.Context, name string) error {
	quoted, err := s.quotedTable()
	if err != nil {
		return &LedgerWriteError{Name: name, Table: s.table, Err: err}
	}

	// A failed statement aborts an open PostgreSQL transaction, so the
	// lookup has to happen before the insert.
	recorded, err := s.isRecorded(ctx, quoted, name)
	if err != nil {
		return &LedgerWriteError{Name: name, Table: s.table, Err: err}
	}
	if recorded {
		return &LedgerWriteError{Name: name, Table: s.table, Err: ErrAlreadyRecorded}
	}

	_, err = s.gw.ExecContext(ctx,
		"INSERT INTO "+quoted+" (name, executed_at) VALUES (?, ?)",
		name, s.now().UTC())
	if err == nil {
		return nil
	}
	// A concurrent writer can still win between the lookup and the insert.
	if gateway.IsUniqueViolation(err) {
		return &LedgerWriteError{Name: name, Table: s.table, Err: fmt.Errorf("%w: %v", ErrAlreadyRecorded, err)}
	}
	return &LedgerWriteError{Name: name, Table: s.table, Err: err}
}

// Records implements Store.
func (s *SQLStore) Records(ctx context.Context) ([]Record, error) {
	quoted, err := s.quotedTable()
	if err != nil {
		return nil, err
	}

	rows, err := s.gw.QueryContext(ctx, "SELECT name, executed_at FROM "+quoted+" ORDER BY executed_at, name")
	if err != nil {
		return nil, fmt.Errorf("list ledger %s: %w", s.table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}
		rec.ExecutedAt = rec.ExecutedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger %s: %w", s.table, err)
	}
	return records, nil
}

func (s *SQLStore) isRecorded(ctx context.Context, quoted, name string) (bool, error) {
	var count int64
	err := s.gw.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted+" WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLStore) quotedTable() (string, error) {
	dialect, err := schema.DialectFor(s.gw.Engine())
	if err != nil {
		return "", err
	}
	return dialect.Quote(s.table), nil
}
