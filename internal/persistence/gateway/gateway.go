package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Gateway is the SQL execution surface the migration engine talks to. Query
// text always uses '?' placeholders; implementations rebind them to the
// engine's native form.
type Gateway interface {
	// Engine reports which relational engine sits behind the gateway.
	Engine() Engine

	// SupportsTransactionalDDL reports whether schema changes may be wrapped
	// in a transaction and rolled back.
	SupportsTransactionalDDL() bool

	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row

	// WithinTx runs fn against a transaction bound gateway. The transaction is
	// committed when fn returns nil and rolled back otherwise. Calling WithinTx
	// on a gateway that is already transactional reuses the transaction.
	WithinTx(ctx context.Context, fn func(Gateway) error) error
}

// Option customises a DB gateway.
type Option func(*DB)

// WithTransactionalDDL overrides the engine default for transactional DDL.
func WithTransactionalDDL(enabled bool) Option {
	return func(d *DB) {
		d.transactionalDDL = enabled
	}
}

// DB is a Gateway backed by a *sql.DB connection pool.
type DB struct {
	db               *sql.DB
	engine           Engine
	transactionalDDL bool
}

// New wraps an already opened pool. Ownership of db stays with the caller
// unless Close is used.
func New(db *sql.DB, engine Engine, opts ...Option) *DB {
	d := &DB{
		db:               db,
		engine:           engine,
		transactionalDDL: engine.TransactionalDDL(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Engine implements Gateway.
func (d *DB) Engine() Engine { return d.engine }

// SupportsTransactionalDDL implements Gateway.
func (d *DB) SupportsTransactionalDDL() bool { return d.transactionalDDL }

// SQL exposes the underlying pool for collaborators that need a dedicated
// connection, such as session scoped advisory locks.
func (d *DB) SQL() *sql.DB { return d.db }

// Close closes the underlying pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// ExecContext implements Gateway.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, Rebind(d.engine, query), args...)
}

// QueryContext implements Gateway.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, Rebind(d.engine, query), args...)
}

// QueryRowContext implements Gateway.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, Rebind(d.engine, query), args...)
}

// WithinTx implements Gateway.
func (d *DB) WithinTx(ctx context.Context, fn func(Gateway) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return newGatewayError(d.engine, "begin", err)
	}

	if err := fn(&txGateway{tx: tx, parent: d}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return newGatewayError(d.engine, "commit", err)
	}
	return nil
}

type txGateway struct {
	tx     *sql.Tx
	parent *DB
}

func (t *txGateway) Engine() Engine { return t.parent.engine }

func (t *txGateway) SupportsTransactionalDDL() bool { return t.parent.transactionalDDL }

func (t *txGateway) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, Rebind(t.parent.engine, query), args...)
}

func (t *txGateway) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, Rebind(t.parent.engine, query), args...)
}

func (t *txGateway) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, Rebind(t.parent.engine, query), args...)
}

func (t *txGateway) WithinTx(_ context.Context, fn func(Gateway) error) error {
	return fn(t)
}

// Rebind converts '?' placeholders into the engine's native placeholder
// syntax. Only PostgreSQL needs rewriting. Question marks inside quoted
// literals or identifiers are left untouched.
func Rebind(engine Engine, query string) string {
	if engine != EnginePostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
