package migration

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/example/colgit/internal/persistence/gateway"
)

// Locker provides mutual exclusion for migration runs across processes.
type Locker interface {
	// Acquire obtains the lock for key. The returned release function must be
	// called to give the lock back.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// NewLocker returns the locker matching the gateway's engine. Timeout bounds
// the wait for the lock.
func NewLocker(db *gateway.DB, timeout time.Duration) Locker {
	switch db.Engine() {
	case gateway.EnginePostgres:
		return NewPostgresLock(db.SQL(), timeout)
	case gateway.EngineMySQL:
		return NewMySQLLock(db.SQL(), timeout)
	default:
		return &LocalLock{sem: processLock, timeout: timeout}
	}
}

// processLock is shared by every SQLite locker of the process, so runs over
// different connections to the same file still exclude each other.
var processLock = make(chan struct{}, 1)

// PostgresLock uses session level advisory locks. The lock is pinned to a
// dedicated connection because advisory locks belong to the session that
// took them.
type PostgresLock struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresLock creates a new PostgresLock.
func NewPostgresLock(db *sql.DB, timeout time.Duration) *PostgresLock {
	return &PostgresLock{db: db, timeout: timeout}
}

// Acquire blocks in pg_advisory_lock until the lock is granted, the timeout
// elapses or ctx is cancelled.
func (l *PostgresLock) Acquire(ctx context.Context, key string) (func(), error) {
	lockID := hashLockKey(key)

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve lock connection: %w", err)
	}

	waitCtx, cancel := withOptionalTimeout(ctx, l.timeout)
	defer cancel()

	if _, err := conn.ExecContext(waitCtx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		_ = conn.Close()
		if waitCtx.Err() != nil {
			return nil, fmt.Errorf("%w: pg_advisory_lock(%d): %v", ErrLockNotAcquired, lockID, err)
		}
		return nil, fmt.Errorf("pg_advisory_lock(%d): %w", lockID, err)
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", lockID)
		_ = conn.Close()
	}
	return release, nil
}

// MySQLLock uses named locks from GET_LOCK, held by a dedicated connection.
type MySQLLock struct {
	db      *sql.DB
	timeout time.Duration
}

// NewMySQLLock creates a new MySQLLock.
func NewMySQLLock(db *sql.DB, timeout time.Duration) *MySQLLock {
	return &MySQLLock{db: db, timeout: timeout}
}

// Acquire waits up to the configured timeout in GET_LOCK. A non-positive
// timeout waits indefinitely.
func (l *MySQLLock) Acquire(ctx context.Context, key string) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve lock connection: %w", err)
	}

	seconds := -1
	if l.timeout > 0 {
		seconds = int(math.Ceil(l.timeout.Seconds()))
	}

	var granted sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", key, seconds).Scan(&granted); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("GET_LOCK(%s): %w", key, err)
	}
	if !granted.Valid || granted.Int64 != 1 {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: GET_LOCK(%s) timed out after %s", ErrLockNotAcquired, key, l.timeout)
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT RELEASE_LOCK(?)", key)
		_ = conn.Close()
	}
	return release, nil
}

// LocalLock is a process local mutex. SQLite serialises writers through its
// own file locking, so only in-process runs need coordinating.
type LocalLock struct {
	sem     chan struct{}
	timeout time.Duration
}

// NewLocalLock creates a LocalLock that is independent of the one NewLocker
// hands out for SQLite.
func NewLocalLock(timeout time.Duration) *LocalLock {
	return &LocalLock{sem: make(chan struct{}, 1), timeout: timeout}
}

// Acquire waits for the mutex until the timeout elapses or ctx is cancelled.
func (l *LocalLock) Acquire(ctx context.Context, _ string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire local lock: %w", err)
	}

	waitCtx, cancel := withOptionalTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire local lock: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: local lock held after %s", ErrLockNotAcquired, l.timeout)
	}

	var once sync.Once
	return func() { once.Do(func() { <-l.sem }) }, nil
}

// hashLockKey maps key onto the non-negative int64 space of advisory locks.
func hashLockKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & math.MaxInt64)
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
