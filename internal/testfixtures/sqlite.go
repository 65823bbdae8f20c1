package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/colgit/internal/persistence/gateway"
)

// NewSQLiteGateway opens a gateway backed by a fresh SQLite file inside the
// test's temporary directory. The gateway is closed automatically when the
// test finishes.
func NewSQLiteGateway(tb testing.TB, opts ...func(*gateway.Config)) *gateway.DB {
	tb.Helper()

	cfg := gateway.Config{
		Engine:            gateway.EngineSQLite,
		DSN:               filepath.Join(tb.TempDir(), "colgit.db"),
		TransactionalDDL:  gateway.TxAuto,
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "MEMORY",
		Synchronous:       "OFF",
		MaxOpenConns:      1,
		MaxIdleConns:      1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	gw, err := gateway.Open(context.Background(), cfg)
	if err != nil {
		tb.Fatalf("failed to open sqlite gateway: %v", err)
	}
	tb.Cleanup(func() {
		_ = gw.Close()
	})
	return gw
}

// WithoutTransactionalDDL configures the harness like an engine that cannot
// roll back schema changes.
func WithoutTransactionalDDL(cfg *gateway.Config) {
	cfg.TransactionalDDL = gateway.TxOff
}
