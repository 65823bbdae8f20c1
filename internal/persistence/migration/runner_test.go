package migration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/colgit/internal/persistence/gateway"
	"github.com/example/colgit/internal/testfixtures"
)

// Mock implementations for testing

type mockStore struct {
	executed    map[string]struct{}
	records     []Record
	calls       []string
	ensureError error
	loadError   error
	recordError error
}

func newMockStore(executed ...string) *mockStore {
	s := &mockStore{executed: make(map[string]struct{})}
	for _, name := range executed {
		s.executed[name] = struct{}{}
		s.records = append(s.records, Record{Name: name, ExecutedAt: testfixtures.ReferenceTime()})
	}
	return s
}

func (m *mockStore) EnsureLedger(ctx context.Context) error {
	m.calls = append(m.calls, "ensure")
	return m.ensureError
}

func (m *mockStore) LoadExecutedNames(ctx context.Context) (map[string]struct{}, error) {
	m.calls = append(m.calls, "load")
	if m.loadError != nil {
		return nil, m.loadError
	}
	out := make(map[string]struct{}, len(m.executed))
	for name := range m.executed {
		out[name] = struct{}{}
	}
	return out, nil
}

func (m *mockStore) RecordExecuted(ctx context.Context, name string) error {
	m.calls = append(m.calls, "record:"+name)
	if m.recordError != nil {
		return m.recordError
	}
	if _, ok := m.executed[name]; ok {
		return &LedgerWriteError{Name: name, Table: DefaultLedgerTable, Err: ErrAlreadyRecorded}
	}
	m.executed[name] = struct{}{}
	m.records = append(m.records, Record{Name: name, ExecutedAt: testfixtures.ReferenceTime()})
	return nil
}

func (m *mockStore) Records(ctx context.Context) ([]Record, error) {
	m.calls = append(m.calls, "records")
	return append([]Record(nil), m.records...), nil
}

type txMockStore struct {
	*mockStore
	bound int
}

func (s *txMockStore) WithGateway(gateway.Gateway) Store {
	s.bound++
	return s.mockStore
}

type mockGateway struct {
	transactional bool
	txCount       int
	commitErr     error // returned by WithinTx after fn succeeds
}

func (g *mockGateway) Engine() gateway.Engine          { return gateway.EngineSQLite }
func (g *mockGateway) SupportsTransactionalDDL() bool { return g.transactional }
func (g *mockGateway) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}
func (g *mockGateway) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}
func (g *mockGateway) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }
func (g *mockGateway) WithinTx(ctx context.Context, fn func(gateway.Gateway) error) error {
	g.txCount++
	if err := fn(g); err != nil {
		return err
	}
	return g.commitErr
}

type countingLocker struct {
	acquired, released int
	key                string
	err                error
}

func (l *countingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	l.key = key
	return func() { l.released++ }, nil
}

// tracking records action invocations on the shared store call log so that
// ordering between actions and ledger writes can be asserted.
func tracking(store *mockStore, name string, err error) Definition {
	return Definition{Name: name, Action: func(context.Context, gateway.Gateway) error {
		store.calls = append(store.calls, "action:"+name)
		return err
	}}
}

func mustRegistry(t *testing.T, defs ...Definition) *Registry {
	t.Helper()
	reg, err := NewRegistry(defs...)
	require.NoError(t, err)
	return reg
}

func TestRunner_Run_AppliesInRegistryOrder(t *testing.T) {
	store := newMockStore()
	reg := mustRegistry(t,
		tracking(store, "003_c", nil),
		tracking(store, "001_a", nil),
		tracking(store, "002_b", nil),
	)
	runner := NewRunner(store, &mockGateway{}, WithRunID(testfixtures.NewIDGenerator("run").Next))

	report, err := runner.Run(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ensure", "load",
		"action:003_c", "record:003_c",
		"action:001_a", "record:001_a",
		"action:002_b", "record:002_b",
	}, store.calls)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, []string{"003_c", "001_a", "002_b"}, report.Applied)
}

func TestRunner_Run_NothingPending(t *testing.T) {
	store := newMockStore("001_a", "002_b")
	reg := mustRegistry(t, tracking(store, "001_a", nil), tracking(store, "002_b", nil))
	gw := &mockGateway{transactional: true}

	report, err := NewRunner(store, gw).Run(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, []string{"ensure", "load"}, store.calls)
	assert.Equal(t, 2, report.Skipped)
	assert.Empty(t, report.Applied)
	assert.Zero(t, gw.txCount)
}

func TestRunner_Run_StopsAtFirstFailure(t *testing.T) {
	store := newMockStore()
	boom := errors.New("syntax error near AFTER")
	reg := mustRegistry(t,
		tracking(store, "001_a", nil),
		tracking(store, "002_b", boom),
		tracking(store, "003_c", nil),
	)

	report, err := NewRunner(store, &mockGateway{}).Run(context.Background(), reg)

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "002_b", migErr.Name)
	assert.Equal(t, PhaseApply, migErr.Phase)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "002_b")

	assert.Equal(t, []string{"ensure", "load", "action:001_a", "record:001_a", "action:002_b"}, store.calls)
	assert.Equal(t, []string{"001_a"}, report.Applied)
}

func TestRunner_Run_ResumesAfterFix(t *testing.T) {
	store := newMockStore()
	var bErr error = errors.New("boom")
	reg := mustRegistry(t,
		tracking(store, "001_a", nil),
		Definition{Name: "002_b", Action: func(context.Context, gateway.Gateway) error {
			store.calls = append(store.calls, "action:002_b")
			return bErr
		}},
		tracking(store, "003_c", nil),
	)
	runner := NewRunner(store, &mockGateway{})

	_, err := runner.Run(context.Background(), reg)
	require.Error(t, err)

	bErr = nil
	store.calls = nil
	_, err = runner.Run(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"ensure", "load", "action:002_b", "record:002_b", "action:003_c", "record:003_c"}, store.calls)
}

func TestRunner_Run_RecordFailure(t *testing.T) {
	store := newMockStore()
	store.recordError = &LedgerWriteError{Name: "001_a", Table: DefaultLedgerTable, Err: errors.New("disk full")}
	reg := mustRegistry(t, tracking(store, "001_a", nil), tracking(store, "002_b", nil))

	_, err := NewRunner(store, &mockGateway{}).Run(context.Background(), reg)

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, PhaseRecord, migErr.Phase)
	var ledgerErr *LedgerWriteError
	assert.ErrorAs(t, err, &ledgerErr)
	assert.Equal(t, []string{"ensure", "load", "action:001_a", "record:001_a"}, store.calls)
}

func TestRunner_Run_SetupFailures(t *testing.T) {
	ensureErr := errors.New("permission denied")
	loadErr := errors.New("connection lost")

	tests := []struct {
		name  string
		store *mockStore
		want  error
		calls []string
	}{
		{name: "ensure ledger", store: &mockStore{executed: map[string]struct{}{}, ensureError: ensureErr}, want: ensureErr, calls: []string{"ensure"}},
		{name: "load executed", store: &mockStore{executed: map[string]struct{}{}, loadError: loadErr}, want: loadErr, calls: []string{"ensure", "load"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := mustRegistry(t, tracking(tt.store, "001_a", nil))
			_, err := NewRunner(tt.store, &mockGateway{}).Run(context.Background(), reg)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.calls, tt.store.calls)
		})
	}
}

func TestRunner_Run_NilRegistry(t *testing.T) {
	_, err := NewRunner(newMockStore(), &mockGateway{}).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilRegistry)
}

func TestRunner_Run_ContextCancelled(t *testing.T) {
	store := newMockStore()
	ctx, cancel := context.WithCancel(context.Background())
	reg := mustRegistry(t,
		Definition{Name: "001_a", Action: func(context.Context, gateway.Gateway) error {
			store.calls = append(store.calls, "action:001_a")
			cancel()
			return nil
		}},
		tracking(store, "002_b", nil),
	)

	_, err := NewRunner(store, &mockGateway{}).Run(ctx, reg)

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "002_b", migErr.Name)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"ensure", "load", "action:001_a", "record:001_a"}, store.calls)
}

func TestRunner_Run_TransactionalGateway(t *testing.T) {
	gw := &mockGateway{transactional: true}
	store := &txMockStore{mockStore: newMockStore()}
	reg := mustRegistry(t, tracking(store.mockStore, "001_a", nil), tracking(store.mockStore, "002_b", nil))

	_, err := NewRunner(store, gw).Run(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.txCount, "one transaction per migration")
	assert.Equal(t, 2, store.bound, "store bound to each transaction")
}

func TestRunner_Run_CommitFailure(t *testing.T) {
	commitErr := errors.New("could not serialize access due to concurrent update")
	gw := &mockGateway{transactional: true, commitErr: commitErr}
	store := &txMockStore{mockStore: newMockStore()}
	metrics := NewMetrics("colgit")
	reg := mustRegistry(t, tracking(store.mockStore, "001_a", nil), tracking(store.mockStore, "002_b", nil))

	report, err := NewRunner(store, gw, WithMetrics(metrics)).Run(context.Background(), reg)

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "001_a", migErr.Name)
	assert.Equal(t, PhaseCommit, migErr.Phase)
	assert.ErrorIs(t, err, commitErr)
	assert.Contains(t, err.Error(), "migration 001_a: commit:")
	assert.Empty(t, report.Applied)
	assert.Equal(t, []string{"ensure", "load", "action:001_a", "record:001_a"}, store.calls)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Failures.WithLabelValues("001_a", PhaseCommit)))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Failures.WithLabelValues("001_a", PhaseRecord)))
}

func TestRunner_Run_UsesLocker(t *testing.T) {
	store := newMockStore()
	locker := &countingLocker{}
	reg := mustRegistry(t, tracking(store, "001_a", nil))

	_, err := NewRunner(store, &mockGateway{}, WithLocker(locker, "colgit:migrations")).Run(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, "colgit:migrations", locker.key)

	locker = &countingLocker{err: ErrLockNotAcquired}
	store = newMockStore()
	_, err = NewRunner(store, &mockGateway{}, WithLocker(locker, "k")).Run(context.Background(), reg)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.Empty(t, store.calls, "no ledger access without the lock")
}

func TestRunner_Run_Metrics(t *testing.T) {
	store := newMockStore("001_a")
	metrics := NewMetrics("colgit")
	boom := errors.New("boom")
	reg := mustRegistry(t, tracking(store, "001_a", nil), tracking(store, "002_b", nil), tracking(store, "003_c", boom))

	clock := testfixtures.NewTickingClock(time.Time{}, time.Second)
	_, err := NewRunner(store, &mockGateway{}, WithMetrics(metrics), WithClock(clock.NowFunc())).Run(context.Background(), reg)
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Applied))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Failures.WithLabelValues("003_c", PhaseApply)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Pending), "pending after partial run")
}

func TestRunner_Pending(t *testing.T) {
	store := newMockStore("001_a")
	reg := mustRegistry(t, tracking(store, "001_a", nil), tracking(store, "002_b", nil), tracking(store, "003_c", nil))

	pending, err := NewRunner(store, &mockGateway{}).Pending(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"002_b", "003_c"}, pending)
	assert.Equal(t, []string{"ensure", "load"}, store.calls)
}

func TestRunner_Status(t *testing.T) {
	store := newMockStore("001_a", "000_legacy")
	reg := mustRegistry(t, tracking(store, "001_a", nil), tracking(store, "002_b", nil))

	status, err := NewRunner(store, &mockGateway{}).Status(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, status.Applied, 1)
	assert.Equal(t, "001_a", status.Applied[0].Name)
	assert.Equal(t, []string{"002_b"}, status.Pending)
	assert.Equal(t, []string{"000_legacy"}, status.Unknown)
}
