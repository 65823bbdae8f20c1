package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/colgit/internal/logging"
	"github.com/example/colgit/internal/persistence/gateway"
)

// Option customises a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Actions receive it through the context.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(metrics *Metrics) Option {
	return func(r *Runner) {
		r.metrics = metrics
	}
}

// WithClock sets the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunID sets the generator for run identifiers.
func WithRunID(next func() string) Option {
	return func(r *Runner) {
		if next != nil {
			r.newRunID = next
		}
	}
}

// WithLocker serialises runs through locker under key.
func WithLocker(locker Locker, key string) Option {
	return func(r *Runner) {
		r.locker = locker
		r.lockKey = key
	}
}

// Runner applies pending migrations from a registry in order and records
// each success in the ledger before moving on. It stops at the first failure;
// the failed migration stays pending and is retried by the next Run.
type Runner struct {
	store    Store
	gw       gateway.Gateway
	logger   zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
	newRunID func() string
	locker   Locker
	lockKey  string
}

// NewRunner returns a Runner that records into store and hands gw to
// migration actions.
func NewRunner(store Store, gw gateway.Gateway, opts ...Option) *Runner {
	r := &Runner{
		store:    store,
		gw:       gw,
		logger:   zerolog.Nop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run ensures the ledger exists, then applies every registered migration
// that has no ledger record, in registry order.
//
// When the gateway supports transactional DDL, each action and its ledger
// record commit in one transaction. Otherwise the action runs first and the
// record is written afterwards, relying on idempotent actions for recovery
// from a crash in between.
func (r *Runner) Run(ctx context.Context, reg *Registry) (*Report, error) {
	if reg == nil {
		return nil, &ConfigurationError{Err: ErrNilRegistry}
	}

	report := &Report{RunID: r.newRunID()}
	logger := r.logger.With().Str("run_id", report.RunID).Logger()
	ctx = logging.ContextWithLogger(ctx, logger)
	start := r.now()

	release, err := r.acquire(ctx)
	if err != nil {
		return report, err
	}
	defer release()

	if err := r.store.EnsureLedger(ctx); err != nil {
		return report, err
	}

	executed, err := r.store.LoadExecutedNames(ctx)
	if err != nil {
		return report, err
	}

	defs := reg.Definitions()
	r.metrics.setPending(countPending(defs, executed))

	for _, def := range defs {
		if _, done := executed[def.Name]; done {
			report.Skipped++
			logger.Debug().Str("migration", def.Name).Msg("migration already applied, skipping")
			continue
		}

		if err := ctx.Err(); err != nil {
			return report, NewMigrationError(def.Name, PhaseApply, err)
		}

		migrationStart := r.now()
		logger.Info().Str("migration", def.Name).Msg("applying migration")

		if err := r.apply(ctx, def); err != nil {
			phase := PhaseApply
			var migErr *MigrationError
			if errors.As(err, &migErr) {
				phase = migErr.Phase
			}
			r.metrics.observeFailure(def.Name, phase)
			logger.Error().Err(err).Str("migration", def.Name).Str("phase", phase).Msg("migration failed")
			return report, err
		}

		took := r.now().Sub(migrationStart)
		r.metrics.observeApplied(def.Name, took)
		report.Applied = append(report.Applied, def.Name)
		logger.Info().Str("migration", def.Name).Dur("took", took).Msg("migration applied")
	}

	report.Duration = r.now().Sub(start)
	r.metrics.markSuccess(r.now())
	if len(report.Applied) == 0 {
		logger.Info().Int("skipped", report.Skipped).Msg("schema up to date")
	} else {
		logger.Info().Int("applied", len(report.Applied)).Int("skipped", report.Skipped).
			Dur("took", report.Duration).Msg("migrations complete")
	}
	return report, nil
}

// Pending returns the registry names without a ledger record, in registry
// order. The ledger is created if missing.
func (r *Runner) Pending(ctx context.Context, reg *Registry) ([]string, error) {
	if reg == nil {
		return nil, &ConfigurationError{Err: ErrNilRegistry}
	}
	if err := r.store.EnsureLedger(ctx); err != nil {
		return nil, err
	}
	executed, err := r.store.LoadExecutedNames(ctx)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, name := range reg.Names() {
		if _, done := executed[name]; !done {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// Status compares the registry with the full ledger. Ledger names unknown to
// the registry are reported, not treated as errors.
func (r *Runner) Status(ctx context.Context, reg *Registry) (*Status, error) {
	if reg == nil {
		return nil, &ConfigurationError{Err: ErrNilRegistry}
	}
	if err := r.store.EnsureLedger(ctx); err != nil {
		return nil, err
	}
	records, err := r.store.Records(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Record, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
	}

	status := &Status{}
	for _, name := range reg.Names() {
		if rec, ok := byName[name]; ok {
			status.Applied = append(status.Applied, rec)
		} else {
			status.Pending = append(status.Pending, name)
		}
	}
	for _, rec := range records {
		if _, ok := reg.Lookup(rec.Name); !ok {
			status.Unknown = append(status.Unknown, rec.Name)
			r.logger.Warn().Str("migration", rec.Name).Msg("ledger records a migration the registry does not define")
		}
	}
	return status, nil
}

func (r *Runner) apply(ctx context.Context, def Definition) error {
	txStore, canBind := r.store.(TxStore)
	if !r.gw.SupportsTransactionalDDL() || !canBind {
		if err := def.Action(ctx, r.gw); err != nil {
			return NewMigrationError(def.Name, PhaseApply, err)
		}
		if err := r.store.RecordExecuted(ctx, def.Name); err != nil {
			return NewMigrationError(def.Name, PhaseRecord, err)
		}
		return nil
	}

	phase := PhaseApply
	err := r.gw.WithinTx(ctx, func(tx gateway.Gateway) error {
		if err := def.Action(ctx, tx); err != nil {
			return err
		}
		phase = PhaseRecord
		if err := txStore.WithGateway(tx).RecordExecuted(ctx, def.Name); err != nil {
			return err
		}
		phase = PhaseCommit
		return nil
	})
	if err != nil {
		return NewMigrationError(def.Name, phase, err)
	}
	return nil
}

func (r *Runner) acquire(ctx context.Context) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}
	release, err := r.locker.Acquire(ctx, r.lockKey)
	if err != nil {
		return nil, fmt.Errorf("acquire migration lock %q: %w", r.lockKey, err)
	}
	return release, nil
}

func countPending(defs []Definition, executed map[string]struct{}) int {
	n := 0
	for _, def := range defs {
		if _, done := executed[def.Name]; !done {
			n++
		}
	}
	return n
}
