package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maloquacious/semver"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/colgit/internal/config"
	"github.com/example/colgit/internal/logging"
	"github.com/example/colgit/internal/migrations"
	"github.com/example/colgit/internal/persistence/gateway"
	"github.com/example/colgit/internal/persistence/migration"
	"github.com/example/colgit/internal/seed"
)

var version = semver.Version{Minor: 1, PreRelease: "alpha", Build: semver.Commit()}

// globalFlags override values from the configuration file and environment.
type globalFlags struct {
	configPath string
	driver     string
	dsn        string
	logLevel   string
	logFormat  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(migrations.Registry).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "colgit-migrate: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(registry func() (*migration.Registry, error)) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "colgit-migrate",
		Short:         "Apply the col-git schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "database engine: sqlite, postgres or mysql")
	rootCmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "database connection string")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format: json or console")

	var (
		seedData        bool
		metricsTextfile string
	)
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if seedData {
				cfg.Seed.Enabled = true
			}
			if metricsTextfile != "" {
				cfg.MetricsTextfile = metricsTextfile
			}
			reg, err := registry()
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormatValue())
			if err != nil {
				return err
			}
			return runUp(cmd.Context(), cfg, reg, logger, cmd.OutOrStdout())
		},
	}
	upCmd.Flags().BoolVar(&seedData, "seed", false, "load baseline data into an empty database after migrating")
	upCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "write run metrics to this file in Prometheus text format")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied, pending and unknown migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			reg, err := registry()
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormatValue())
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cfg, reg, logger, cmd.OutOrStdout())
		},
	}

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List migrations that have not been applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			reg, err := registry()
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormatValue())
			if err != nil {
				return err
			}
			return runPending(cmd.Context(), cfg, reg, logger, cmd.OutOrStdout())
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}

	rootCmd.AddCommand(upCmd, statusCmd, pendingCmd, versionCmd)
	return rootCmd
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.driver != "" {
		engine, err := gateway.ParseEngine(flags.driver)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Driver = string(engine)
	}
	if flags.dsn != "" {
		cfg.DSN = flags.dsn
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.LogFormat = flags.logFormat
	}
	return cfg, nil
}

// openRunner connects to the configured database and builds a runner over
// its ledger. The caller closes the returned DB.
func openRunner(ctx context.Context, cfg config.Config, logger zerolog.Logger, metrics *migration.Metrics) (*gateway.DB, *migration.Runner, error) {
	db, err := gateway.Open(ctx, cfg.Gateway())
	if err != nil {
		return nil, nil, err
	}

	store := migration.NewSQLStore(db,
		migration.WithLedgerTable(cfg.LedgerTable),
		migration.WithStoreLogger(logger),
	)
	opts := []migration.Option{migration.WithLogger(logger), migration.WithMetrics(metrics)}
	if cfg.Lock {
		opts = append(opts, migration.WithLocker(migration.NewLocker(db, cfg.LockTimeout), "colgit:"+cfg.LedgerTable))
	}
	return db, migration.NewRunner(store, db, opts...), nil
}

func runUp(ctx context.Context, cfg config.Config, reg *migration.Registry, logger zerolog.Logger, out io.Writer) (err error) {
	var metrics *migration.Metrics
	if cfg.MetricsTextfile != "" {
		metrics = migration.NewMetrics("colgit")
		defer func() {
			if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
				logger.Error().Err(werr).Str("path", cfg.MetricsTextfile).Msg("failed to write metrics")
				err = errors.Join(err, werr)
			}
		}()
	}

	db, runner, err := openRunner(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Driver).Msg("failed to open database")
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("failed to close database")
		}
	}()

	logger.Info().
		Str("driver", cfg.Driver).
		Str("ledger", cfg.LedgerTable).
		Bool("transactional_ddl", db.SupportsTransactionalDDL()).
		Int("migrations", reg.Len()).
		Msg("starting migration run")

	// Run failures already carry the migration name and phase.
	report, err := runner.Run(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "applied %d migration(s), %d already applied (%s)\n",
		len(report.Applied), report.Skipped, report.Duration.Round(time.Millisecond))

	if !cfg.Seed.Enabled {
		return nil
	}
	loader, err := seed.NewLoader(db, seed.Admin{
		Email:    cfg.Seed.AdminEmail,
		Password: cfg.Seed.AdminPassword,
	}, seed.WithLogger(logger))
	if err != nil {
		return err
	}
	seeded, err := loader.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load seed data")
		return err
	}
	if seeded {
		fmt.Fprintln(out, "seed data loaded")
	}
	return nil
}

func runStatus(ctx context.Context, cfg config.Config, reg *migration.Registry, logger zerolog.Logger, out io.Writer) error {
	db, runner, err := openRunner(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := runner.Status(ctx, reg)
	if err != nil {
		return err
	}
	for _, record := range status.Applied {
		fmt.Fprintf(out, "applied  %s  %s\n", record.Name, record.ExecutedAt.UTC().Format(time.RFC3339))
	}
	for _, name := range status.Pending {
		fmt.Fprintf(out, "pending  %s\n", name)
	}
	for _, name := range status.Unknown {
		fmt.Fprintf(out, "unknown  %s\n", name)
	}
	return nil
}

func runPending(ctx context.Context, cfg config.Config, reg *migration.Registry, logger zerolog.Logger, out io.Writer) error {
	db, runner, err := openRunner(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	pending, err := runner.Pending(ctx, reg)
	if err != nil {
		return err
	}
	for _, name := range pending {
		fmt.Fprintln(out, name)
	}
	return nil
}
