package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/colgit/internal/logging"
	"github.com/example/colgit/internal/persistence/gateway"
)

const (
	DefaultSQLiteDSN   = "file:colgit.db"
	DefaultLedgerTable = "migrations"
	DefaultLockTimeout = 30 * time.Second
)

// SeedConfig controls the baseline data loaded after a successful run.
type SeedConfig struct {
	Enabled       bool   `yaml:"enabled"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// SQLiteConfig tunes the SQLite connection. Zero values keep the gateway
// defaults.
type SQLiteConfig struct {
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	JournalMode string        `yaml:"journal_mode"`
	Synchronous string        `yaml:"synchronous"`
}

// Config captures the settings of the colgit-migrate command.
type Config struct {
	Driver           string         `yaml:"driver"`
	DSN              string         `yaml:"dsn"`
	LedgerTable      string         `yaml:"ledger_table"`
	TransactionalDDL gateway.TxMode `yaml:"transactional_ddl"`
	Lock             bool           `yaml:"lock"`
	LockTimeout      time.Duration  `yaml:"lock_timeout"`
	LogLevel         string         `yaml:"log_level"`
	LogFormat        string         `yaml:"log_format"`
	MetricsTextfile  string         `yaml:"metrics_textfile"`
	Seed             SeedConfig     `yaml:"seed"`
	SQLite           SQLiteConfig   `yaml:"sqlite"`
}

// Engine returns the normalised engine of the configured driver.
func (c Config) Engine() gateway.Engine {
	engine, err := gateway.ParseEngine(c.Driver)
	if err != nil {
		return gateway.Engine(c.Driver)
	}
	return engine
}

// Gateway returns the connection configuration for gateway.Open.
func (c Config) Gateway() gateway.Config {
	cfg := gateway.DefaultConfig(c.Engine(), c.DSN)
	if c.TransactionalDDL != "" {
		cfg.TransactionalDDL = c.TransactionalDDL
	}
	if c.SQLite.BusyTimeout > 0 {
		cfg.BusyTimeout = c.SQLite.BusyTimeout
	}
	if c.SQLite.JournalMode != "" {
		cfg.JournalMode = strings.ToUpper(c.SQLite.JournalMode)
	}
	if c.SQLite.Synchronous != "" {
		cfg.Synchronous = strings.ToUpper(c.SQLite.Synchronous)
	}
	return cfg
}

// LogFormatValue returns the log format as understood by the logging package.
func (c Config) LogFormatValue() logging.Format {
	return logging.Format(c.LogFormat)
}

// Load reads configuration from the optional YAML file at path and then
// from the process environment. Environment values win over the file.
//
// Missing and invalid entries are collected and reported together.
func Load(path string) (Config, error) {
	cfg := Config{
		Driver:           string(gateway.EngineSQLite),
		LedgerTable:      DefaultLedgerTable,
		TransactionalDDL: gateway.TxAuto,
		Lock:             true,
		LockTimeout:      DefaultLockTimeout,
		LogLevel:         "info",
		LogFormat:        string(logging.FormatJSON),
	}

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if driver := env("COLGIT_DB_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
	if engine, err := gateway.ParseEngine(cfg.Driver); err != nil {
		invalid = append(invalid, "COLGIT_DB_DRIVER")
	} else {
		cfg.Driver = string(engine)
	}

	if dsn := env("COLGIT_DB_DSN"); dsn != "" {
		cfg.DSN = dsn
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		if cfg.Engine() == gateway.EngineSQLite {
			cfg.DSN = DefaultSQLiteDSN
		} else {
			missing = append(missing, "COLGIT_DB_DSN")
		}
	}

	if table := env("COLGIT_LEDGER_TABLE"); table != "" {
		cfg.LedgerTable = table
	}

	if mode := env("COLGIT_TRANSACTIONAL_DDL"); mode != "" {
		cfg.TransactionalDDL = gateway.TxMode(strings.ToLower(mode))
	}
	switch cfg.TransactionalDDL {
	case gateway.TxAuto, gateway.TxOn, gateway.TxOff:
	default:
		invalid = append(invalid, "COLGIT_TRANSACTIONAL_DDL")
	}

	if !envBool("COLGIT_LOCK", &cfg.Lock) {
		invalid = append(invalid, "COLGIT_LOCK")
	}
	if !envDuration("COLGIT_LOCK_TIMEOUT", &cfg.LockTimeout) || cfg.LockTimeout < 0 {
		invalid = append(invalid, "COLGIT_LOCK_TIMEOUT")
	}

	if level := env("COLGIT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := env("COLGIT_LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}
	switch logging.Format(cfg.LogFormat) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		invalid = append(invalid, "COLGIT_LOG_FORMAT")
	}

	if textfile := env("COLGIT_METRICS_TEXTFILE"); textfile != "" {
		cfg.MetricsTextfile = textfile
	}

	if !envBool("COLGIT_SEED", &cfg.Seed.Enabled) {
		invalid = append(invalid, "COLGIT_SEED")
	}
	if email := env("COLGIT_SEED_ADMIN_EMAIL"); email != "" {
		cfg.Seed.AdminEmail = email
	}
	if password := os.Getenv("COLGIT_SEED_ADMIN_PASSWORD"); password != "" {
		cfg.Seed.AdminPassword = password
	}
	if cfg.Seed.Enabled {
		if cfg.Seed.AdminEmail == "" {
			missing = append(missing, "COLGIT_SEED_ADMIN_EMAIL")
		}
		if cfg.Seed.AdminPassword == "" {
			missing = append(missing, "COLGIT_SEED_ADMIN_PASSWORD")
		}
	}

	if !envDuration("COLGIT_SQLITE_BUSY_TIMEOUT", &cfg.SQLite.BusyTimeout) || cfg.SQLite.BusyTimeout < 0 {
		invalid = append(invalid, "COLGIT_SQLITE_BUSY_TIMEOUT")
	}
	if mode := env("COLGIT_SQLITE_JOURNAL_MODE"); mode != "" {
		cfg.SQLite.JournalMode = mode
	}
	if mode := env("COLGIT_SQLITE_SYNCHRONOUS"); mode != "" {
		cfg.SQLite.Synchronous = mode
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required configuration is missing: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("configuration values are invalid: %s", strings.Join(invalid, ", "))
	}

	if err := cfg.Gateway().Validate(); err != nil {
		if errors.Is(err, gateway.ErrInvalidConfig) {
			return Config{}, fmt.Errorf("configuration values are invalid: %w", err)
		}
		return Config{}, err
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBool(key string, dst *bool) bool {
	value := env(key)
	if value == "" {
		return true
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	*dst = parsed
	return true
}

func envDuration(key string, dst *time.Duration) bool {
	value := env(key)
	if value == "" {
		return true
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return false
	}
	*dst = parsed
	return true
}
