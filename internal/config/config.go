// Package config loads and validates the pipeline configuration.
//
// Configuration is environment-driven, matching the reference deployment: a
// .env file (if present) is loaded first, then environment variables are read
// through viper with defaults applied. Environment variables always win over
// the .env file.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Key models for the staging schema. The source material disagreed on whether
// ids are VARCHAR or INTEGER-with-foreign-keys; this is resolved as a single
// parameterized schema selected by configuration (see internal/schema).
const (
	KeyModelString    = "string"
	KeyModelIntegerFK = "integer"
)

// Validation policies. "abort" stops the run on any data-quality violation;
// "warn" logs every violation and proceeds to transformation.
const (
	ValidationAbort = "abort"
	ValidationWarn  = "warn"
)

// DBConfig holds connection parameters for the relational store.
type DBConfig struct {
	// Driver selects the backend: "postgres" (reference deployment) or "sqlite".
	Driver string `mapstructure:"db_driver"`

	Host     string `mapstructure:"postgres_host"`
	Port     int    `mapstructure:"postgres_port"`
	User     string `mapstructure:"postgres_user"`
	Password string `mapstructure:"postgres_password"`
	Name     string `mapstructure:"postgres_db"`
	SSLMode  string `mapstructure:"postgres_sslmode"`

	// DSN, when set, overrides the assembled connection string. Required for
	// the sqlite driver (file path or ":memory:").
	DSN string `mapstructure:"db_dsn"`
}

// ConnString returns the connection string for the configured driver.
func (c DBConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Sources holds the three delimited input files.
type Sources struct {
	Orders     string `mapstructure:"orders_path"`
	MenuItems  string `mapstructure:"menu_items_path"`
	OrderItems string `mapstructure:"order_items_path"`
}

// Config is the full pipeline configuration.
type Config struct {
	DB      DBConfig `mapstructure:",squash"`
	Sources Sources  `mapstructure:",squash"`

	// Delimiter is the field separator of the source files (first rune used).
	Delimiter string `mapstructure:"csv_delimiter"`

	// DateLayout is the Go layout for source order dates. The reference
	// deployment ships day-month-year files.
	DateLayout string `mapstructure:"date_layout"`

	// NullToken is the literal that marks an absent value in source files.
	// The empty string always maps to NULL as well.
	NullToken string `mapstructure:"null_token"`

	// MenuHeaderMap maps source menu-file headers to canonical column names,
	// for deployments whose menu export uses different column names. JSON
	// object or "src1:dst1,src2:dst2" form.
	MenuHeaderMap map[string]string `mapstructure:"-"`

	KeyModel       string `mapstructure:"key_model"`
	ValidationMode string `mapstructure:"validation_mode"`

	// SkipInvalidRows opts into skip-and-log ingestion instead of failing on
	// the first uncoercible row.
	SkipInvalidRows bool `mapstructure:"skip_invalid_rows"`

	// DedupeExactRows collapses byte-identical duplicate source rows before
	// staging (off by default; re-exported files sometimes repeat rows).
	DedupeExactRows bool `mapstructure:"dedupe_exact_rows"`

	TopItemsLimit int           `mapstructure:"top_items_limit"`
	BatchSize     int           `mapstructure:"batch_size"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// Comma returns the configured delimiter as a rune, defaulting to ','.
func (c Config) Comma() rune {
	if c.Delimiter == "" {
		return ','
	}
	return []rune(c.Delimiter)[0]
}

// Load reads the optional .env file at envFile (ignored when missing), then
// resolves the configuration from the environment with defaults.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys to Unmarshal once viper knows them;
	// keys without defaults must be bound explicitly.
	for _, key := range []string{"db_dsn", "skip_invalid_rows", "dedupe_exact_rows"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// Connection defaults mirror the reference deployment.
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5433)
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "password")
	v.SetDefault("postgres_db", "restaurant_data")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("orders_path", "data/orders.csv")
	v.SetDefault("menu_items_path", "data/menu_items.csv")
	v.SetDefault("order_items_path", "data/order_items.csv")

	v.SetDefault("csv_delimiter", ",")
	v.SetDefault("date_layout", "02-01-2006")
	v.SetDefault("null_token", "")
	v.SetDefault("key_model", KeyModelString)
	v.SetDefault("validation_mode", ValidationAbort)
	v.SetDefault("top_items_limit", 10)
	v.SetDefault("batch_size", 500)
	v.SetDefault("run_timeout", "10m")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_file", "data_pipeline.log")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.MenuHeaderMap = parseHeaderMap(v.GetString("menu_header_map"))
	return &cfg, nil
}

// parseHeaderMap accepts either a JSON object or a comma-separated list of
// src:dst pairs. An empty input yields a nil map.
func parseHeaderMap(s string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return m
	}
	m = map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		m[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
