// Package config loads localstore configuration from environment variables
// and command-line flags.
package config

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/flowmesh/localstore/internal/logger"
	"github.com/flowmesh/localstore/internal/storage/backend"
	"github.com/flowmesh/localstore/internal/tracing"
)

// Config represents the application configuration
type Config struct {
	// Storage configuration
	Storage StorageConfig

	// Logging configuration
	Logging LoggingConfig

	// Metrics configuration
	Metrics MetricsConfig
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	// Backend kind: "memory", "pebble", "sqlite", "redis"
	Backend string `env:"LOCALSTORE_BACKEND" envDefault:"pebble"`

	// Data directory path (pebble and sqlite)
	DataDir string `env:"LOCALSTORE_DATA_DIR" envDefault:"./data"`

	// Namespace prefix prepended to every key
	Prefix string `env:"LOCALSTORE_PREFIX" envDefault:"localstore_"`

	// Make every pebble write durable before returning
	SyncWrites bool `env:"LOCALSTORE_SYNC_WRITES" envDefault:"true"`

	// Redis server address
	RedisAddr string `env:"LOCALSTORE_REDIS_ADDR" envDefault:"localhost:6379"`

	// Redis password
	RedisPassword string `env:"LOCALSTORE_REDIS_PASSWORD"`

	// Redis database number
	RedisDB int `env:"LOCALSTORE_REDIS_DB" envDefault:"0"`

	// Interval between expired-entry sweeps
	SweepInterval time.Duration `env:"LOCALSTORE_SWEEP_INTERVAL" envDefault:"1m"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	// Log level: "debug", "info", "warn", "error"
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Log format: "json", "text"
	Format string `env:"LOG_FORMAT" envDefault:"text"`

	// Log file path (empty for stderr)
	Output string `env:"LOG_OUTPUT" envDefault:"stderr"`

	// Enable log rotation
	Rotation bool `env:"LOG_ROTATION" envDefault:"true"`

	// Max log file size in MB
	MaxSize int `env:"LOG_MAX_SIZE" envDefault:"100"`

	// Number of backup files to keep
	MaxBackups int `env:"LOG_MAX_BACKUPS" envDefault:"7"`

	// Max age in days
	MaxAge int `env:"LOG_MAX_AGE" envDefault:"30"`
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	// Enable Prometheus metrics
	Enabled bool `env:"METRICS_ENABLED" envDefault:"false"`

	// Metrics server address
	Addr string `env:"METRICS_ADDR" envDefault:":9090"`

	// Metrics path
	Path string `env:"METRICS_PATH" envDefault:"/metrics"`

	// Enable OpenTelemetry tracing
	TracingEnabled bool `env:"TRACING_ENABLED" envDefault:"false"`

	// OpenTelemetry endpoint
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:""`

	// OpenTelemetry exporter: "grpc", "http"
	TracingExporter string `env:"TRACING_EXPORTER" envDefault:"grpc"`

	// Disable TLS towards the OpenTelemetry endpoint
	TracingInsecure bool `env:"TRACING_INSECURE" envDefault:"false"`
}

// Load loads configuration from multiple sources:
// 1. Default values
// 2. Environment variables
// 3. Command line flags
//
// It returns the arguments left after flag parsing.
func Load(name string, args []string) (*Config, []string, error) {
	cfg, rest, err := Parse(name, args)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, rest, nil
}

// Parse is Load without validation
func Parse(name string, args []string) (*Config, []string, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.Storage.Backend, "backend", cfg.Storage.Backend, "Storage backend (memory, pebble, sqlite, redis)")
	fs.StringVar(&cfg.Storage.DataDir, "data-dir", cfg.Storage.DataDir, "Data directory path")
	fs.StringVar(&cfg.Storage.Prefix, "prefix", cfg.Storage.Prefix, "Namespace prefix")
	fs.StringVar(&cfg.Storage.RedisAddr, "redis-addr", cfg.Storage.RedisAddr, "Redis server address")
	fs.IntVar(&cfg.Storage.RedisDB, "redis-db", cfg.Storage.RedisDB, "Redis database number")
	fs.DurationVar(&cfg.Storage.SweepInterval, "sweep-interval", cfg.Storage.SweepInterval, "Interval between expired-entry sweeps")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "Log format (json, text)")
	fs.BoolVar(&cfg.Metrics.Enabled, "metrics", cfg.Metrics.Enabled, "Serve Prometheus metrics")
	fs.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "Metrics server address")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg.Storage.DataDir = filepath.Clean(cfg.Storage.DataDir)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	return cfg, fs.Args(), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	kind, err := backend.ParseKind(c.Storage.Backend)
	if err != nil {
		return err
	}

	if (kind == backend.KindPebble || kind == backend.KindSQLite) && c.Storage.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if kind == backend.KindRedis && c.Storage.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}

	if c.Storage.Prefix == "" {
		return fmt.Errorf("namespace prefix cannot be empty")
	}

	if c.Storage.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Metrics.TracingEnabled && c.Metrics.TracingEndpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	return nil
}

// LoggerConfig converts the logging section for logger.Init
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Output:     c.Logging.Output,
		Rotation:   c.Logging.Rotation,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// TracingConfig converts the metrics section for tracing.NewProvider
func (c *Config) TracingConfig(serviceVersion string) tracing.TracingConfig {
	tc := tracing.DefaultTracingConfig()
	tc.Enabled = c.Metrics.TracingEnabled
	tc.Endpoint = c.Metrics.TracingEndpoint
	tc.ExporterType = c.Metrics.TracingExporter
	tc.Insecure = c.Metrics.TracingInsecure
	tc.ServiceVersion = serviceVersion
	return tc
}
