// Package config loads scholar settings from a YAML file and SCHOLAR_
// environment variables. Precedence, lowest first: Default, file, env,
// then command-line flags applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCHOLAR_"

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full scholar configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" envPrefix:"STORE_"`
	Ingest  IngestConfig  `yaml:"ingest" envPrefix:"INGEST_"`
	S3      S3Config      `yaml:"s3" envPrefix:"S3_"`
	Kafka   KafkaConfig   `yaml:"kafka" envPrefix:"KAFKA_"`
	Redis   RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Trace   TraceConfig   `yaml:"trace" envPrefix:"OTEL_"`
}

// StoreConfig selects and locates the event log.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

// IngestConfig holds ingestion defaults.
type IngestConfig struct {
	Fellows bool `yaml:"fellows" env:"FELLOWS"`
	Enrich  bool `yaml:"enrich" env:"ENRICH"`
}

// S3Config configures s3:// profile sources.
type S3Config struct {
	Region    string `yaml:"region" env:"REGION"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	PathStyle bool   `yaml:"path_style" env:"PATH_STYLE"`
}

// KafkaConfig enables the Kafka relay when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"TOPIC"`
}

// RedisConfig enables the Redis stream relay when URL is set.
type RedisConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Stream string `yaml:"stream" env:"STREAM"`
	MaxLen int64  `yaml:"max_len" env:"MAX_LEN"`
}

// MetricsConfig enables Prometheus counters.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Out     string `yaml:"out" env:"OUT"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// TraceConfig enables OTLP trace export when Endpoint is set.
type TraceConfig struct {
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// Default returns a SQLite-backed configuration with every relay off.
func Default() Config {
	return Config{
		Store: StoreConfig{Driver: DriverSQLite, Path: "scholar.db"},
		Kafka: KafkaConfig{Topic: "scholar.events"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (when non-empty) over Default, then applies the process
// environment, then validates.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil environ reads
// the process environment.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos surface instead of silently
// falling back to defaults.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path required for sqlite")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn required for postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("config: kafka.topic required when brokers are set")
	}
	if c.Redis.MaxLen < 0 {
		return fmt.Errorf("config: redis.max_len must not be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", l.Level)
	}
}

// NewLogger builds a slog logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
