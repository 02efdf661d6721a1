package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scholar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := LoadWithEnv("", map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "scholar.db", cfg.Store.Path)
	assert.False(t, cfg.Ingest.Enrich)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: postgres
  dsn: postgres://localhost/scholar
ingest:
  fellows: true
  enrich: true
kafka:
  brokers: [k1:9092, k2:9092]
  topic: researchers
redis:
  url: redis://localhost:6379/0
  max_len: 500
log:
  level: debug
  format: json
`)

	cfg, err := LoadWithEnv(path, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/scholar", cfg.Store.DSN)
	assert.True(t, cfg.Ingest.Fellows)
	assert.True(t, cfg.Ingest.Enrich)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "researchers", cfg.Kafka.Topic)
	assert.Equal(t, int64(500), cfg.Redis.MaxLen)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite
  path: from-file.db
`)

	cfg, err := LoadWithEnv(path, map[string]string{
		"SCHOLAR_STORE_PATH":    "from-env.db",
		"SCHOLAR_KAFKA_BROKERS": "a:1,b:2",
		"SCHOLAR_INGEST_ENRICH": "true",
		"SCHOLAR_LOG_LEVEL":     "warn",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.Store.Path)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Ingest.Enrich)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "store:\n  drvier: sqlite\n")

	_, err := LoadWithEnv(path, map[string]string{})
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := LoadWithEnv(writeConfig(t, ""), map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), map[string]string{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"memory", func(c *Config) { c.Store.Driver = DriverMemory }, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }, true},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, true},
		{"brokers without topic", func(c *Config) {
			c.Kafka.Brokers = []string{"k:9092"}
			c.Kafka.Topic = ""
		}, true},
		{"negative max len", func(c *Config) { c.Redis.MaxLen = -1 }, true},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	level, err := LogConfig{Level: "DEBUG"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
