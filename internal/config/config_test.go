package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	EnvConfigFile, "HTTP_PORT", "REQUEST_TIMEOUT_MS", "MODEL", "EMBEDDING_MODEL", "BACKEND_TIMEOUT_MS",
	"ORCHESTRATOR", "MAX_ITERATIONS", "STORE_DRIVER", "STORE_DSN", "MONGODB_URI", "MONGODB_DB",
	"LORE_DIR", "LORE_TOP_K", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "messages.db", cfg.StoreDSN)
	assert.Equal(t, OrchestratorLoop, cfg.Orchestrator)
	assert.Equal(t, 8, cfg.MaxIterations)
	assert.Equal(t, 60*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.LoreTopK)
	assert.Empty(t, cfg.EmbeddingModel)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MODEL", " gemini-2.5-pro ")
	t.Setenv("ORCHESTRATOR", "router")
	t.Setenv("MAX_ITERATIONS", "3")
	t.Setenv("BACKEND_TIMEOUT_MS", "1500")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("STORE_DSN", "host=localhost user=gm dbname=gm")
	t.Setenv("LORE_TOP_K", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	assert.Equal(t, OrchestratorRouter, cfg.Orchestrator)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, 1500*time.Millisecond, cfg.BackendTimeout)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 4, cfg.LoreTopK)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_port: 7070
model: gemini-file
store:
  driver: mongodb
mongodb:
  uri: mongodb://mongo:27017
  database: campaign
lore:
  dir: /srv/lore
  top_k: 6
backend_timeout_ms: 2000
`), 0o644))
	t.Setenv(EnvConfigFile, path)
	t.Setenv("MODEL", "gemini-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTPPort)
	assert.Equal(t, "gemini-env", cfg.Model)
	assert.Equal(t, DriverMongoDB, cfg.StoreDriver)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, "campaign", cfg.MongoDB)
	assert.Equal(t, "/srv/lore", cfg.LoreDir)
	assert.Equal(t, 6, cfg.LoreTopK)
	assert.Equal(t, 2*time.Second, cfg.BackendTimeout)
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.ErrorContains(t, err, "config: read")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: [nope"), 0o644))
	t.Setenv(EnvConfigFile, path)
	_, err = Load()
	assert.ErrorContains(t, err, "config: parse")
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	require.NoError(t, cfg.Validate())

	cfg.HTTPPort = 0
	cfg.StoreDriver = "redis"
	cfg.Orchestrator = "graph"
	cfg.MaxIterations = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "http port")
	assert.ErrorContains(t, err, `unsupported store driver "redis"`)
	assert.ErrorContains(t, err, `unsupported orchestrator "graph"`)
	assert.ErrorContains(t, err, "max iterations")

	cfg = defaults()
	cfg.StoreDriver = DriverPostgres
	cfg.StoreDSN = ""
	assert.ErrorContains(t, cfg.Validate(), "store dsn")
}

func TestSlogLevel(t *testing.T) {
	cfg := defaults()
	for level, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	} {
		cfg.LogLevel = level
		assert.Equal(t, want, cfg.SlogLevel(), level)
	}
}
