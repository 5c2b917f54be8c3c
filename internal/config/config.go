// Package config loads server configuration from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvConfigFile = "GM_CONFIG_FILE"

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
)

// Orchestrators.
const (
	OrchestratorLoop   = "loop"
	OrchestratorRouter = "router"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort       int
	RequestTimeout time.Duration

	// Inference
	Model          string
	EmbeddingModel string
	BackendTimeout time.Duration
	Orchestrator   string
	MaxIterations  int

	// Transcript store
	StoreDriver string
	StoreDSN    string
	MongoURI    string
	MongoDB     string

	// Lore
	LoreDir  string
	LoreTopK int

	// Logging
	LogLevel string
}

type fileConfig struct {
	HTTPPort         int    `yaml:"http_port"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
	Model            string `yaml:"model"`
	EmbeddingModel   string `yaml:"embedding_model"`
	BackendTimeoutMS int    `yaml:"backend_timeout_ms"`
	Orchestrator     string `yaml:"orchestrator"`
	MaxIterations    int    `yaml:"max_iterations"`
	Store            struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongodb"`
	Lore struct {
		Dir  string `yaml:"dir"`
		TopK int    `yaml:"top_k"`
	} `yaml:"lore"`
	LogLevel string `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:       8080,
		RequestTimeout: 300 * time.Second,
		Model:          "gemini-2.5-flash",
		BackendTimeout: 60 * time.Second,
		Orchestrator:   OrchestratorLoop,
		MaxIterations:  8,
		StoreDriver:    DriverSQLite,
		StoreDSN:       "messages.db",
		MongoURI:       "mongodb://localhost:27017",
		MongoDB:        "gm_assistant",
		LoreDir:        "lore",
		LoreTopK:       4,
		LogLevel:       "info",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// GM_CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setInt(&c.HTTPPort, fc.HTTPPort)
	setMillis(&c.RequestTimeout, fc.RequestTimeoutMS)
	setString(&c.Model, fc.Model)
	setString(&c.EmbeddingModel, fc.EmbeddingModel)
	setMillis(&c.BackendTimeout, fc.BackendTimeoutMS)
	setString(&c.Orchestrator, fc.Orchestrator)
	setInt(&c.MaxIterations, fc.MaxIterations)
	setString(&c.StoreDriver, fc.Store.Driver)
	setString(&c.StoreDSN, fc.Store.DSN)
	setString(&c.MongoURI, fc.Mongo.URI)
	setString(&c.MongoDB, fc.Mongo.Database)
	setString(&c.LoreDir, fc.Lore.Dir)
	setInt(&c.LoreTopK, fc.Lore.TopK)
	setString(&c.LogLevel, fc.LogLevel)
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT_MS", c.RequestTimeout)
	c.Model = getEnv("MODEL", c.Model)
	c.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.EmbeddingModel)
	c.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT_MS", c.BackendTimeout)
	c.Orchestrator = getEnv("ORCHESTRATOR", c.Orchestrator)
	c.MaxIterations = getEnvInt("MAX_ITERATIONS", c.MaxIterations)
	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.StoreDSN = getEnv("STORE_DSN", c.StoreDSN)
	c.MongoURI = getEnv("MONGODB_URI", c.MongoURI)
	c.MongoDB = getEnv("MONGODB_DB", c.MongoDB)
	c.LoreDir = getEnv("LORE_DIR", c.LoreDir)
	c.LoreTopK = getEnvInt("LORE_TOP_K", c.LoreTopK)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http port %d out of range", c.HTTPPort))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	switch c.StoreDriver {
	case DriverSQLite, DriverPostgres:
		if c.StoreDriver == DriverPostgres && c.StoreDSN == "" {
			errs = append(errs, errors.New("store dsn is required for postgres"))
		}
	case DriverMongoDB:
		if c.MongoURI == "" || c.MongoDB == "" {
			errs = append(errs, errors.New("mongodb uri and database are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store driver %q", c.StoreDriver))
	}
	switch c.Orchestrator {
	case OrchestratorLoop, OrchestratorRouter:
	default:
		errs = append(errs, fmt.Errorf("unsupported orchestrator %q", c.Orchestrator))
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, errors.New("max iterations must be positive"))
	}
	if c.LoreTopK <= 0 {
		errs = append(errs, errors.New("lore top k must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setMillis(dst *time.Duration, ms int) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}
