// Package config handles tripsearch configuration.
//
// Settings come from a TOML file, then environment variables (optionally
// loaded from a .env file) override individual fields.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/dshills/tripsearch-mcp/internal/searcher"
	"github.com/dshills/tripsearch-mcp/internal/storage"
)

// Environment variables that override file settings
const (
	EnvDataDir     = "TRIPSEARCH_DATA_DIR"
	EnvBackend     = "TRIPSEARCH_BACKEND"
	EnvSnapshotDir = "TRIPSEARCH_SNAPSHOT_DIR"
	EnvLogLevel    = "TRIPSEARCH_LOG_LEVEL"
	EnvCacheSize   = "TRIPSEARCH_CACHE_SIZE"
)

// Config represents the tripsearch configuration.
type Config struct {
	// DataDir holds the index database.
	DataDir string `toml:"data_dir"`

	// Backend selects the index store: sqlite, bolt, or memory.
	Backend string `toml:"backend"`

	// SnapshotDir holds one <collection>.json or .yaml file per trip.
	// Defaults to <data_dir>/snapshots.
	SnapshotDir string `toml:"snapshot_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// SearchCacheSize is the number of cached query results.
	SearchCacheSize int `toml:"search_cache_size"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	dataDir := filepath.Join(".", ".tripsearch")
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".tripsearch")
	}

	return &Config{
		DataDir:         dataDir,
		Backend:         storage.BackendSQLite,
		LogLevel:        "info",
		SearchCacheSize: searcher.DefaultCacheSize,
	}
}

// DefaultPath returns the default config file path (~/.tripsearch/config.toml).
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".tripsearch", "config.toml")
	}
	return filepath.Join(".", "config.toml")
}

// Load loads the configuration from path, or from DefaultPath when path is
// empty, and applies environment overrides. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil || explicit {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom loads the configuration from a specific path without consulting
// the environment.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvSnapshotDir); v != "" {
		c.SnapshotDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvCacheSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCacheSize, v, err)
		}
		c.SearchCacheSize = n
	}
	return nil
}

// Validate rejects unknown backends and log levels.
func (c *Config) Validate() error {
	switch c.Backend {
	case storage.BackendSQLite, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownBackend, c.Backend)
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.SearchCacheSize < 0 {
		return fmt.Errorf("search_cache_size cannot be negative: %d", c.SearchCacheSize)
	}

	if c.Backend != storage.BackendMemory && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for the %s backend", c.Backend)
	}
	return nil
}

// IndexPath returns the index file location for the configured backend.
func (c *Config) IndexPath() string {
	switch c.Backend {
	case storage.BackendBolt:
		return filepath.Join(c.DataDir, "index.bolt")
	case storage.BackendMemory:
		return ""
	default:
		return filepath.Join(c.DataDir, "index.db")
	}
}

// SnapshotPath returns the entity cache directory.
func (c *Config) SnapshotPath() string {
	if c.SnapshotDir != "" {
		return c.SnapshotDir
	}
	return filepath.Join(c.DataDir, "snapshots")
}

// Logger builds a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
