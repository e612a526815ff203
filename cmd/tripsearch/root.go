package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/tripsearch-mcp/internal/config"
	"github.com/dshills/tripsearch-mcp/internal/entitycache"
	"github.com/dshills/tripsearch-mcp/internal/mcp"
	"github.com/dshills/tripsearch-mcp/internal/storage"
)

var (
	// Global flags
	configPath string
	jsonOutput bool

	// Resolved values
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tripsearch",
	Short: "Offline full-text search over trips",
	Long: `tripsearch indexes trip snapshots (trips, locations, activities, journal
entries, transportation and lodging) and answers ranked keyword queries.

Run "tripsearch serve" to expose the index to MCP clients over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Stdout is reserved for MCP protocol messages and command output
		logger = cfg.Logger(os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.tripsearch/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "force JSON output")
}

// openServer opens the configured store and snapshot cache and wires them
// into a server. The returned cleanup closes the store.
func openServer() (*mcp.Server, func(), error) {
	if cfg.Backend != storage.BackendMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	store, err := storage.Open(cfg.Backend, cfg.IndexPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	cache := entitycache.NewFileCache(cfg.SnapshotPath())

	srv, err := mcp.NewServer(mcp.Options{
		Storage:   store,
		Cache:     cache,
		Logger:    logger,
		CacheSize: cfg.SearchCacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	logger.Debug("index opened",
		slog.String("backend", cfg.Backend),
		slog.String("path", cfg.IndexPath()),
		slog.String("snapshots", cache.Dir()))

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close index", slog.Any("error", err))
		}
	}
	return srv, cleanup, nil
}
