package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/tripsearch-mcp/internal/indexer"
	"github.com/dshills/tripsearch-mcp/internal/storage"
)

var skipStartupRebuild bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Run the MCP server on stdin/stdout. When the index is empty or older
than a day, a full rebuild runs in the background while the server answers
requests.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, cleanup, err := openServer()
		if err != nil {
			return err
		}
		defer cleanup()

		logger.Info("tripsearch starting",
			slog.String("version", version),
			slog.String("build_mode", storage.BuildMode),
			slog.String("driver", storage.DriverName))

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)

		// Handle shutdown signals
		g.Go(func() error {
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case sig := <-sigChan:
				logger.Info("shutting down", slog.String("signal", sig.String()))
				cancel()
			case <-gctx.Done():
			}
			return nil
		})

		g.Go(func() error {
			// The server stopping (stdin closed) ends the process
			defer cancel()
			return srv.Serve(gctx)
		})

		if !skipStartupRebuild {
			g.Go(func() error {
				startupRebuild(gctx, srv.Indexer())
				return nil
			})
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

// startupRebuild refreshes a stale index. Failures are logged; the server
// keeps serving whatever the index holds.
func startupRebuild(ctx context.Context, idx *indexer.Indexer) {
	stale, err := idx.NeedsRebuild(ctx)
	if err != nil {
		logger.Warn("failed to check index freshness", slog.Any("error", err))
		return
	}
	if !stale {
		return
	}

	n, err := idx.RebuildAll(ctx)
	switch {
	case err == nil:
		logger.Info("startup rebuild complete", slog.Int("entries", n))
	case errors.Is(err, indexer.ErrRebuildInProgress), errors.Is(err, context.Canceled):
		logger.Debug("startup rebuild skipped", slog.Any("error", err))
	default:
		logger.Error("startup rebuild failed", slog.Any("error", err))
	}
}

func init() {
	serveCmd.Flags().BoolVar(&skipStartupRebuild, "no-rebuild", false, "do not rebuild a stale index on startup")
	rootCmd.AddCommand(serveCmd)
}
