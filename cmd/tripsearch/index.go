package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <collection-id>",
	Short: "Re-index one collection from its snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, cleanup, err := openServer()
		if err != nil {
			return err
		}
		defer cleanup()

		start := time.Now()
		n, err := srv.Indexer().BuildIndex(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		elapsed := time.Since(start)
		return render(map[string]interface{}{
			"collection_id":   args[0],
			"entries_indexed": n,
			"duration_ms":     elapsed.Milliseconds(),
		}, func(w io.Writer) {
			fmt.Fprintf(w, "Indexed %d entries for %s in %s\n", n, args[0], elapsed.Round(time.Millisecond))
		})
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Clear the index and re-index every snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, cleanup, err := openServer()
		if err != nil {
			return err
		}
		defer cleanup()

		start := time.Now()
		n, err := srv.Indexer().RebuildAll(cmd.Context())
		if err != nil {
			return err
		}

		elapsed := time.Since(start)
		return render(map[string]interface{}{
			"entries_indexed": n,
			"duration_ms":     elapsed.Milliseconds(),
		}, func(w io.Writer) {
			fmt.Fprintf(w, "Rebuilt index: %d entries in %s\n", n, elapsed.Round(time.Millisecond))
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <collection-id>",
	Short: "Remove a collection from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, cleanup, err := openServer()
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := srv.Indexer().RemoveCollection(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return render(map[string]interface{}{
			"collection_id":   args[0],
			"entries_removed": n,
		}, func(w io.Writer) {
			fmt.Fprintf(w, "Removed %d entries for %s\n", n, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(removeCmd)
}
