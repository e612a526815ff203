package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/tripsearch-mcp/internal/mcp"
	"github.com/dshills/tripsearch-mcp/internal/searcher"
	"github.com/dshills/tripsearch-mcp/internal/snippet"
	"github.com/dshills/tripsearch-mcp/pkg/types"
)

var (
	searchLimit      int
	searchTypes      []string
	searchCollection string
	searchMinScore   float64
	searchGrouped    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index",
	Example: `  tripsearch search eiffel
  tripsearch search "day in rome" --types journalEntry,activity
  tripsearch search museum --collection paris --grouped`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		opts := &searcher.SearchOptions{
			Limit:    searchLimit,
			MinScore: searcher.MinScore(searchMinScore),
		}
		for _, name := range searchTypes {
			t, err := types.ParseEntityType(name)
			if err != nil {
				return err
			}
			opts.EntityTypes = append(opts.EntityTypes, t)
		}

		srv, cleanup, err := openServer()
		if err != nil {
			return err
		}
		defer cleanup()

		var results []types.SearchResult
		if searchCollection != "" {
			results, err = srv.Searcher().SearchWithin(cmd.Context(), searchCollection, query, opts)
		} else {
			results, err = srv.Searcher().Search(cmd.Context(), query, opts)
		}
		if err != nil {
			return err
		}

		if searchGrouped {
			grouped := searcher.GroupResults(query, results, time.Now())
			return render(mcp.FormatGrouped(grouped, snippet.DefaultTag), func(w io.Writer) { printGrouped(w, grouped) })
		}
		return render(searchPayload(query, results), func(w io.Writer) { printResults(w, results) })
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, cleanup, err := openServer()
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := srv.Searcher().GetStats(cmd.Context())
		if err != nil {
			return err
		}
		stale, err := srv.Indexer().NeedsRebuild(cmd.Context())
		if err != nil {
			return err
		}

		data := mcp.FormatStats(stats)
		data["needs_rebuild"] = stale
		return render(data, func(w io.Writer) {
			fmt.Fprintf(w, "Entries:       %d\n", stats.TotalEntries)
			if stats.LastRebuild != nil {
				fmt.Fprintf(w, "Last rebuild:  %s\n", stats.LastRebuild.Local().Format(time.RFC1123))
			} else {
				fmt.Fprintln(w, "Last rebuild:  never")
			}
			fmt.Fprintf(w, "Needs rebuild: %v\n", stale)

			fmt.Fprintln(w, "\nBy type:")
			for _, t := range types.AllEntityTypes {
				fmt.Fprintf(w, "  %-16s %d\n", t.Label(), stats.ByEntityType[t])
			}

			ids := make([]string, 0, len(stats.ByCollection))
			for id := range stats.ByCollection {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			fmt.Fprintln(w, "\nBy collection:")
			for _, id := range ids {
				fmt.Fprintf(w, "  %-16s %d\n", id, stats.ByCollection[id])
			}
		})
	},
}

// searchPayload is the JSON shape of the search tool's response
func searchPayload(query string, results []types.SearchResult) map[string]interface{} {
	payload := map[string]interface{}{
		"query":   query,
		"total":   len(results),
		"results": mcp.FormatResults(results, query, snippet.DefaultTag),
	}
	if searchCollection != "" {
		payload["collection_id"] = searchCollection
	}
	return payload
}

func printResults(w io.Writer, results []types.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for i, r := range results {
		printResult(w, i+1, r)
	}
}

func printGrouped(w io.Writer, grouped *types.GroupedResults) {
	if grouped.Total == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for _, g := range grouped.Groups {
		fmt.Fprintf(w, "%s (%d)\n", g.Label, len(g.Results))
		for i, r := range g.Results {
			printResult(w, i+1, r)
		}
		fmt.Fprintln(w)
	}
}

func printResult(w io.Writer, rank int, r types.SearchResult) {
	fmt.Fprintf(w, "%2d. [%s] %s  (%.0f)\n", rank, r.EntityType, r.Title, r.Score)
	if r.Snippet != "" && r.Snippet != r.Title {
		fmt.Fprintf(w, "    %s\n", r.Snippet)
	}
	fmt.Fprintf(w, "    %s\n", r.URL)
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", searcher.DefaultLimit, "maximum number of results")
	searchCmd.Flags().StringSliceVarP(&searchTypes, "types", "t", nil, "restrict to entity types (comma separated)")
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "search a single collection")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", searcher.DefaultMinScore, "minimum relevance score")
	searchCmd.Flags().BoolVarP(&searchGrouped, "grouped", "g", false, "group results by entity type")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
}
