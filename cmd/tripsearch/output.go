package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dshills/tripsearch-mcp/internal/mcp"
	"github.com/dshills/tripsearch-mcp/internal/storage"
)

// wantJSON reports whether command output should be machine readable
func wantJSON() bool {
	return jsonOutput || !isatty.IsTerminal(os.Stdout.Fd())
}

// render writes data as indented JSON when piped, or via text otherwise
func render(data interface{}, text func(io.Writer)) error {
	return renderTo(os.Stdout, wantJSON(), data, text)
}

func renderTo(w io.Writer, asJSON bool, data interface{}, text func(io.Writer)) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text(w)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := map[string]string{
			"name":       mcp.ServerName,
			"version":    version,
			"build_time": buildTime,
			"build_mode": storage.BuildMode,
			"driver":     storage.DriverName,
		}
		return render(info, func(w io.Writer) {
			fmt.Fprintf(w, "tripsearch %s\n", version)
			fmt.Fprintf(w, "Build Time: %s\n", buildTime)
			fmt.Fprintf(w, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(w, "SQLite Driver: %s\n", storage.DriverName)
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
