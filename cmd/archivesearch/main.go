package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/archivesearch/internal/cli"
	"github.com/cloo-solutions/archivesearch/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "archivesearch",
		Short: "Search Wayback Machine captures from the command line",
		Long: `archivesearch lists archived captures of a site, optionally filtered by query terms.

Environment variables:
  ARCHIVESEARCH_API_URL   archivesearchd base URL (default: http://localhost:8080)`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
