package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/archivesearch/internal/cli"
	"github.com/cloo-solutions/archivesearch/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "archivesearchd",
		Short: "Archive search server",
		Long:  "archivesearchd runs the Wayback Machine search site and manages its query logs",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.QueriesCmd())
	rootCmd.AddCommand(admin.LogsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
