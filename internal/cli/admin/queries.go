package admin

import (
	"context"
	"fmt"
	"io"

	"github.com/cloo-solutions/archivesearch/internal/config"
	"github.com/cloo-solutions/archivesearch/internal/pagination"
	"github.com/cloo-solutions/archivesearch/internal/repository"
	"github.com/spf13/cobra"
)

// QueriesCmd returns the queries command
func QueriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Inspect the search query log",
		Long:  "Inspect searches recorded in the Postgres query log",
	}

	cmd.AddCommand(QueriesListCmd())
	cmd.AddCommand(QueriesCountCmd())

	return cmd
}

func QueriesListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent searches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runQueriesList(cmd.Context(), cmd.OutOrStdout(), outputFormat, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", pagination.DefaultLimit, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runQueriesList(ctx context.Context, w io.Writer, outputFormat string, limit int, cursorStr string) error {
	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return fmt.Errorf("invalid --cursor: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := getDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	page, err := repository.NewQueryLogRepository(pool).ListRecent(ctx, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list queries: %w", err)
	}

	return printQueryLogPage(w, outputFormat, page)
}

func printQueryLogPage(w io.Writer, outputFormat string, page *repository.QueryLogPage) error {
	if outputFormat == "json" {
		items := make([]map[string]interface{}, len(page.Items))
		for i, entry := range page.Items {
			items[i] = map[string]interface{}{
				"id":         entry.ID,
				"raw_url":    entry.RawURL,
				"query":      entry.Query,
				"request_id": entry.RequestID,
				"created_at": entry.CreatedAt,
			}
		}
		return writeJSON(w, map[string]interface{}{
			"items":    items,
			"cursor":   page.Cursor,
			"has_more": page.HasMore,
		})
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No queries found")
		return nil
	}

	fmt.Fprintln(w, "Queries:")
	for _, entry := range page.Items {
		line := fmt.Sprintf("  %s  %s", entry.CreatedAt.UTC().Format("2006-01-02 15:04:05"), entry.RawURL)
		if entry.Query != "" {
			line += fmt.Sprintf("  query=%q", entry.Query)
		}
		fmt.Fprintln(w, line)
	}
	if page.HasMore && page.Cursor != "" {
		fmt.Fprintf(w, "\nMore results available. Use --cursor %s\n", page.Cursor)
	}
	return nil
}

func QueriesCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of recorded searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			pool, err := getDBPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := repository.NewQueryLogRepository(pool).Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to count queries: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}
}
