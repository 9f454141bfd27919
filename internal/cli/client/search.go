package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/archivesearch/internal/archive"
	"github.com/cloo-solutions/archivesearch/internal/config"
	"github.com/cloo-solutions/archivesearch/internal/render"
	"github.com/cloo-solutions/archivesearch/internal/service"
	"github.com/spf13/cobra"
)

// SearchCmd creates the search command
func SearchCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "search <url> [query...]",
		Short: "Search archived captures of a site",
		Long: `Lists archived captures of every page under <url>.

Remaining arguments form the query. Captures whose original URL contains any
term are kept; wrap words in single quotes to match a phrase.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			query := strings.Join(args[1:], " ")

			var result *SearchResult
			var err error
			if local {
				result, err = searchLocal(cmd.Context(), args[0], query)
			} else {
				flagURL, _ := cmd.Flags().GetString("api-url")
				result, err = searchRemote(cmd.Context(), flagURL, args[0], query)
			}
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printSearchResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Query the archive directly instead of a server")

	return cmd
}

func searchRemote(ctx context.Context, flagURL, rawURL, query string) (*SearchResult, error) {
	baseURL, _, err := ResolveAPIURL(flagURL)
	if err != nil {
		return nil, err
	}

	result, err := NewAPIClient(baseURL).Search(contextOrBackground(ctx), rawURL, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return result, nil
}

func searchLocal(ctx context.Context, rawURL, query string) (*SearchResult, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fetcher := archive.NewClient(localArchiveConfig(cfg))
	svc := service.NewSearchService(fetcher, nil, service.NewArchiveLinks(cfg.ArchiveBaseURL))

	output, err := svc.Search(contextOrBackground(ctx), service.SearchInput{URL: rawURL, Query: query})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return newSearchResult(output), nil
}

// localArchiveConfig applies the same fetch limits the server uses
func localArchiveConfig(cfg *config.Config) archive.Config {
	return archive.Config{
		Endpoint:  cfg.CDXEndpoint,
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Rate:      cfg.FetchRate,
		Burst:     cfg.FetchBurst,
	}
}

func newSearchResult(output *service.SearchOutput) *SearchResult {
	result := &SearchResult{
		Domain:             output.Domain,
		GeneratedAt:        output.GeneratedAt,
		GeneratedAtDisplay: render.FormatTimestamp(output.GeneratedAt),
	}
	if output.Outcome != nil {
		result.SearchOutcome = *output.Outcome
	}
	return result
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func printSearchResult(w io.Writer, result *SearchResult) {
	if result.HasQuery() {
		fmt.Fprintf(w, "%d captures of %s matching %s (%ss)\n",
			result.MatchedCount, result.Domain, *result.QueryDisplay, render.FormatElapsed(result.ElapsedSeconds))
	} else {
		fmt.Fprintf(w, "%d captures of %s (%ss)\n",
			result.MatchedCount, result.Domain, render.FormatElapsed(result.ElapsedSeconds))
	}
	if result.GeneratedAtDisplay != "" {
		fmt.Fprintf(w, "Generated %s\n", result.GeneratedAtDisplay)
	}

	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "\nNo captures matched.")
		return
	}

	fmt.Fprintln(w)
	for _, entry := range result.Entries {
		fmt.Fprintf(w, "%d. %s\n", entry.Number, entry.DisplayURL)
	}
}
