package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/archivesearch/internal/config"
	"github.com/cloo-solutions/archivesearch/internal/jobs"
	"github.com/cloo-solutions/archivesearch/internal/logging"
	"github.com/cloo-solutions/archivesearch/internal/storage"
	"github.com/spf13/cobra"
)

// LogsCmd returns the logs command
func LogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Manage archived query log files",
		Long:  "Rotate the file query log into object storage, list and delete archived files",
	}

	cmd.AddCommand(LogsArchiveCmd())
	cmd.AddCommand(LogsListCmd())
	cmd.AddCommand(LogsDeleteCmd())

	return cmd
}

func LogsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Rotate the query log and upload pending files once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.Setup(cfg.Debug)

			fileLog, err := newFileQueryLog(cfg)
			if err != nil {
				return err
			}
			s3Client, err := newS3Client(ctx, cfg)
			if err != nil {
				return err
			}
			if err := s3Client.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("failed to ensure S3 bucket: %w", err)
			}

			keys, err := jobs.NewLogArchiver(fileLog, s3Client, logArchivePrefix, logger).Archive(ctx)
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "archived %s\n", key)
			}
			if err != nil {
				return fmt.Errorf("archive incomplete: %w", err)
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to archive")
			}
			return nil
		},
	}
}

// ArchivedLog is one archived query log file
type ArchivedLog struct {
	storage.ObjectInfo
	DownloadURL string `json:"download_url,omitempty"`
}

// objectLister is the part of the S3 client used by logs list
type objectLister interface {
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

func LogsListCmd() *cobra.Command {
	var (
		prefix    string
		withLinks bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived query log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s3Client, err := newS3Client(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			logs, err := listArchivedLogs(cmd.Context(), s3Client, prefix, withLinks)
			if err != nil {
				return err
			}
			return printArchivedLogs(cmd.OutOrStdout(), outputFormat, logs)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&prefix, "prefix", logArchivePrefix+"/", "Only list keys with this prefix (e.g. logs/2024/03/)")
	cmd.Flags().BoolVar(&withLinks, "links", true, "Include presigned download URLs")

	return cmd
}

func listArchivedLogs(ctx context.Context, store objectLister, prefix string, withLinks bool) ([]ArchivedLog, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	logs := make([]ArchivedLog, len(objects))
	for i, obj := range objects {
		logs[i] = ArchivedLog{ObjectInfo: obj}
		if !withLinks {
			continue
		}
		downloadURL, err := store.GenerateDownloadURL(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		logs[i].DownloadURL = downloadURL
	}
	return logs, nil
}

func printArchivedLogs(w io.Writer, outputFormat string, logs []ArchivedLog) error {
	if outputFormat == "json" {
		return writeJSON(w, map[string]interface{}{"items": logs})
	}

	if len(logs) == 0 {
		fmt.Fprintln(w, "No archived logs found")
		return nil
	}

	fmt.Fprintln(w, "Archived logs:")
	for _, l := range logs {
		fmt.Fprintf(w, "  %s (%d bytes, %s)\n", l.Key, l.Size, l.LastModified.UTC().Format("2006-01-02 15:04:05"))
		if l.DownloadURL != "" {
			fmt.Fprintf(w, "    %s\n", l.DownloadURL)
		}
	}
	return nil
}

// objectRemover is the part of the S3 client used by logs delete
type objectRemover interface {
	StatObject(ctx context.Context, key string) (*storage.ObjectMetadata, error)
	DeleteObject(ctx context.Context, key string) error
}

func LogsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Delete archived query log files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s3Client, err := newS3Client(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return deleteArchivedLogs(cmd.Context(), cmd.OutOrStdout(), s3Client, args)
		},
	}
}

// deleteArchivedLogs removes each key under the archive prefix. Missing keys
// are reported and skipped; keys outside the prefix are refused.
func deleteArchivedLogs(ctx context.Context, w io.Writer, store objectRemover, keys []string) error {
	for _, key := range keys {
		if !strings.HasPrefix(key, logArchivePrefix+"/") {
			return fmt.Errorf("refusing to delete %q: not under %s/", key, logArchivePrefix)
		}
	}

	for _, key := range keys {
		meta, err := store.StatObject(ctx, key)
		if err != nil {
			return err
		}
		if meta == nil {
			fmt.Fprintf(w, "not found %s\n", key)
			continue
		}
		if err := store.DeleteObject(ctx, key); err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %s (%d bytes)\n", key, meta.ContentLength)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
