package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/storage"
	"github.com/cloo-solutions/archivesearch/internal/telemetry"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

const archiveContentType = "text/plain; charset=utf-8"

// LogRotator moves the active query log aside
type LogRotator interface {
	Path() string
	Rotate() (string, error)
}

// ObjectStore receives archived log files. StatObject returns nil for a
// missing key.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	StatObject(ctx context.Context, key string) (*storage.ObjectMetadata, error)
}

// LogArchiver rotates the file query log and uploads every rotated file to
// object storage. Uploaded files are removed locally; files whose upload
// failed stay on disk and are retried on the next run.
type LogArchiver struct {
	rotator LogRotator
	store   ObjectStore
	prefix  string
	logger  zerolog.Logger
}

// NewLogArchiver creates a LogArchiver storing objects under prefix
func NewLogArchiver(rotator LogRotator, store ObjectStore, prefix string, logger zerolog.Logger) *LogArchiver {
	return &LogArchiver{
		rotator: rotator,
		store:   store,
		prefix:  strings.Trim(prefix, "/"),
		logger:  logger,
	}
}

// ProcessJobs implements JobProcessor
func (a *LogArchiver) ProcessJobs(ctx context.Context) error {
	_, err := a.Archive(ctx)
	return err
}

// Archive runs one rotation and upload pass and returns the uploaded keys
func (a *LogArchiver) Archive(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "LogArchiver.Archive", telemetry.SpanAttributes{
		Operation: "archive_query_log",
	})
	defer span.End()

	if _, err := a.rotator.Rotate(); err != nil {
		span.SetError(err)
		return nil, err
	}

	pending, err := a.pendingFiles()
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	var uploaded []string
	var errs []error
	for _, file := range pending {
		key, err := a.upload(ctx, file)
		if err != nil {
			a.logger.Warn().Err(err).Str("file", file).Msg("query log upload failed")
			errs = append(errs, err)
			continue
		}
		uploaded = append(uploaded, key)
		a.logger.Info().Str("file", file).Str("key", key).Msg("query log archived")
	}

	if err := errors.Join(errs...); err != nil {
		span.SetError(err)
		telemetry.CaptureError(ctx, err)
		return uploaded, err
	}
	span.SetStatus(sentry.SpanStatusOK)
	return uploaded, nil
}

// pendingFiles lists rotated logs next to the active log, oldest first
func (a *LogArchiver) pendingFiles() ([]string, error) {
	active := a.rotator.Path()
	ext := filepath.Ext(active)
	pattern := strings.TrimSuffix(active, ext) + "-*" + ext

	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list rotated logs: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (a *LogArchiver) upload(ctx context.Context, file string) (string, error) {
	info, err := os.Stat(file)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", file, err)
	}

	key := ArchiveKey(a.prefix, filepath.Base(file), info.ModTime())

	// an earlier pass may have uploaded the file and then failed to remove it
	existing, err := a.store.StatObject(ctx, key)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.ContentLength == info.Size() {
		a.logger.Info().Str("key", key).Msg("query log already archived, removing local copy")
		return key, removeArchived(file)
	}

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	if err := a.store.PutObject(ctx, key, f, archiveContentType); err != nil {
		return "", err
	}

	return key, removeArchived(file)
}

func removeArchived(file string) error {
	if err := os.Remove(file); err != nil {
		return fmt.Errorf("failed to remove archived log %s: %w", file, err)
	}
	return nil
}

// ArchiveKey returns <prefix>/YYYY/MM/DD/<name> using the UTC date of at
func ArchiveKey(prefix, name string, at time.Time) string {
	return path.Join(prefix, at.UTC().Format("2006/01/02"), name)
}
