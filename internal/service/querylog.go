package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// QueryLogEntry is one submitted search as received from the caller.
// RawURL is the url parameter exactly as submitted, before normalization.
type QueryLogEntry struct {
	ID        string
	RawURL    string
	Query     string
	RequestID string
	CreatedAt time.Time
}

// QueryLogger appends submitted searches to an append-only log
type QueryLogger interface {
	LogQuery(ctx context.Context, entry QueryLogEntry) error
}

// FileQueryLog appends one raw url parameter per line to a text file.
// It is safe for concurrent use.
type FileQueryLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileQueryLog creates the log directory and returns the appender
func NewFileQueryLog(path string) (*FileQueryLog, error) {
	if path == "" {
		return nil, fmt.Errorf("query log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create query log directory: %w", err)
	}
	return &FileQueryLog{path: path, now: time.Now}, nil
}

// Path returns the active log file path
func (l *FileQueryLog) Path() string {
	return l.path
}

// LogQuery appends the raw url parameter followed by a newline
func (l *FileQueryLog) LogQuery(_ context.Context, entry QueryLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open query log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry.RawURL + "\n"); err != nil {
		return fmt.Errorf("failed to write query log: %w", err)
	}
	return nil
}

// Rotate moves the active log aside and returns the rotated file path.
// It returns an empty path when there is nothing to rotate.
func (l *FileQueryLog) Rotate() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat query log: %w", err)
	}
	if info.Size() == 0 {
		return "", nil
	}

	ext := filepath.Ext(l.path)
	base := strings.TrimSuffix(l.path, ext)
	rotated := fmt.Sprintf("%s-%d%s", base, l.now().UTC().UnixNano(), ext)

	if err := os.Rename(l.path, rotated); err != nil {
		return "", fmt.Errorf("failed to rotate query log: %w", err)
	}
	return rotated, nil
}

// MultiQueryLog fans an entry out to several loggers. Every logger is tried;
// failures are joined.
type MultiQueryLog []QueryLogger

func (m MultiQueryLog) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	var errs []error
	for _, logger := range m {
		if logger == nil {
			continue
		}
		if err := logger.LogQuery(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
