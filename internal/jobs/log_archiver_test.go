package jobs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/service"
	"github.com/cloo-solutions/archivesearch/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectStore struct {
	mock.Mock
	bodies map[string]string
}

func (m *MockObjectStore) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	args := m.Called(ctx, key, contentType)
	if args.Error(0) == nil {
		if m.bodies == nil {
			m.bodies = map[string]string{}
		}
		m.bodies[key] = string(data)
	}
	return args.Error(0)
}

func (m *MockObjectStore) StatObject(ctx context.Context, key string) (*storage.ObjectMetadata, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ObjectMetadata), args.Error(1)
}

func newQueryLog(t *testing.T) *service.FileQueryLog {
	t.Helper()
	ql, err := service.NewFileQueryLog(filepath.Join(t.TempDir(), "queries.txt"))
	require.NoError(t, err)
	return ql
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	assert.Equal(t, "logs/2024/03/10/queries-1.txt", ArchiveKey("logs", "queries-1.txt", at))
	assert.Equal(t, "2024/03/10/q.txt", ArchiveKey("", "q.txt", at))
}

func TestLogArchiver_UploadsRotatedLog(t *testing.T) {
	ql := newQueryLog(t)
	require.NoError(t, ql.LogQuery(context.Background(), service.QueryLogEntry{RawURL: "a.com"}))
	require.NoError(t, ql.LogQuery(context.Background(), service.QueryLogEntry{RawURL: "b.com"}))

	store := new(MockObjectStore)
	store.On("StatObject", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("PutObject", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "logs/") && filepath.Ext(key) == ".txt"
	}), archiveContentType).Return(nil)

	archiver := NewLogArchiver(ql, store, "/logs/", zerolog.Nop())
	keys, err := archiver.Archive(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "a.com\nb.com\n", store.bodies[keys[0]])

	remaining, err := filepath.Glob(filepath.Join(filepath.Dir(ql.Path()), "*"))
	require.NoError(t, err)
	assert.Empty(t, remaining)
	store.AssertExpectations(t)
}

func TestLogArchiver_NothingToArchive(t *testing.T) {
	ql := newQueryLog(t)
	store := new(MockObjectStore)

	keys, err := NewLogArchiver(ql, store, "logs", zerolog.Nop()).Archive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
	store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogArchiver_FailedUploadIsRetried(t *testing.T) {
	ql := newQueryLog(t)
	require.NoError(t, ql.LogQuery(context.Background(), service.QueryLogEntry{RawURL: "a.com"}))

	store := new(MockObjectStore)
	store.On("StatObject", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket unavailable")).Once()

	archiver := NewLogArchiver(ql, store, "logs", zerolog.Nop())
	assert.Error(t, archiver.ProcessJobs(context.Background()))

	pending, err := archiver.pendingFiles()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	store.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	keys, err := archiver.Archive(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	_, statErr := os.Stat(pending[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestLogArchiver_AlreadyArchivedIsNotUploadedAgain(t *testing.T) {
	ql := newQueryLog(t)
	require.NoError(t, ql.LogQuery(context.Background(), service.QueryLogEntry{RawURL: "a.com"}))

	store := new(MockObjectStore)
	store.On("StatObject", mock.Anything, mock.Anything).
		Return(&storage.ObjectMetadata{ContentLength: int64(len("a.com\n"))}, nil)

	keys, err := NewLogArchiver(ql, store, "logs", zerolog.Nop()).Archive(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)

	remaining, err := filepath.Glob(filepath.Join(filepath.Dir(ql.Path()), "*"))
	require.NoError(t, err)
	assert.Empty(t, remaining)
	store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogArchiver_SizeMismatchIsUploaded(t *testing.T) {
	ql := newQueryLog(t)
	require.NoError(t, ql.LogQuery(context.Background(), service.QueryLogEntry{RawURL: "a.com"}))

	store := new(MockObjectStore)
	store.On("StatObject", mock.Anything, mock.Anything).
		Return(&storage.ObjectMetadata{ContentLength: 1}, nil)
	store.On("PutObject", mock.Anything, mock.Anything, archiveContentType).Return(nil)

	keys, err := NewLogArchiver(ql, store, "logs", zerolog.Nop()).Archive(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "a.com\n", store.bodies[keys[0]])
}

func TestLogArchiver_StatFailureKeepsFile(t *testing.T) {
	ql := newQueryLog(t)
	require.NoError(t, ql.LogQuery(context.Background(), service.QueryLogEntry{RawURL: "a.com"}))

	store := new(MockObjectStore)
	store.On("StatObject", mock.Anything, mock.Anything).Return(nil, errors.New("forbidden"))

	archiver := NewLogArchiver(ql, store, "logs", zerolog.Nop())
	_, err := archiver.Archive(context.Background())
	assert.Error(t, err)

	pending, err := archiver.pendingFiles()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything)
}
