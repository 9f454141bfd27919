//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/api/handlers"
	"github.com/cloo-solutions/archivesearch/internal/api/middleware"
	"github.com/cloo-solutions/archivesearch/internal/archive"
	"github.com/cloo-solutions/archivesearch/internal/render"
	"github.com/cloo-solutions/archivesearch/internal/repository"
	"github.com/cloo-solutions/archivesearch/internal/server"
	"github.com/cloo-solutions/archivesearch/internal/service"
	"github.com/cloo-solutions/archivesearch/internal/storage"
	"github.com/cloo-solutions/archivesearch/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cdxPayload is what the fake index returns for example.com
const cdxPayload = `[["timestamp","original","statuscode"],
["20200101000000","http://example.com/","200"],
["20200202000000","http://example.com/blog/hello","200"],
["20200303000000","http://example.com/about-us","200"],
["20200404000000","http://example.com/Blog/archive","200"]]`

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	S3Client     *storage.S3Client
	QueryLog     *service.FileQueryLog
	QueryLogRepo *repository.QueryLogRepository
	CDX          *FakeCDX
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// FakeCDX serves canned index responses keyed by the url parameter
type FakeCDX struct {
	server   *httptest.Server
	requests atomic.Int64
	// Offline makes every request answer 503
	Offline atomic.Bool
}

func newFakeCDX() *FakeCDX {
	f := &FakeCDX{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if f.Offline.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Query().Get("url") {
		case "example.com/*":
			w.Write([]byte(cdxPayload))
		default:
			w.Write([]byte("[]"))
		}
	}))
	return f
}

// URL returns the fake index endpoint
func (f *FakeCDX) URL() string {
	return f.server.URL + "/cdx/search/cdx"
}

// Requests returns how many index requests were served
func (f *FakeCDX) Requests() int64 {
	return f.requests.Load()
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "test-query-logs",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	queryLog, err := service.NewFileQueryLog(filepath.Join(t.TempDir(), "logs", "queries.txt"))
	if err != nil {
		t.Fatalf("failed to create query log: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		S3Client:     s3Client,
		QueryLog:     queryLog,
		QueryLogRepo: repository.NewQueryLogRepository(pool),
		CDX:          newFakeCDX(),
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
	env.ServerURL, env.ServerCloser = env.startServer(port)

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.CDX != nil {
		e.CDX.server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries compiles the archivesearch CLI
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "archivesearch-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "archivesearch"), "./cmd/archivesearch")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build archivesearch: %v\n%s", err, out)
	}
}

// RunCLI runs the archivesearch CLI against the test server
func (e *E2ETestEnv) RunCLI(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "archivesearch"), args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("ARCHIVESEARCH_API_URL=%s", e.ServerURL),
		fmt.Sprintf("ARCHIVESEARCH_CDX_ENDPOINT=%s", e.CDX.URL()),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", e.T.TempDir()),
		fmt.Sprintf("HOME=%s", e.T.TempDir()),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`
	Domain     string          `json:"domain,omitempty"`
}

// SearchAPI calls /api/search and decodes the envelope whatever the status
func (e *E2ETestEnv) SearchAPI(rawURL, query string) (*APIResponse, error) {
	params := url.Values{}
	params.Set("url", rawURL)
	if query != "" {
		params.Set("query", query)
	}

	resp, err := e.HTTPClient.Get(e.ServerURL + "/api/search?" + params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (%d): %s", resp.StatusCode, body)
	}
	return apiResp, nil
}

// GetPage fetches an HTML page without following redirects
func (e *E2ETestEnv) GetPage(path string, cookies ...*http.Cookie) (*http.Response, string, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return nil, "", err
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp, string(body), err
}

func (e *E2ETestEnv) startServer(port int) (string, func()) {
	fetcher := archive.NewClient(archive.Config{
		Endpoint: e.CDX.URL(),
		Timeout:  10 * time.Second,
	})
	searchSvc := service.NewSearchService(
		fetcher,
		service.MultiQueryLog{e.QueryLog, e.QueryLogRepo},
		service.NewArchiveLinks(""),
	)

	logger := zerolog.Nop()
	router := server.NewRouter(server.RouterConfig{
		Logger:        logger,
		VisitedGate:   middleware.NewVisitedGate("e2e-secret"),
		PageHandler:   handlers.NewPageHandler(searchSvc, render.MustNew(), logger),
		SearchHandler: handlers.NewSearchHandler(searchSvc, logger),
		Static:        render.StaticHandler(),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
