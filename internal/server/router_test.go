package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/api/handlers"
	"github.com/cloo-solutions/archivesearch/internal/api/middleware"
	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/cloo-solutions/archivesearch/internal/render"
	"github.com/cloo-solutions/archivesearch/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchOutput), args.Error(1)
}

func newTestRouter(svc handlers.Searcher) http.Handler {
	logger := zerolog.Nop()
	return NewRouter(RouterConfig{
		Logger:        logger,
		VisitedGate:   middleware.NewVisitedGate("test-secret"),
		PageHandler:   handlers.NewPageHandler(svc, render.MustNew(), logger),
		SearchHandler: handlers.NewSearchHandler(svc, logger),
		Static:        render.StaticHandler(),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(new(MockSearcher))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"status":"ok"}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_VisitedGate(t *testing.T) {
	router := newTestRouter(new(MockSearcher))

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, first.Code)
	assert.Equal(t, "/slow_down", first.Header().Get("Location"))

	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "<form")
}

func TestRouter_Pages(t *testing.T) {
	router := newTestRouter(new(MockSearcher))

	for _, path := range []string{"/slow_down", "/help", "/static/js/no-bs-tooltips.js"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRouter_APISearch(t *testing.T) {
	svc := new(MockSearcher)
	router := newTestRouter(svc)

	svc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.URL == "example.com" && input.Query == "a b" && input.RequestID == "req-9"
	})).Return(&service.SearchOutput{
		Domain: "example.com",
		Outcome: &domain.SearchOutcome{
			Entries:  []domain.ResultEntry{},
			FlatURLs: []string{},
		},
		GeneratedAt: time.Now().UTC(),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search?url=example.com&query=a+b", nil)
	req.Header.Set("X-Request-ID", "req-9")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "example.com", resp["data"]["domain"])
	svc.AssertExpectations(t)
}

func TestRouter_HTMLSearch(t *testing.T) {
	svc := new(MockSearcher)
	router := newTestRouter(svc)

	svc.On("Search", mock.Anything, mock.Anything).Return(nil, domain.ErrURLRequired)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a URL to search.")
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(new(MockSearcher))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/search", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
