package server

import (
	"net/http"

	"github.com/cloo-solutions/archivesearch/internal/api"
	"github.com/cloo-solutions/archivesearch/internal/api/handlers"
	"github.com/cloo-solutions/archivesearch/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Logger        zerolog.Logger
	VisitedGate   *middleware.VisitedGate
	PageHandler   *handlers.PageHandler
	SearchHandler *handlers.SearchHandler
	Static        http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.LimitRequest(middleware.DefaultLimits))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Static != nil {
		r.Handle("/static/*", cfg.Static)
	}

	r.With(middleware.RequireVisit(cfg.VisitedGate, "/slow_down")).Get("/", cfg.PageHandler.Index)
	r.Get("/slow_down", cfg.PageHandler.SlowDown)
	r.Get("/help", cfg.PageHandler.Help)
	r.Get("/search", cfg.PageHandler.Search)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", cfg.SearchHandler.Search)
	})

	return r
}
