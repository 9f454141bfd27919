package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/api"
	"github.com/cloo-solutions/archivesearch/internal/api/middleware"
	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/cloo-solutions/archivesearch/internal/render"
	"github.com/cloo-solutions/archivesearch/internal/service"
	"github.com/cloo-solutions/archivesearch/internal/telemetry"
	"github.com/rs/zerolog"
)

// Searcher runs the archive search pipeline
type Searcher interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

type SearchHandler struct {
	svc    Searcher
	logger zerolog.Logger
}

func NewSearchHandler(svc Searcher, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, logger: logger}
}

// SearchResponse is the JSON body of a successful API search
type SearchResponse struct {
	Domain string `json:"domain"`
	domain.SearchOutcome
	GeneratedAt        time.Time `json:"generated_at"`
	GeneratedAtDisplay string    `json:"generated_at_display"`
}

// NewSearchResponse flattens a pipeline result for JSON encoding
func NewSearchResponse(output *service.SearchOutput) SearchResponse {
	resp := SearchResponse{
		Domain:             output.Domain,
		GeneratedAt:        output.GeneratedAt,
		GeneratedAtDisplay: render.FormatTimestamp(output.GeneratedAt),
	}
	if output.Outcome != nil {
		resp.SearchOutcome = *output.Outcome
	}
	return resp
}

// Search handles GET /api/search?url=&query=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	input := searchInputFromRequest(r)

	output, err := h.svc.Search(r.Context(), input)
	if err != nil {
		domainName := ""
		if output != nil {
			domainName = output.Domain
		}
		reportSearchError(r.Context(), h.logger, input, domainName, err)
		api.HandleError(w, err, domainName)
		return
	}

	api.Success(w, http.StatusOK, NewSearchResponse(output))
}

func searchInputFromRequest(r *http.Request) service.SearchInput {
	q := r.URL.Query()
	return service.SearchInput{
		URL:       q.Get("url"),
		Query:     q.Get("query"),
		RequestID: middleware.GetRequestID(r.Context()),
	}
}

// reportSearchError logs a failed search. Gateway and internal failures are
// also sent to Sentry; input and empty-result errors are expected traffic.
func reportSearchError(ctx context.Context, logger zerolog.Logger, input service.SearchInput, domainName string, err error) {
	status := api.DomainErrorToHTTP(err)

	event := logger.Info()
	if domain.IsNoResults(err) {
		event = logger.Debug()
	}
	if status >= http.StatusInternalServerError {
		event = logger.Error()
		telemetry.CaptureError(ctx, err)
	}

	event.Err(err).
		Str("request_id", input.RequestID).
		Str("domain", domainName).
		Str("code", domain.CodeOf(err)).
		Int("status", status).
		Msg("search failed")
}
