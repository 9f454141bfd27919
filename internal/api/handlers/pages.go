package handlers

import (
	"net/http"

	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/cloo-solutions/archivesearch/internal/render"
	"github.com/rs/zerolog"
)

// PageRenderer writes an HTML page
type PageRenderer interface {
	Write(w http.ResponseWriter, status int, name string, data any) error
}

// PageHandler serves the HTML pages of the site
type PageHandler struct {
	svc      Searcher
	renderer PageRenderer
	logger   zerolog.Logger
}

func NewPageHandler(svc Searcher, renderer PageRenderer, logger zerolog.Logger) *PageHandler {
	return &PageHandler{svc: svc, renderer: renderer, logger: logger}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, render.PageIndex, nil)
}

func (h *PageHandler) SlowDown(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, render.PageSlowDown, nil)
}

func (h *PageHandler) Help(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, render.PageHelp, nil)
}

// Search handles GET /search?url=&query= and renders results or the
// search form with the failure message. Failures still answer 200 so the
// form page behaves like any other page in the browser.
func (h *PageHandler) Search(w http.ResponseWriter, r *http.Request) {
	input := searchInputFromRequest(r)

	output, err := h.svc.Search(r.Context(), input)
	if err != nil {
		page := render.InterfacePage{
			Error: domain.UserMessage(err),
			URL:   input.URL,
			Query: input.Query,
		}
		if output != nil {
			page.Domain = output.Domain
		}
		reportSearchError(r.Context(), h.logger, input, page.Domain, err)
		h.write(w, http.StatusOK, render.PageInterface, page)
		return
	}

	page := render.NewResultsPage(output.Domain, input.Query, output.Outcome, output.GeneratedAt)
	h.write(w, http.StatusOK, render.PageResults, page)
}

func (h *PageHandler) write(w http.ResponseWriter, status int, name string, data any) {
	if err := h.renderer.Write(w, status, name, data); err != nil {
		h.logger.Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
