// Package render draws the HTML pages of the search site.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// TimestampLayout is the display format of the results generation time
const TimestampLayout = "January 02, 2006 - 03:04 PM UTC"

// Page names
const (
	PageIndex     = "index"
	PageSlowDown  = "slow_down"
	PageHelp      = "help"
	PageInterface = "interface"
	PageResults   = "results"
)

var pageNames = []string{PageIndex, PageSlowDown, PageHelp, PageInterface, PageResults}

// InterfacePage is the search form, optionally with an error message
type InterfacePage struct {
	Error  string
	Domain string
	URL    string
	Query  string
}

// ResultsPage is the data of a successful search
type ResultsPage struct {
	Domain      string
	Query       string
	Outcome     *domain.SearchOutcome
	Elapsed     string
	GeneratedAt string
}

// NewResultsPage formats a search outcome for display
func NewResultsPage(domainName, query string, outcome *domain.SearchOutcome, generatedAt time.Time) ResultsPage {
	page := ResultsPage{
		Domain:      domainName,
		Query:       query,
		Outcome:     outcome,
		GeneratedAt: FormatTimestamp(generatedAt),
	}
	if outcome != nil {
		page.Elapsed = FormatElapsed(outcome.ElapsedSeconds)
	}
	return page
}

// FormatTimestamp renders t in UTC using TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FormatElapsed renders seconds with two decimals
func FormatElapsed(seconds float64) string {
	return fmt.Sprintf("%.2f", seconds)
}

// Renderer holds the parsed page templates. It is safe for concurrent use.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded templates
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// MustNew is New that panics on a template error
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render writes page name with data to w
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page: %s", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Write renders into a buffer first so a template failure never leaves a
// half-written page behind.
func (r *Renderer) Write(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler serves the embedded static assets rooted at /static/
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
