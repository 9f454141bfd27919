package service

import (
	"strings"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/domain"
)

// DefaultArchiveBaseURL is the Wayback Machine prefix for archived pages
const DefaultArchiveBaseURL = "https://web.archive.org/web/"

// noToolbarMarker suffixes the timestamp segment to request the raw page
const noToolbarMarker = "id_"

// ArchiveLinks builds archived-page URLs for a capture
type ArchiveLinks struct {
	Base string
}

// NewArchiveLinks returns links rooted at base, falling back to the Wayback Machine
func NewArchiveLinks(base string) ArchiveLinks {
	if base == "" {
		base = DefaultArchiveBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return ArchiveLinks{Base: base}
}

// Toolbar returns the archived-page URL rendered with the archive toolbar
func (l ArchiveLinks) Toolbar(timestamp, originalURL string) string {
	return l.Base + timestamp + "/" + originalURL
}

// Raw returns the archived-page URL without the archive toolbar
func (l ArchiveLinks) Raw(timestamp, originalURL string) string {
	return l.Base + timestamp + noToolbarMarker + "/" + originalURL
}

// Match filters records against terms and numbers the survivors.
//
// Without terms every record matches and keeps its 1-based position as its
// number. With terms a record matches when any term occurs in its original
// URL, ignoring case, and numbers are dense over matches only.
// Record order is never changed.
func Match(records []domain.CaptureRecord, terms []domain.QueryTerm, links ArchiveLinks, elapsed time.Duration) *domain.SearchOutcome {
	needles := make([]string, len(terms))
	for i, term := range terms {
		needles[i] = matchNeedle(term)
	}
	filtered := len(terms) > 0

	outcome := &domain.SearchOutcome{
		Entries:        []domain.ResultEntry{},
		FlatURLs:       []string{},
		ElapsedSeconds: elapsed.Seconds(),
	}

	matched := 0
	for i, record := range records {
		number := i + 1
		if filtered {
			if !containsAny(strings.ToLower(record.OriginalURL), needles) {
				continue
			}
			matched++
			number = matched
		}

		displayURL := links.Toolbar(record.Timestamp, record.OriginalURL)
		outcome.Entries = append(outcome.Entries, domain.ResultEntry{
			Number:     number,
			DisplayURL: displayURL,
			RawURL:     links.Raw(record.Timestamp, record.OriginalURL),
			Parity:     domain.ParityFor(i),
		})
		outcome.FlatURLs = append(outcome.FlatURLs, displayURL)
	}

	if filtered {
		outcome.MatchedCount = matched
		display := JoinTerms(terms)
		outcome.QueryDisplay = &display
	} else {
		outcome.MatchedCount = len(records)
	}

	return outcome
}

// matchNeedle lower-cases a term and strips at most one quote from each end
func matchNeedle(term domain.QueryTerm) string {
	needle := strings.ToLower(term.Text)
	needle = strings.TrimPrefix(needle, phraseQuote)
	needle = strings.TrimSuffix(needle, phraseQuote)
	return needle
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
