package domain

// CaptureRecord is one historical snapshot returned by the archive index.
// Timestamp is the 14-digit index timestamp and is not otherwise validated.
type CaptureRecord struct {
	Timestamp   string
	OriginalURL string
}

// QueryTerm is a single search token. Phrase terms keep their quote
// characters and internal spaces.
type QueryTerm struct {
	Text     string
	IsPhrase bool
}

// NewQueryTerm creates a literal (non-phrase) term
func NewQueryTerm(text string) QueryTerm {
	return QueryTerm{Text: text}
}

// NewPhraseTerm creates a quoted phrase term
func NewPhraseTerm(text string) QueryTerm {
	return QueryTerm{Text: text, IsPhrase: true}
}

// Parity drives alternating row presentation
type Parity string

const (
	ParityEven Parity = "even"
	ParityOdd  Parity = "odd"
)

// ParityFor returns the parity of a zero-based record index
func ParityFor(index int) Parity {
	if index%2 == 0 {
		return ParityEven
	}
	return ParityOdd
}

// ResultEntry is a single numbered row of a search result list
type ResultEntry struct {
	Number     int    `json:"number"`
	DisplayURL string `json:"display_url"`
	RawURL     string `json:"raw_url"`
	Parity     Parity `json:"parity"`
}

// SearchOutcome is everything the presentation layer needs for one search.
type SearchOutcome struct {
	Entries        []ResultEntry `json:"entries"`
	FlatURLs       []string      `json:"flat_urls"`
	MatchedCount   int           `json:"matched_count"`
	QueryDisplay   *string       `json:"query_display,omitempty"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
}

// HasQuery reports whether the outcome was filtered by search terms
func (o *SearchOutcome) HasQuery() bool {
	return o != nil && o.QueryDisplay != nil
}
