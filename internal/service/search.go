package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/cloo-solutions/archivesearch/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ArchiveFetcher retrieves the raw CDX payload for a normalized domain
type ArchiveFetcher interface {
	FetchCaptures(ctx context.Context, domain string) ([]byte, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// SearchInput holds the parameters of one search request
type SearchInput struct {
	URL       string
	Query     string
	RequestID string
}

// SearchOutput is the result handed to the presentation layer.
// Domain is set as soon as normalization succeeds, so it is also
// available next to fetch and no-results errors.
type SearchOutput struct {
	Domain      string
	Outcome     *domain.SearchOutcome
	GeneratedAt time.Time
}

// SearchService runs the archive search pipeline:
// normalize, fetch, parse, tokenize, match.
type SearchService struct {
	fetcher  ArchiveFetcher
	queryLog QueryLogger
	links    ArchiveLinks
	uuidGen  UUIDGenerator
	now      func() time.Time
	logger   zerolog.Logger
}

// NewSearchService creates a SearchService. queryLog may be nil.
func NewSearchService(fetcher ArchiveFetcher, queryLog QueryLogger, links ArchiveLinks) *SearchService {
	return &SearchService{
		fetcher:  fetcher,
		queryLog: queryLog,
		links:    links,
		uuidGen:  &DefaultUUIDGenerator{},
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
}

// WithLogger sets the logger used for query log failures
func (s *SearchService) WithLogger(logger zerolog.Logger) *SearchService {
	s.logger = logger
	return s
}

// Search runs one search. No partial outcome is returned with an error.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		RequestID: input.RequestID,
		Operation: "search",
	})
	defer span.End()

	start := s.now()

	if input.URL == "" {
		return nil, domain.ErrURLRequired
	}

	s.logQuery(ctx, input, start)

	normalized, err := NormalizeURL(input.URL)
	if err != nil {
		return nil, domain.NewInvalidURLError(err)
	}
	output := &SearchOutput{Domain: normalized}
	span.SetTag("domain", normalized)

	payload, err := s.fetcher.FetchCaptures(ctx, normalized)
	if err != nil {
		span.SetError(err)
		return output, err
	}

	rows, err := DecodeRows(payload)
	if err != nil {
		span.SetError(err)
		return output, err
	}
	if len(rows) == 0 {
		return output, domain.ErrNoResultsForDomain
	}

	records := ParseRecords(rows)
	if len(records) == 0 {
		return output, domain.ErrNoResults
	}

	var terms []domain.QueryTerm
	if strings.TrimSpace(input.Query) != "" {
		terms = Tokenize(input.Query)
	}

	elapsed := s.now().Sub(start)
	output.Outcome = Match(records, terms, s.links, elapsed)
	output.GeneratedAt = s.now().UTC()

	return output, nil
}

func (s *SearchService) logQuery(ctx context.Context, input SearchInput, at time.Time) {
	if s.queryLog == nil {
		return
	}
	entry := QueryLogEntry{
		ID:        s.uuidGen.NewString(),
		RawURL:    input.URL,
		Query:     input.Query,
		RequestID: input.RequestID,
		CreatedAt: at.UTC(),
	}
	if err := s.queryLog.LogQuery(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("request_id", input.RequestID).Msg("query log append failed")
	}
}
