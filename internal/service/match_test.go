package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(n int) []domain.CaptureRecord {
	records := make([]domain.CaptureRecord, n)
	for i := range records {
		records[i] = domain.CaptureRecord{
			Timestamp:   fmt.Sprintf("2020010100000%d", i),
			OriginalURL: fmt.Sprintf("http://a.com/page%d", i),
		}
	}
	return records
}

func TestArchiveLinks(t *testing.T) {
	links := NewArchiveLinks("")
	assert.Equal(t, "https://web.archive.org/web/20200101000000/http://a.com/x", links.Toolbar("20200101000000", "http://a.com/x"))
	assert.Equal(t, "https://web.archive.org/web/20200101000000id_/http://a.com/x", links.Raw("20200101000000", "http://a.com/x"))

	custom := NewArchiveLinks("http://mirror.local/web")
	assert.Equal(t, "http://mirror.local/web/1/x", custom.Toolbar("1", "x"))
}

func TestMatch_NoTerms(t *testing.T) {
	records := sampleRecords(5)

	outcome := Match(records, nil, NewArchiveLinks(""), 1500*time.Millisecond)

	assert.Equal(t, 5, outcome.MatchedCount)
	require.Len(t, outcome.Entries, 5)
	require.Len(t, outcome.FlatURLs, 5)
	for k, entry := range outcome.Entries {
		assert.Equal(t, k+1, entry.Number)
		assert.Equal(t, domain.ParityFor(k), entry.Parity)
		assert.Equal(t, outcome.FlatURLs[k], entry.DisplayURL)
	}
	assert.Nil(t, outcome.QueryDisplay)
	assert.InDelta(t, 1.5, outcome.ElapsedSeconds, 1e-9)
}

func TestMatch_EmptyTermsBehaveAsAbsent(t *testing.T) {
	records := sampleRecords(3)

	outcome := Match(records, []domain.QueryTerm{}, NewArchiveLinks(""), 0)

	assert.Equal(t, 3, outcome.MatchedCount)
	assert.Len(t, outcome.Entries, 3)
	assert.Nil(t, outcome.QueryDisplay)
}

func TestMatch_WithTerms(t *testing.T) {
	records := []domain.CaptureRecord{
		{Timestamp: "1", OriginalURL: "http://a.com/foo"},
		{Timestamp: "2", OriginalURL: "http://a.com/bar"},
	}

	outcome := Match(records, []domain.QueryTerm{{Text: "foo"}}, NewArchiveLinks(""), 0)

	require.Len(t, outcome.Entries, 1)
	assert.Equal(t, 1, outcome.Entries[0].Number)
	assert.Contains(t, outcome.Entries[0].RawURL, "a.com/foo")
	assert.Equal(t, 1, outcome.MatchedCount)
	require.NotNil(t, outcome.QueryDisplay)
	assert.Equal(t, "foo", *outcome.QueryDisplay)
}

func TestMatch_DenseNumberingKeepsPositionalParity(t *testing.T) {
	records := []domain.CaptureRecord{
		{Timestamp: "1", OriginalURL: "http://a.com/skip"},
		{Timestamp: "2", OriginalURL: "http://a.com/hit-one"},
		{Timestamp: "3", OriginalURL: "http://a.com/skip"},
		{Timestamp: "4", OriginalURL: "http://a.com/hit-two"},
	}

	outcome := Match(records, []domain.QueryTerm{{Text: "hit"}}, NewArchiveLinks(""), 0)

	require.Len(t, outcome.Entries, 2)
	assert.Equal(t, 1, outcome.Entries[0].Number)
	assert.Equal(t, domain.ParityOdd, outcome.Entries[0].Parity)
	assert.Equal(t, 2, outcome.Entries[1].Number)
	assert.Equal(t, domain.ParityOdd, outcome.Entries[1].Parity)
	assert.Equal(t, []string{
		"https://web.archive.org/web/2/http://a.com/hit-one",
		"https://web.archive.org/web/4/http://a.com/hit-two",
	}, outcome.FlatURLs)
}

func TestMatch_CaseInsensitive(t *testing.T) {
	records := []domain.CaptureRecord{{Timestamp: "1", OriginalURL: "http://a.com/foo"}}

	outcome := Match(records, []domain.QueryTerm{{Text: "FOO"}}, NewArchiveLinks(""), 0)
	assert.Equal(t, 1, outcome.MatchedCount)

	records = []domain.CaptureRecord{{Timestamp: "1", OriginalURL: "http://a.com/FooBar"}}
	outcome = Match(records, []domain.QueryTerm{{Text: "foobar"}}, NewArchiveLinks(""), 0)
	assert.Equal(t, 1, outcome.MatchedCount)
}

func TestMatch_FoldsNonASCIICase(t *testing.T) {
	records := []domain.CaptureRecord{{Timestamp: "1", OriginalURL: "http://a.com/Café"}}

	outcome := Match(records, []domain.QueryTerm{{Text: "CAFÉ"}}, NewArchiveLinks(""), 0)
	assert.Equal(t, 1, outcome.MatchedCount)
}

func TestMatch_PhraseQuotesStripped(t *testing.T) {
	records := []domain.CaptureRecord{
		{Timestamp: "1", OriginalURL: "http://a.com/hello world"},
		{Timestamp: "2", OriginalURL: "http://a.com/hello"},
	}

	terms := Tokenize("'hello world'")
	outcome := Match(records, terms, NewArchiveLinks(""), 0)

	require.Len(t, outcome.Entries, 1)
	assert.Contains(t, outcome.Entries[0].DisplayURL, "hello world")
	require.NotNil(t, outcome.QueryDisplay)
	assert.Equal(t, "'hello world'", *outcome.QueryDisplay)
}

func TestMatch_OnlyOneQuoteStrippedPerSide(t *testing.T) {
	records := []domain.CaptureRecord{
		{Timestamp: "1", OriginalURL: "http://a.com/'x'"},
		{Timestamp: "2", OriginalURL: "http://a.com/x"},
	}

	outcome := Match(records, []domain.QueryTerm{{Text: "''x''", IsPhrase: true}}, NewArchiveLinks(""), 0)

	require.Len(t, outcome.Entries, 1)
	assert.Equal(t, "https://web.archive.org/web/1/http://a.com/'x'", outcome.Entries[0].DisplayURL)
}

func TestMatch_AnyTermMatchesOnce(t *testing.T) {
	records := []domain.CaptureRecord{
		{Timestamp: "1", OriginalURL: "http://a.com/foo/bar"},
		{Timestamp: "2", OriginalURL: "http://a.com/baz"},
		{Timestamp: "3", OriginalURL: "http://a.com/bar"},
	}

	terms := []domain.QueryTerm{{Text: "foo"}, {Text: "bar"}}
	outcome := Match(records, terms, NewArchiveLinks(""), 0)

	require.Len(t, outcome.Entries, 2)
	assert.Equal(t, 2, outcome.MatchedCount)
	assert.Equal(t, 1, outcome.Entries[0].Number)
	assert.Equal(t, 2, outcome.Entries[1].Number)
	assert.Equal(t, "foo bar", *outcome.QueryDisplay)
}

func TestMatch_NoMatches(t *testing.T) {
	outcome := Match(sampleRecords(3), []domain.QueryTerm{{Text: "zzz"}}, NewArchiveLinks(""), 0)

	assert.Equal(t, 0, outcome.MatchedCount)
	assert.Empty(t, outcome.Entries)
	assert.Empty(t, outcome.FlatURLs)
	require.NotNil(t, outcome.QueryDisplay)
}

func TestMatch_EmptyRecords(t *testing.T) {
	for _, terms := range [][]domain.QueryTerm{nil, {{Text: "foo"}}} {
		outcome := Match(nil, terms, NewArchiveLinks(""), 0)
		require.NotNil(t, outcome)
		assert.Equal(t, 0, outcome.MatchedCount)
		assert.NotNil(t, outcome.Entries)
		assert.Empty(t, outcome.Entries)
		assert.NotNil(t, outcome.FlatURLs)
		assert.Empty(t, outcome.FlatURLs)
	}
}

func TestMatch_Idempotent(t *testing.T) {
	records := sampleRecords(6)
	terms := Tokenize("page1 'page4'")

	first := Match(records, terms, NewArchiveLinks(""), time.Second)
	second := Match(records, terms, NewArchiveLinks(""), time.Second)

	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.FlatURLs, second.FlatURLs)
	assert.Equal(t, first.MatchedCount, second.MatchedCount)
}

func TestMatch_LengthInvariant(t *testing.T) {
	records := sampleRecords(9)
	for _, query := range []string{"", "page", "page3", "'page' 7", "nothing"} {
		outcome := Match(records, Tokenize(query), NewArchiveLinks(""), 0)
		assert.Equal(t, len(outcome.Entries), len(outcome.FlatURLs), query)
		assert.Equal(t, len(outcome.Entries), outcome.MatchedCount, query)
	}
}
