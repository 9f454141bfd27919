package service

import (
	"testing"

	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"https scheme and trailing slash", "https://Example.com/path/", "Example.com/path"},
		{"http scheme", "http://example.com", "example.com"},
		{"bare domain", "example.com", "example.com"},
		{"surrounding whitespace", "  \texample.com/a \n", "example.com/a"},
		{"only one trailing slash stripped", "example.com//", "example.com/"},
		{"uppercase scheme kept", "HTTPS://example.com", "HTTPS://example.com"},
		{"other scheme kept", "ftp://example.com", "ftp://example.com"},
		{"scheme stripped once", "https://http://example.com", "http://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeURL_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected error
	}{
		{"empty", "", domain.ErrURLEmpty},
		{"whitespace only", "   ", domain.ErrURLEmpty},
		{"scheme only", "https://", domain.ErrURLEmpty},
		{"single slash after scheme", "http:///", domain.ErrURLEmpty},
		{"inner spaces", "no spaces ok", domain.ErrURLContainsWhitespace},
		{"inner tab", "example.com/a\tb", domain.ErrURLContainsWhitespace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.raw)
			assert.Empty(t, got)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
