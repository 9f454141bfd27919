package service

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/archivesearch/internal/domain"
)

// NormalizeURL canonicalizes a user-supplied URL or domain into the bare
// host+path form the archive index expects.
func NormalizeURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(value, "https://"):
		value = strings.TrimPrefix(value, "https://")
	case strings.HasPrefix(value, "http://"):
		value = strings.TrimPrefix(value, "http://")
	}

	value = strings.TrimSuffix(value, "/")

	if value == "" {
		return "", domain.ErrURLEmpty
	}
	if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		return "", domain.ErrURLContainsWhitespace
	}

	return value, nil
}
