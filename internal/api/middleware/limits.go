package middleware

import (
	"net/http"

	"github.com/cloo-solutions/archivesearch/internal/api"
)

// Limits bounds the size of a request
type Limits struct {
	// MaxBodyBytes caps the request body; zero disables the check
	MaxBodyBytes int64
	// MaxQueryBytes caps the raw query string; zero disables the check
	MaxQueryBytes int
}

// DefaultLimits fits a search form: no body and a url plus a few terms
var DefaultLimits = Limits{
	MaxBodyBytes:  64 * 1024,
	MaxQueryBytes: 4096,
}

// LimitRequest rejects oversized query strings with 414 and oversized
// bodies with 413 before the handler runs.
func LimitRequest(limits Limits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limits.MaxQueryBytes > 0 && len(r.URL.RawQuery) > limits.MaxQueryBytes {
				api.Error(w, http.StatusRequestURITooLong, "query string too long")
				return
			}

			if limits.MaxBodyBytes > 0 && r.Body != nil {
				if r.ContentLength > limits.MaxBodyBytes {
					api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBodyBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}
