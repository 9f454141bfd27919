// Package archive fetches capture listings from the Wayback Machine CDX index.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/cloo-solutions/archivesearch/internal/telemetry"
	"github.com/getsentry/sentry-go"
	"golang.org/x/time/rate"
)

const (
	// DefaultCDXEndpoint is the public Wayback Machine capture index
	DefaultCDXEndpoint = "https://web.archive.org/cdx/search/cdx"
	// DefaultTimeout bounds a single index request
	DefaultTimeout   = 120 * time.Second
	DefaultUserAgent = "archivesearch/1.0"

	cdxQuerySuffix = "/*&output=json&fl=timestamp,original,statuscode&filter=statuscode:200&collapse=urlkey"
)

// Config holds the archive client settings
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	UserAgent string
	// Rate is the number of outbound requests per second; zero disables limiting
	Rate  float64
	Burst int
}

// Client talks to the CDX index. It is safe for concurrent use.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client, filling unset fields with defaults
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultCDXEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "?"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// WithHTTPClient replaces the underlying HTTP client (for testing)
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// RequestURL builds the index query for a normalized domain
func (c *Client) RequestURL(domainName string) string {
	return c.endpoint + "?url=" + Quote(domainName) + cdxQuerySuffix
}

// FetchCaptures returns the raw index body for domainName.
// Failures are returned as domain errors describing the fetch outcome.
func (c *Client) FetchCaptures(ctx context.Context, domainName string) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "archive.fetch", telemetry.SpanAttributes{
		Domain:    domainName,
		Operation: "fetch_captures",
	})
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(domainName), nil)
	if err != nil {
		return nil, domain.NewArchiveNetworkError(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fetchErr := classifyTransportError(ctx, err)
		span.SetStatus(sentry.SpanStatusUnavailable)
		return nil, fetchErr
	}
	defer resp.Body.Close()

	span.SetTag("http.status_code", fmt.Sprintf("%d", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusServiceUnavailable:
		span.SetStatus(sentry.SpanStatusUnavailable)
		return nil, domain.ErrArchiveOffline
	case resp.StatusCode == http.StatusGatewayTimeout:
		span.SetStatus(sentry.SpanStatusDeadlineExceeded)
		return nil, domain.ErrArchiveTimeout
	default:
		span.SetStatus(sentry.SpanStatusUnknown)
		return nil, domain.NewArchiveStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	span.SetStatus(sentry.SpanStatusOK)
	return body, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrRequestTimeout
	}
	return domain.NewArchiveNetworkError(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Quote percent-encodes s for use in the url parameter. Letters, digits,
// "-._~" and "/" are kept; every other byte becomes %XX.
func Quote(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if shouldKeep(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0f])
	}
	return b.String()
}

func shouldKeep(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	case ch == '-', ch == '.', ch == '_', ch == '~', ch == '/':
		return true
	}
	return false
}
