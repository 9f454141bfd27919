// Package telemetry wraps Sentry tracing for searches, archive fetches and
// background jobs.
package telemetry

import (
	"context"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

const (
	serverName   = "archivesearchd"
	flushTimeout = 5 * time.Second
)

// untraced transactions are never sampled
var untraced = map[string]bool{
	"GET /health":    true,
	"GET /static/*":  true,
	"GET /slow_down": true,
}

type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client. The returned func flushes
// buffered events and is safe to call when DSN is empty.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 || cfg.TracesSampleRate > 1 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       serverName,
		Debug:            cfg.Debug,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    newSampler(cfg.TracesSampleRate),
	})
	if err != nil {
		return func() {}, err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Float64("sample_rate", cfg.TracesSampleRate).
		Msg("sentry tracing enabled")

	return func() { sentry.Flush(flushTimeout) }, nil
}

func newSampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span == nil {
			return rate
		}
		if untraced[ctx.Span.Name] {
			return 0
		}
		if ctx.Parent != nil {
			if ctx.Parent.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes are the tags every span in this service may carry
type SpanAttributes struct {
	Domain    string
	RequestID string
	Operation string
}

// Span is a nil-safe handle on a Sentry span
type Span struct {
	inner *sentry.Span
}

// StartSpan starts a child of the span in ctx, or a new transaction when
// there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	s := &Span{inner: span}
	s.SetTag("domain", attrs.Domain)
	s.SetTag("request_id", attrs.RequestID)
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), s
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

func (s *Span) SetStatus(status sentry.SpanStatus) {
	if s.inner != nil {
		s.inner.Status = status
	}
}

// SetTag ignores empty values
func (s *Span) SetTag(key, value string) {
	if s.inner != nil && value != "" {
		s.inner.SetTag(key, value)
	}
}

// SetError sets the span status from err. Reporting the error itself is
// left to the caller.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = ErrorStatus(err)
	s.inner.SetTag("error.code", domain.CodeOf(err))
}

// ErrorStatus maps an error to the span status that describes it
func ErrorStatus(err error) sentry.SpanStatus {
	switch domain.CodeOf(err) {
	case domain.ErrCodeValidation:
		return sentry.SpanStatusInvalidArgument
	case domain.ErrCodeNoResults:
		return sentry.SpanStatusNotFound
	case domain.ErrCodeArchiveOffline, domain.ErrCodeArchiveUnexpectedStatus, domain.ErrCodeArchiveNetwork:
		return sentry.SpanStatusUnavailable
	case domain.ErrCodeArchiveTimeout:
		return sentry.SpanStatusDeadlineExceeded
	default:
		return sentry.SpanStatusInternalError
	}
}

// CaptureError reports err on the request hub when ctx has one
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
