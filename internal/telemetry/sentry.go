// Package telemetry reports scan failures to Sentry when a DSN is
// configured. Every function is safe to call when Sentry was never
// initialised.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

const serverName = "vulnviper"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool

	// BeforeSend, when set, sees every error event before it is sent and
	// may drop it by returning nil.
	BeforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// Init initializes Sentry and returns a function that flushes pending
// events. With an empty DSN it does nothing. An initialization failure is
// logged and the scanner continues without telemetry.
func Init(cfg Config, logger *slog.Logger) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serverName,
		BeforeSend:       cfg.BeforeSend,
	})
	if err != nil {
		logger.Warn("sentry: failed to initialize, continuing without telemetry", "error", err)
		return func() {}, nil
	}

	logger.Debug("sentry initialized", "environment", cfg.Environment)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// Span wraps sentry.Span. A nil inner span makes every method a no-op.
type Span struct {
	inner *sentry.Span
}

// StartSpan starts a child of the span in ctx, or a new transaction when
// there is none.
func StartSpan(ctx context.Context, op, description string) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(op)
	} else {
		span = sentry.StartSpan(ctx, op, sentry.WithTransactionName(op))
	}
	span.Description = description
	return span.Context(), &Span{inner: span}
}

// SetData attaches a key/value pair to the span.
func (s *Span) SetData(key string, value any) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// SetError marks the span as failed. Reporting err is left to the caller.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	s.inner.SetData("error", err.Error())
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// CaptureError sends err to Sentry using the hub in ctx when present.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// AddBreadcrumb records a breadcrumb on the current scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	crumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(crumb, nil)
		return
	}
	sentry.AddBreadcrumb(crumb)
}
