package tracer

import (
	"context"
	"log/slog"
	"time"
)

// Provider owns one tracer's lifetime for a service.
type Provider struct {
	serviceName string
	endpoint    string
	log         *slog.Logger
}

// New creates a Provider for serviceName. endpoint is stored on the
// Provider only: it is never dialed and does not appear on spans.
func New(serviceName string, endpoint string) (*Provider, error) {
	return &Provider{
		serviceName: serviceName,
		endpoint:    endpoint,
		log:         slog.Default().With("service", serviceName),
	}, nil
}

// Shutdown flushes any pending spans. The log-backed provider has nothing
// to flush, so this always succeeds.
func (p *Provider) Shutdown(ctx context.Context) error {
	return nil
}

// StartSpan starts a span named name as a child of ctx, using this
// provider's service-tagged logger.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	s := &span{name: name, start: time.Now(), log: p.log}
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartSpan starts a span on the package-default logger, for call sites
// that have no Provider reference at hand.
func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	s := &span{name: name, start: time.Now(), log: slog.Default()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// Span represents one traced operation.
type Span interface {
	End()
	SetAttribute(key string, value any)
	RecordError(err error)
}

type spanKey struct{}

// SpanFromContext returns the span most recently started on ctx, or, if
// none was started, a new span named "unknown" on the default logger.
func SpanFromContext(ctx context.Context) Span {
	if s, ok := ctx.Value(spanKey{}).(Span); ok {
		return s
	}
	return &span{name: "unknown", start: time.Now(), log: slog.Default()}
}

type span struct {
	name  string
	start time.Time
	attrs []any
	log   *slog.Logger
}

func (s *span) End() {
	args := append([]any{"span", s.name, "duration_ms", time.Since(s.start).Milliseconds()}, s.attrs...)
	s.log.Debug("span end", args...)
}

func (s *span) SetAttribute(key string, value any) {
	s.attrs = append(s.attrs, key, value)
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.log.Error("span error", "span", s.name, "error", err)
}
