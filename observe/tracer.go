package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// TaskMeta identifies a proxied task invocation for telemetry purposes.
type TaskMeta struct {
	Name    string // Cache namespace (required)
	Task    string // Task name, when the task declares one (optional)
	Version string // Fingerprint version tag (optional)
	Many    bool   // Cardinality mode of the invocation
}

// SpanName returns the deterministic span name for this invocation.
// Format: cache.exec.<name>.<task> or cache.exec.<name>
func (m TaskMeta) SpanName() string {
	if m.Task != "" {
		return "cache.exec." + m.Name + "." + m.Task
	}
	return "cache.exec." + m.Name
}

// Tracer wraps OpenTelemetry tracing with cache-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a proxied task execution.
	StartSpan(ctx context.Context, meta TaskMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with cache metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta TaskMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.name", meta.Name),
		attribute.Bool("cache.many", meta.Many),
		attribute.Bool("cache.error", false), // Updated in EndSpan on error
	}
	if meta.Task != "" {
		attrs = append(attrs, attribute.String("cache.task", meta.Task))
	}
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("cache.version", meta.Version))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer that records nothing.
func NopTracer() Tracer {
	return &nopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

type nopTracer struct {
	noop trace.Tracer
}

func (t *nopTracer) StartSpan(ctx context.Context, meta TaskMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *nopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
