package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the Mnemosyne [trace.Tracer] from the globally registered
// provider. All spans the service creates share one instrumentation scope
// with the metric instruments.
func Tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}

// StartSpan opens a child span of whatever span ctx carries, or a new root
// when it carries none, and returns the derived context. The caller owns
// span.End().
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the hex trace ID of the span in ctx, or "" when ctx
// carries no valid trace. It is the same value [Middleware] exposes to
// clients in the X-Correlation-ID response header.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default [slog.Logger] bound to the trace in ctx: while
// a span is active, its trace_id and span_id ride along on every record so
// log lines can be joined with traces after the fact. Without a span it is
// simply [slog.Default].
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
