package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartTickSpan creates a root span for one orchestrator tick.
func StartTickSpan(ctx context.Context) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "router.tick")
}

// StartExtractionSpan creates a child span for one window's capture-and-
// extract attempt.
func StartExtractionSpan(ctx context.Context, backend, bundleID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "extract."+backend,
		trace.WithAttributes(
			attribute.String("extract.backend", backend),
			attribute.String("extract.bundle_id", bundleID),
		),
	)
}

// StartIngestSpan creates a child span for one CapturePayload's trip
// through the Ingestion Core's socket client.
func StartIngestSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "ingest.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("ingest.source", source)),
	)
}

// InjectHeaders injects the current trace context (traceparent, tracestate)
// into the given HTTP request headers so the receiving service can
// continue the trace.
func InjectHeaders(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// SetWindowAttributes adds window-identity attributes to the current span.
func SetWindowAttributes(ctx context.Context, bundleID, appName string, windowID uint64) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("window.bundle_id", bundleID),
		attribute.String("window.app_name", appName),
		attribute.Int64("window.id", int64(windowID)),
	)
}

// SetIngestAttributes adds ingestion outcome attributes to the current span.
func SetIngestAttributes(ctx context.Context, action, docID string, chunkCount int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("ingest.action", action),
		attribute.String("ingest.doc_id", docID),
		attribute.Int("ingest.chunk_count", chunkCount),
	)
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
}
