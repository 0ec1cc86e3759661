// Package trace carries request correlation identifiers through a context so
// that outbound requests can propagate them as headers.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	traceIDKey     contextKey = "trace_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"

	// HeaderXRequestID is the standard header name for request correlation
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// IDFromContext returns the trace ID stored in ctx, if any
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceIDKey).(string)
	return id, ok && id != ""
}

// EnsureTraceID returns the trace ID from ctx or a new UUID
func EnsureTraceID(ctx context.Context) string {
	if id, ok := IDFromContext(ctx); ok {
		return id
	}
	return uuid.New().String()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns the traceparent for ctx. An explicit value set with
// WithTraceParent wins; otherwise a valid OpenTelemetry span context in ctx is
// formatted as a traceparent.
func ParentFromContext(ctx context.Context) (string, bool) {
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	sc := oteltrace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", false
	}
	return formatTraceParent(sc.TraceID(), sc.SpanID(), sc.TraceFlags()), true
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns a tracestate from context if present
func StateFromContext(ctx context.Context) (string, bool) {
	ts, ok := ctx.Value(traceStateKey).(string)
	return ts, ok && ts != ""
}

// GenerateTraceParent creates a sampled W3C traceparent with random IDs.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2)
func GenerateTraceParent() string {
	var traceID oteltrace.TraceID
	var spanID oteltrace.SpanID
	_, _ = crand.Read(traceID[:])
	_, _ = crand.Read(spanID[:])
	// all-zero IDs are invalid per the W3C spec
	if !traceID.IsValid() {
		traceID[len(traceID)-1] = 0x01
	}
	if !spanID.IsValid() {
		spanID[len(spanID)-1] = 0x01
	}
	return formatTraceParent(traceID, spanID, oteltrace.FlagsSampled)
}

func formatTraceParent(traceID oteltrace.TraceID, spanID oteltrace.SpanID, flags oteltrace.TraceFlags) string {
	return "00-" + hex.EncodeToString(traceID[:]) + "-" + hex.EncodeToString(spanID[:]) + "-" + flags.String()
}
