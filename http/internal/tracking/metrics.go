// Package tracking records OpenTelemetry metrics and spans for client sends.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "go-relay/http-client"

	// Metric names following OpenTelemetry HTTP client semantic conventions
	metricRequestDuration = "http.client.request.duration"
	metricRetries         = "http.client.retries"

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrErrorType          = "error.type"
	attrRetryAttempt       = "http.request.resend_count"
	attrURLFull            = "url.full"

	spanName = "http.client.send"
)

var durationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// Tracker owns the instruments of one connector
type Tracker struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	retries  metric.Int64Counter
}

// logMetricError logs a metric initialization error to stderr.
// Metric failures must not break sending.
func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize HTTP client metric %s: %v\n", name, err)
	}
}

// New creates a tracker. Nil providers fall back to the global ones.
func New(mp metric.MeterProvider, tp trace.TracerProvider) *Tracker {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	meter := mp.Meter(instrumentationName)

	t := &Tracker{tracer: tp.Tracer(instrumentationName)}

	var err error
	t.duration, err = meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of HTTP client request attempts"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	logMetricError(metricRequestDuration, err)

	t.retries, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of HTTP client retries scheduled"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)

	return t
}

// StartSend starts the span covering every attempt of one send
func (t *Tracker) StartSend(ctx context.Context, method, url string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrHTTPRequestMethod, method),
			attribute.String(attrURLFull, url),
		),
	)
}

// EndSend records the final outcome on span and ends it
func EndSend(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int(attrHTTPResponseStatus, status))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= 400:
		span.SetStatus(codes.Error, strconv.Itoa(status))
	}
	span.End()
}

// RecordAttempt records the duration of one attempt. errorType is empty for
// attempts that produced a response.
func (t *Tracker) RecordAttempt(ctx context.Context, method string, status int, errorType string, d time.Duration) {
	if t.duration == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(attrHTTPRequestMethod, method)}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrHTTPResponseStatus, status))
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}
	t.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRetry counts a scheduled retry and adds a span event for it
func (t *Tracker) RecordRetry(ctx context.Context, method string, attempt int, delay time.Duration) {
	trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(
		attribute.Int(attrRetryAttempt, attempt),
		attribute.Int64("retry.delay_ms", delay.Milliseconds()),
	))
	if t.retries == nil {
		return
	}
	t.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrHTTPRequestMethod, method),
		attribute.Int(attrRetryAttempt, attempt),
	))
}
