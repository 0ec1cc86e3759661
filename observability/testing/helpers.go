// Package testing provides in-memory OpenTelemetry providers and assertions
// for connector instrumentation tests.
//
//	mp := obtest.NewTestMeterProvider()
//	tp := obtest.NewTestTraceProvider()
//	conn, _ := http.NewBuilder(log).WithMeterProvider(mp).WithTracerProvider(tp).Build()
//	...
//	rm := mp.Collect(t)
//	obtest.AssertMetricExists(t, rm, "http.client.request.duration")
package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const metricNotFoundErrMsg = "metric %s not found"

// TestTraceProvider records spans synchronously in memory.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider backed by an in-memory exporter.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// Spans returns a collector over the spans recorded so far.
func (tp *TestTraceProvider) Spans(t *testing.T) *SpanCollector {
	t.Helper()
	return NewSpanCollector(t, tp.Exporter)
}

// TestMeterProvider collects metrics on demand through a manual reader.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider with a manual reader.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics recorded so far.
func (mp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, mp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// NewTestProviders creates both providers and shuts them down when t ends.
func NewTestProviders(t *testing.T) (*TestTraceProvider, *TestMeterProvider) {
	t.Helper()
	tp := NewTestTraceProvider()
	mp := NewTestMeterProvider()
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return tp, mp
}

// SpanCollector filters and asserts on captured spans.
type SpanCollector struct {
	t     *testing.T
	spans tracetest.SpanStubs
}

// NewSpanCollector creates a span collector from an in-memory exporter.
func NewSpanCollector(t *testing.T, exporter *tracetest.InMemoryExporter) *SpanCollector {
	t.Helper()
	return &SpanCollector{t: t, spans: exporter.GetSpans()}
}

// Len returns the number of collected spans.
func (sc *SpanCollector) Len() int {
	return len(sc.spans)
}

// WithName keeps the spans named name.
func (sc *SpanCollector) WithName(name string) *SpanCollector {
	filtered := make(tracetest.SpanStubs, 0, len(sc.spans))
	for i := range sc.spans {
		if sc.spans[i].Name == name {
			filtered = append(filtered, sc.spans[i])
		}
	}
	return &SpanCollector{t: sc.t, spans: filtered}
}

// First returns the first span, failing the test when there is none.
func (sc *SpanCollector) First() tracetest.SpanStub {
	sc.t.Helper()
	require.NotEmpty(sc.t, sc.spans, "no spans in collection")
	return sc.spans[0]
}

// AssertCount asserts the number of collected spans.
func (sc *SpanCollector) AssertCount(expected int) *SpanCollector {
	sc.t.Helper()
	assert.Len(sc.t, sc.spans, expected, "unexpected number of spans")
	return sc
}

// AssertSpanAttribute asserts that span carries key with the expected value.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assert.True(t, matchesValue(attr.Value, expected),
				"attribute %s value mismatch: got %v, want %v", key, attr.Value.Emit(), expected)
			return
		}
	}
	t.Errorf("attribute %s not found in span", key)
}

// CountSpanEvents returns how many events named name span recorded.
func CountSpanEvents(span *tracetest.SpanStub, name string) int {
	n := 0
	for _, ev := range span.Events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func matchesValue(v attribute.Value, expected any) bool {
	switch e := expected.(type) {
	case string:
		return v.AsString() == e
	case int:
		return v.AsInt64() == int64(e)
	case int64:
		return v.AsInt64() == e
	case float64:
		return v.AsFloat64() == e
	case bool:
		return v.AsBool() == e
	default:
		return false
	}
}

// FindMetric returns the metric named name, or nil.
func FindMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// AssertMetricExists asserts that a metric named name was recorded.
func AssertMetricExists(t *testing.T, rm metricdata.ResourceMetrics, name string) {
	t.Helper()
	require.NotNil(t, FindMetric(rm, name), metricNotFoundErrMsg, name)
}

// SumInt64 adds up every data point of an int64 sum metric.
func SumInt64(rm metricdata.ResourceMetrics, name string) (int64, error) {
	m := FindMetric(rm, name)
	if m == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, name)
	}
	data, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not a Sum[int64]", name)
	}
	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total, nil
}

// HistogramCount adds up the counts of every data point of a float64 histogram.
func HistogramCount(rm metricdata.ResourceMetrics, name string) (uint64, error) {
	m := FindMetric(rm, name)
	if m == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, name)
	}
	data, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not a Histogram[float64]", name)
	}
	var total uint64
	for _, dp := range data.DataPoints {
		total += dp.Count
	}
	return total, nil
}
