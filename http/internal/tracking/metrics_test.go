package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	obtest "github.com/gaborage/go-relay/observability/testing"
)

const attributeMismatchErrMsg = "attribute %s value mismatch"

func histogramPoints(t *testing.T, rm metricdata.ResourceMetrics) []metricdata.HistogramDataPoint[float64] {
	t.Helper()
	m := obtest.FindMetric(rm, metricRequestDuration)
	require.NotNil(t, m, "expected %s metric", metricRequestDuration)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected histogram data")
	return hist.DataPoints
}

func assertAttribute(t *testing.T, set attribute.Set, key string, expected attribute.Value) {
	t.Helper()
	v, ok := set.Value(attribute.Key(key))
	require.True(t, ok, "missing attribute %s", key)
	assert.Equal(t, expected, v, attributeMismatchErrMsg, key)
}

func TestRecordAttemptDuration(t *testing.T) {
	_, mp := obtest.NewTestProviders(t)
	tracker := New(mp, nil)

	tracker.RecordAttempt(context.Background(), "GET", 200, "", 40*time.Millisecond)

	points := histogramPoints(t, mp.Collect(t))
	require.Len(t, points, 1)
	dp := points[0]
	assert.Equal(t, uint64(1), dp.Count)
	assert.InDelta(t, 0.04, dp.Sum, 1e-9)
	assertAttribute(t, dp.Attributes, attrHTTPRequestMethod, attribute.StringValue("GET"))
	assertAttribute(t, dp.Attributes, attrHTTPResponseStatus, attribute.IntValue(200))

	_, hasErrorType := dp.Attributes.Value(attrErrorType)
	assert.False(t, hasErrorType)
}

func TestRecordAttemptFailure(t *testing.T) {
	_, mp := obtest.NewTestProviders(t)
	tracker := New(mp, nil)

	tracker.RecordAttempt(context.Background(), "POST", 0, "network", 5*time.Millisecond)

	points := histogramPoints(t, mp.Collect(t))
	require.Len(t, points, 1)
	dp := points[0]
	assertAttribute(t, dp.Attributes, attrHTTPRequestMethod, attribute.StringValue("POST"))
	assertAttribute(t, dp.Attributes, attrErrorType, attribute.StringValue("network"))

	_, hasStatus := dp.Attributes.Value(attrHTTPResponseStatus)
	assert.False(t, hasStatus)
}

func TestRecordRetry(t *testing.T) {
	tp, mp := obtest.NewTestProviders(t)
	tracker := New(mp, tp)

	ctx, span := tracker.StartSend(context.Background(), "GET", "https://api.example.com/users")
	tracker.RecordRetry(ctx, "GET", 1, 100*time.Millisecond)
	tracker.RecordRetry(ctx, "GET", 2, 200*time.Millisecond)
	EndSend(span, 200, nil)

	retries, err := obtest.SumInt64(mp.Collect(t), metricRetries)
	require.NoError(t, err)
	assert.Equal(t, int64(2), retries)

	stub := tp.Spans(t).WithName(spanName).AssertCount(1).First()
	require.Equal(t, 2, obtest.CountSpanEvents(&stub, "retry"))

	first := attribute.NewSet(stub.Events[0].Attributes...)
	assertAttribute(t, first, attrRetryAttempt, attribute.IntValue(1))
	assertAttribute(t, first, "retry.delay_ms", attribute.Int64Value(100))

	obtest.AssertSpanAttribute(t, &stub, attrURLFull, "https://api.example.com/users")
	obtest.AssertSpanAttribute(t, &stub, attrHTTPResponseStatus, 200)
	assert.Equal(t, codes.Unset, stub.Status.Code)
}

func TestEndSendStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		err      error
		expected codes.Code
	}{
		{name: "success", status: 204, expected: codes.Unset},
		{name: "http failure", status: 503, expected: codes.Error},
		{name: "connection failure", err: errors.New("connection refused"), expected: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := obtest.NewTestTraceProvider()
			t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
			tracker := New(nil, tp)

			_, span := tracker.StartSend(context.Background(), "GET", "https://api.example.com")
			EndSend(span, tt.status, tt.err)

			stub := tp.Spans(t).AssertCount(1).First()
			assert.Equal(t, tt.expected, stub.Status.Code)
		})
	}
}
