package observability

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// noopProvider is returned when observability is disabled.
type noopProvider struct{}

func newNoopProvider() *noopProvider {
	return &noopProvider{}
}

func (n *noopProvider) TracerProvider() trace.TracerProvider {
	return tracenoop.NewTracerProvider()
}

func (n *noopProvider) MeterProvider() metric.MeterProvider {
	return metricnoop.NewMeterProvider()
}

func (n *noopProvider) Shutdown(context.Context) error { return nil }

func (n *noopProvider) ForceFlush(context.Context) error { return nil }
