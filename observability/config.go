package observability

import (
	"strings"
	"time"
)

const (
	// EndpointStdout writes telemetry to stdout (local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"
)

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config controls the OpenTelemetry providers used by connectors.
type Config struct {
	// Enabled turns the SDK providers on. When false every operation is a no-op.
	Enabled bool `koanf:"enabled"`

	Service     ServiceConfig `koanf:"service"`
	Environment string        `koanf:"environment"`
	Trace       TraceConfig   `koanf:"trace"`
	Metrics     MetricsConfig `koanf:"metrics"`
}

// ServiceConfig identifies the service in exported telemetry.
type ServiceConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// TraceConfig configures span export.
type TraceConfig struct {
	// Enabled: nil means "on when observability is enabled".
	Enabled *bool `koanf:"enabled"`

	// Endpoint is "stdout" or an OTLP endpoint
	// ("http://localhost:4318" for HTTP, "localhost:4317" for gRPC).
	Endpoint string            `koanf:"endpoint"`
	Protocol string            `koanf:"protocol"`
	Insecure bool              `koanf:"insecure"`
	Headers  map[string]string `koanf:"headers"`

	// SampleRate is the fraction of traces kept. nil defaults to 1.0.
	SampleRate *float64 `koanf:"samplerate"`

	// BatchTimeout is how long spans are buffered before export.
	BatchTimeout time.Duration `koanf:"batchtimeout"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Enabled: nil means "on when observability is enabled".
	Enabled *bool `koanf:"enabled"`

	// Endpoint, Protocol and Headers fall back to the trace settings when empty.
	Endpoint string            `koanf:"endpoint"`
	Protocol string            `koanf:"protocol"`
	Headers  map[string]string `koanf:"headers"`

	// Interval is the export period.
	Interval time.Duration `koanf:"interval"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.Endpoint == EndpointStdout {
		c.Trace.Insecure = true
	}
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.SampleRate == nil {
		c.Trace.SampleRate = Float64Ptr(1.0)
	}
	if c.Trace.BatchTimeout == 0 {
		if c.Environment == EnvironmentDevelopment || c.Trace.Endpoint == EndpointStdout {
			c.Trace.BatchTimeout = 500 * time.Millisecond
		} else {
			c.Trace.BatchTimeout = 5 * time.Second
		}
	}

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = c.Trace.Endpoint
	}
	if c.Metrics.Protocol == "" {
		c.Metrics.Protocol = c.Trace.Protocol
	}
	if c.Metrics.Headers == nil && c.Trace.Headers != nil {
		c.Metrics.Headers = make(map[string]string, len(c.Trace.Headers))
		for k, v := range c.Trace.Headers {
			c.Metrics.Headers[k] = v
		}
	}
	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 10 * time.Second
	}
}

// TraceEnabled reports whether span export is on.
func (c *Config) TraceEnabled() bool {
	return c.Enabled && c.Trace.Enabled != nil && *c.Trace.Enabled
}

// MetricsEnabled reports whether metric export is on.
func (c *Config) MetricsEnabled() bool {
	return c.Enabled && c.Metrics.Enabled != nil && *c.Metrics.Enabled
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}

	if c.Trace.SampleRate != nil {
		rate := *c.Trace.SampleRate
		if rate < 0.0 || rate > 1.0 {
			return ErrInvalidSampleRate
		}
	}
	if err := validateEndpoint(c.Trace.Endpoint, c.Trace.Protocol); err != nil {
		return err
	}
	return validateEndpoint(c.Metrics.Endpoint, c.Metrics.Protocol)
}

// validateEndpoint checks the protocol and that the endpoint format matches it.
func validateEndpoint(endpoint, protocol string) error {
	if endpoint == EndpointStdout || endpoint == "" {
		return nil
	}
	if protocol == "" {
		protocol = ProtocolHTTP
	}

	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	switch protocol {
	case ProtocolGRPC:
		if hasScheme {
			return ErrInvalidEndpointFormat
		}
	case ProtocolHTTP:
		if !hasScheme {
			return ErrInvalidEndpointFormat
		}
	default:
		return ErrInvalidProtocol
	}
	return nil
}
