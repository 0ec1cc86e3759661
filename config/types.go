package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/go-relay/observability"
)

// Config is the root configuration of a relay client application.
type Config struct {
	Client        ClientConfig         `koanf:"client"`
	Log           LogConfig            `koanf:"log"`
	Observability observability.Config `koanf:"observability"`

	k *koanf.Koanf
}

// ClientConfig configures a connector built with http.Builder.WithConfig.
type ClientConfig struct {
	BaseURL        string            `koanf:"baseurl" validate:"omitempty,http_url"`
	Timeout        time.Duration     `koanf:"timeout" validate:"gte=0"`
	DefaultHeaders map[string]string `koanf:"headers"`

	Retry     RetryConfig     `koanf:"retry"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Trace     TraceConfig     `koanf:"trace"`
}

// RetryConfig configures the default retry policy. Tries of zero disables retries.
type RetryConfig struct {
	Tries           int           `koanf:"tries" validate:"gte=0,lte=100"`
	Interval        time.Duration `koanf:"interval" validate:"gte=0"`
	Backoff         bool          `koanf:"backoff"`
	MaxInterval     time.Duration `koanf:"maxinterval" validate:"gte=0"`
	Jitter          bool          `koanf:"jitter"`
	ThrowOnMaxTries bool          `koanf:"throwonmaxtries"`
}

// RateLimitConfig limits outbound attempts. RequestsPerSecond of zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"rps" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=0"`
}

// TraceConfig configures trace ID propagation on outbound requests.
type TraceConfig struct {
	Header string `koanf:"header"`
	W3C    bool   `koanf:"w3c"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}
