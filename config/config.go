// Package config loads relay client configuration from defaults, YAML and
// RELAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of environment variables read by the loaders.
	// RELAY_CLIENT_RETRY_TRIES maps to client.retry.tries.
	EnvPrefix = "RELAY_"

	// DefaultFile is the YAML file read by Load.
	DefaultFile = "config.yaml"
)

// Load loads configuration with priority:
// 1. Environment variables (highest priority)
// 2. config.yaml, when present
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return LoadFrom(DefaultFile)
}

// LoadFrom is like Load but reads the YAML file at path. A missing file is
// skipped; an unreadable or malformed one is an error.
func LoadFrom(path string) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	})
}

// LoadBytes is like Load but reads YAML from data instead of a file.
func LoadBytes(data []byte) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to parse yaml: %w", err)
		}
		return nil
	})
}

func load(loadYAML func(k *koanf.Koanf) error) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadYAML(k); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, EnvPrefix)
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout":               "30s",
		"client.retry.tries":           0,
		"client.retry.interval":        "0s",
		"client.retry.backoff":         false,
		"client.retry.maxinterval":     "0s",
		"client.retry.jitter":          false,
		"client.retry.throwonmaxtries": true,
		"client.ratelimit.rps":         0,
		"client.ratelimit.burst":       1,
		"client.trace.header":          "X-Request-ID",
		"client.trace.w3c":             false,

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
