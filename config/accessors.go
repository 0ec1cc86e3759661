package config

import "time"

// GetString returns the value at key, or the first default when key is unset.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if !c.Exists(key) {
		return first(defaultVal)
	}
	return c.k.String(key)
}

// GetInt returns the value at key, or the first default when key is unset.
func (c *Config) GetInt(key string, defaultVal ...int) int {
	if !c.Exists(key) {
		return first(defaultVal)
	}
	return c.k.Int(key)
}

// GetBool returns the value at key, or the first default when key is unset.
func (c *Config) GetBool(key string, defaultVal ...bool) bool {
	if !c.Exists(key) {
		return first(defaultVal)
	}
	return c.k.Bool(key)
}

// GetDuration returns the value at key, or the first default when key is unset.
func (c *Config) GetDuration(key string, defaultVal ...time.Duration) time.Duration {
	if !c.Exists(key) {
		return first(defaultVal)
	}
	return c.k.Duration(key)
}

// Unmarshal decodes the subtree at key into out.
func (c *Config) Unmarshal(key string, out any) error {
	if c == nil || c.k == nil {
		return nil
	}
	return c.k.Unmarshal(key, out)
}

// Exists reports whether key is set by any source.
func (c *Config) Exists(key string) bool {
	return c != nil && c.k != nil && c.k.Exists(key)
}

func first[T any](vals []T) T {
	var zero T
	if len(vals) > 0 {
		return vals[0]
	}
	return zero
}
