package logger

import (
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaskValue replaces sensitive values in log output
const DefaultMaskValue = "***"

// FilterConfig defines which fields are masked in log output
type FilterConfig struct {
	// SensitiveFields contains substrings of field, header and query names that are masked
	SensitiveFields []string
	// MaskValue replaces sensitive data (default: "***")
	MaskValue string
}

// DefaultFilterConfig returns a configuration covering common credential names
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "secret",
			"api_key", "apikey", "api-key",
			"token", "authorization", "auth",
			"cookie", "credential",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks credentials in strings, header maps, query values and URLs.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a filter. A nil config uses DefaultFilterConfig.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive. URLs have their password
// and sensitive query parameters masked regardless of key.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if value == "" {
		return value
	}
	if f.isSensitive(key) {
		return f.config.MaskValue
	}
	if isURL(value) {
		return f.MaskURL(value)
	}
	return value
}

// FilterValue masks value when key is sensitive and filters the entries of
// header and query maps.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	if value == nil {
		return nil
	}
	if f.isSensitive(key) {
		return f.config.MaskValue
	}

	switch v := value.(type) {
	case string:
		return f.FilterString(key, v)
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = f.FilterString(k, s)
		}
		return out
	case map[string]any:
		return f.FilterFields(v)
	case http.Header:
		return f.filterMulti(v)
	case url.Values:
		return f.filterMulti(v)
	default:
		return value
	}
}

// FilterFields filters every entry of fields
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		filtered[key] = f.FilterValue(key, value)
	}
	return filtered
}

// MaskURL masks the user password and sensitive query parameters of a URL.
// Unparseable input is masked entirely.
func (f *SensitiveDataFilter) MaskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return f.config.MaskValue
	}

	changed := false
	if parsed.User != nil {
		if _, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(parsed.User.Username(), f.config.MaskValue)
			changed = true
		}
	}

	if parsed.RawQuery != "" {
		query := parsed.Query()
		for name := range query {
			if f.isSensitive(name) {
				query.Set(name, f.config.MaskValue)
				changed = true
			}
		}
		if changed {
			parsed.RawQuery = query.Encode()
		}
	}

	if !changed {
		return raw
	}
	// url.URL.String escapes the mask inside user info; keep it readable
	return strings.ReplaceAll(parsed.String(), url.QueryEscape(f.config.MaskValue), f.config.MaskValue)
}

func (f *SensitiveDataFilter) filterMulti(values map[string][]string) map[string][]string {
	out := make(map[string][]string, len(values))
	for k, vs := range values {
		if f.isSensitive(k) {
			out[k] = []string{f.config.MaskValue}
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func (f *SensitiveDataFilter) isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range f.config.SensitiveFields {
		if strings.Contains(lower, strings.ToLower(field)) {
			return true
		}
	}
	return false
}

func isURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}
