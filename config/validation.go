package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field errors by their koanf path segment.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var errs []error
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, toConfigError(fe))
		}
	}

	if err := cfg.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}
	return errors.Join(errs...)
}

// toConfigError converts a validator error into a ConfigError keyed by config path.
func toConfigError(fe validator.FieldError) *ConfigError {
	// Namespace is "Config.client.retry.tries"; drop the root type name
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "http_url":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid URL %q", fmt.Sprint(fe.Value())), nil)
	case "gte":
		return NewInvalidFieldError(field, fmt.Sprintf("must be >= %s", fe.Param()), nil)
	case "lte":
		return NewInvalidFieldError(field, fmt.Sprintf("must be <= %s", fe.Param()), nil)
	default:
		return NewInvalidFieldError(field, fmt.Sprintf("failed %q validation", fe.Tag()), nil)
	}
}
