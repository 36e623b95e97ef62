package config

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/scopecache/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their config key rather than the Go name.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks s against its `validate` struct tags. Failures are
// returned as one INVALID_ARGUMENT error listing every offending key.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.InvalidArgument("config", err.Error())
	}

	fields := make([]string, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		key := namespaceKey(e.Namespace())
		fields = append(fields, key)
		messages = append(messages, key+" failed '"+e.Tag()+"'")
	}

	return errors.InvalidArgument("config", strings.Join(messages, "; ")).
		WithDetail("fields", fields)
}

// namespaceKey turns "Config.cache.prune_interval" into "cache.prune_interval".
func namespaceKey(ns string) string {
	if idx := strings.Index(ns, "."); idx != -1 {
		return ns[idx+1:]
	}
	return ns
}
