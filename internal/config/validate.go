package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"datalint/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(storeRules, StoreSettings{})
	})
	return validate
}

// storeRules checks the backend/driver combinations the store supports.
func storeRules(sl validator.StructLevel) {
	s := sl.Current().Interface().(StoreSettings)
	if s.Driver == "mysql" {
		if s.Backend != "gorm" {
			sl.ReportError(s.Backend, "Backend", "backend", "mysql_needs_gorm", "")
		}
		if strings.TrimSpace(s.DSN) == "" {
			sl.ReportError(s.DSN, "DSN", "dsn", "mysql_needs_dsn", "")
		}
	}
}

// Validate checks every setting and reports all problems at once.
func (s *Settings) Validate() error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.New(apperr.KindConfig, "validate config", "", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.New(apperr.KindConfig, "validate config", "", errors.New(strings.Join(msgs, "; ")))
}

// describe renders a field error using the config key rather than the Go
// field path.
func describe(fe validator.FieldError) string {
	key := configKey(fe.Namespace())
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "required", "min":
		return fmt.Sprintf("%s must not be empty", key)
	case "gte", "lte", "max":
		return fmt.Sprintf("%s out of range (%s %s), got %v", key, fe.Tag(), fe.Param(), fe.Value())
	case "mysql_needs_gorm":
		return "store.driver mysql requires store.backend gorm"
	case "mysql_needs_dsn":
		return "store.driver mysql requires store.dsn"
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

var sectionKeys = map[string]string{
	"Scan": "scan", "Hash": "hash", "Decode": "decode",
	"Store": "store", "Metrics": "metrics", "Log": "log",
}

var fieldKeys = map[string]string{
	"Extensions": "extensions", "SkipHidden": "skip_hidden", "Workers": "workers",
	"Algorithm": "algorithm", "UseVips": "use_vips", "Backend": "backend",
	"Driver": "driver", "DSN": "dsn", "Dedup": "dedup", "BatchSize": "batch_size",
	"Textfile": "textfile", "Level": "level",
}

// configKey maps "Settings.Store.BatchSize" to "store.batch_size" and
// "Settings.Scan.Extensions[2]" to "scan.extensions[2]".
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 && parts[0] == "Settings" {
		parts = parts[1:]
	}
	for i, p := range parts {
		name, index, _ := strings.Cut(p, "[")
		if k, ok := sectionKeys[name]; ok && i == 0 {
			name = k
		} else if k, ok := fieldKeys[name]; ok {
			name = k
		}
		if index != "" {
			name += "[" + index
		}
		parts[i] = name
	}
	return strings.Join(parts, ".")
}
