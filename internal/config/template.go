package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"datalint/internal/apperr"
)

const templateHeader = `# datalint configuration
#
# Every key can be overridden with an environment variable named after it,
# e.g. DATALINT_STORE_BATCH_SIZE=5000, and most also with a command flag.
#
# store.backend: sql (database/sql) or gorm
# store.driver:  sqlite3 (cgo), sqlite (pure Go) or mysql (gorm only, needs store.dsn)
# store.dedup:   allow duplicates by content hash, or reject them (unique)
# hash.algorithm: xxh64, sha256 or blake2b

`

// Template renders the default settings as a commented YAML document.
func Template() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(templateHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Defaults()); err != nil {
		return nil, fmt.Errorf("encode config template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTemplate writes Template to path. An existing file is only replaced
// when force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return apperr.New(apperr.KindConfig, "write config template", path, os.ErrExist)
		}
	}

	data, err := Template()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.IO("write config template", path, err)
	}
	return nil
}
