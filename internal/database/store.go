package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"datalint/internal/apperr"
)

// Backend selects the store implementation.
type Backend string

const (
	BackendSQL  Backend = "sql"
	BackendGorm Backend = "gorm"
)

// Driver selects the database engine behind a backend.
type Driver string

const (
	// DriverSQLite3 is the cgo SQLite driver (mattn/go-sqlite3).
	DriverSQLite3 Driver = "sqlite3"
	// DriverSQLite is the pure Go SQLite driver (modernc.org/sqlite).
	DriverSQLite Driver = "sqlite"
	// DriverMySQL is only available on the gorm backend.
	DriverMySQL Driver = "mysql"
)

// DedupPolicy controls whether file_hash must be unique within a cache.
type DedupPolicy string

const (
	// DedupAllow stores byte-identical files as separate rows.
	DedupAllow DedupPolicy = "allow"
	// DedupUnique rejects a second row with an existing file_hash.
	DedupUnique DedupPolicy = "unique"
)

// ErrAlreadyInitialized is returned by InitCacheMetadata when the cache
// already carries a metadata row.
var ErrAlreadyInitialized = errors.New("cache metadata already written")

// Config selects and parameterises a store.
type Config struct {
	Backend Backend
	Driver  Driver
	// DSN is a file path for the SQLite drivers and a go-sql-driver DSN for MySQL.
	DSN   string
	Dedup DedupPolicy
}

// IsFile reports whether the configured store lives in a local file.
func (c Config) IsFile() bool {
	return c.Driver != DriverMySQL
}

// Store is the cache persistence capability. Implementations allow one
// writer at a time.
type Store interface {
	// Migrate creates the schema if missing. It is idempotent.
	Migrate(ctx context.Context) error
	// InitCacheMetadata writes the single metadata row and returns its id.
	InitCacheMetadata(ctx context.Context, meta *CacheMetadata) (int64, error)
	// CacheMetadata returns the metadata row, or nil when none was written.
	CacheMetadata(ctx context.Context) (*CacheMetadata, error)
	// BeginBatch opens a transaction for inserting records.
	BeginBatch(ctx context.Context) (Batch, error)
	// FindByHash returns one record with the given file hash, or nil.
	FindByHash(ctx context.Context, hash string) (*ImageRecord, error)
	// CountBySplit returns the number of records per split label.
	CountBySplit(ctx context.Context) ([]SplitCount, error)
	// CountImages returns the total number of records.
	CountImages(ctx context.Context) (int64, error)
	// Reset drops every cache table.
	Reset(ctx context.Context) error
	Close() error
}

// Batch is an open write transaction.
type Batch interface {
	// InsertImage stores rec, sets rec.ID and returns it. A failed insert
	// leaves the transaction usable for further rows.
	InsertImage(ctx context.Context, rec *ImageRecord) (int64, error)
	Commit() error
	Rollback() error
}

// Open returns a store for cfg. The schema is not touched; call Migrate.
func Open(ctx context.Context, cfg Config) (Store, error) {
	cfg = cfg.WithDefaults()
	if err := validateConfig(cfg); err != nil {
		return nil, apperr.New(apperr.KindConfig, "open store", cfg.DSN, err)
	}

	switch cfg.Backend {
	case BackendGorm:
		return OpenGorm(ctx, cfg)
	default:
		return OpenSQL(ctx, cfg)
	}
}

// WithDefaults returns c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendSQL
	}
	if c.Driver == "" {
		c.Driver = DriverSQLite3
	}
	if c.Dedup == "" {
		c.Dedup = DedupAllow
	}
	return c
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DSN) == "" {
		return errors.New("empty store DSN")
	}
	switch cfg.Backend {
	case BackendSQL:
		if cfg.Driver != DriverSQLite3 && cfg.Driver != DriverSQLite {
			return fmt.Errorf("driver %q is not supported by the sql backend", cfg.Driver)
		}
	case BackendGorm:
		if cfg.Driver != DriverSQLite3 && cfg.Driver != DriverSQLite && cfg.Driver != DriverMySQL {
			return fmt.Errorf("driver %q is not supported by the gorm backend", cfg.Driver)
		}
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if cfg.Dedup != DedupAllow && cfg.Dedup != DedupUnique {
		return fmt.Errorf("unknown dedup policy %q", cfg.Dedup)
	}
	return nil
}

// SplitTotals folds CountBySplit rows into a map keyed by label.
func SplitTotals(ctx context.Context, s Store) (map[string]int64, error) {
	rows, err := s.CountBySplit(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[string(r.Split)] += r.Count
	}
	return out, nil
}
