package cache

import (
	"context"
	"errors"
	"os"

	"datalint/internal/apperr"
	"datalint/internal/database"
	"datalint/internal/hashing"
)

// ErrNotACache is returned when a store holds no cache metadata.
var ErrNotACache = errors.New("store holds no cache metadata")

// OpenExisting opens a cache written by CreateCache. For file stores the
// file must already exist; it is never created here.
func OpenExisting(ctx context.Context, cachePath string, cfg database.Config) (database.Store, error) {
	cfg, err := resolveStoreConfig(cfg, cachePath)
	if err != nil {
		return nil, err
	}
	if cfg.IsFile() {
		if _, err := os.Stat(cfg.DSN); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, apperr.NotFound("open cache", cfg.DSN, err)
			}
			return nil, apperr.IO("open cache", cfg.DSN, err)
		}
	}
	return database.Open(ctx, cfg)
}

// Info describes the contents of a cache.
type Info struct {
	Metadata *database.CacheMetadata `json:"metadata"`
	Total    int64                   `json:"total"`
	Splits   []database.SplitCount   `json:"splits"`
}

// Inspect reads the metadata row and per-split counts of a cache.
func Inspect(ctx context.Context, store database.Store) (Info, error) {
	var info Info

	meta, err := store.CacheMetadata(ctx)
	if err != nil {
		return info, err
	}
	if meta == nil {
		return info, apperr.New(apperr.KindNotFound, "inspect cache", "", ErrNotACache)
	}
	info.Metadata = meta

	if info.Splits, err = store.CountBySplit(ctx); err != nil {
		return info, err
	}
	if info.Total, err = store.CountImages(ctx); err != nil {
		return info, err
	}
	return info, nil
}

// LookupFile hashes the file at path with the algorithm the cache was built
// with and returns the matching record, or nil when there is none.
func LookupFile(ctx context.Context, store database.Store, path string) (*database.ImageRecord, string, error) {
	meta, err := store.CacheMetadata(ctx)
	if err != nil {
		return nil, "", err
	}
	if meta == nil {
		return nil, "", apperr.New(apperr.KindNotFound, "lookup file", path, ErrNotACache)
	}

	algo, err := hashing.Parse(meta.HashAlgorithm)
	if err != nil {
		return nil, "", apperr.New(apperr.KindConfig, "lookup file", path, err)
	}
	sum, err := algo.File(path)
	if err != nil {
		return nil, "", apperr.IO("hash file", path, err)
	}

	rec, err := store.FindByHash(ctx, sum)
	return rec, sum, err
}
