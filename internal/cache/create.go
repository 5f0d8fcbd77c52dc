package cache

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"datalint/internal/apperr"
	"datalint/internal/database"
	"datalint/internal/hashing"
	"datalint/internal/logging"
	"datalint/internal/metrics"
	"datalint/internal/pipeline"
	"datalint/internal/processor"
	"datalint/internal/scanner"
	"datalint/internal/startup"
)

// Options configures CreateCache.
type Options struct {
	// CachePath is the cache file. It doubles as the store DSN for the
	// SQLite drivers when Store.DSN is empty.
	CachePath   string
	DatasetPath string
	// DatasetType and DatasetTask are stored verbatim; see KnownDatasetTypes.
	DatasetType string
	DatasetTask string

	Store     database.Config
	Scan      scanner.Options
	Hash      hashing.Algorithm
	UseVips   bool
	Workers   int
	BatchSize int
	// Overwrite drops an existing cache's tables before building.
	Overwrite bool

	// Progress is forwarded to the processing pipeline.
	Progress func(done, total int)
	// Gate is forwarded to the processing pipeline.
	Gate pipeline.Gate
}

// Result summarises a cache build.
type Result struct {
	// ImageCount is the number of records produced by processing, which is
	// what gets written; see Persisted for what actually landed.
	ImageCount   int
	Persisted    int
	RowErrors    []RowError
	Batches      int
	SkippedFiles int
	Corrupted    int64
	Ignored      int
	MetadataID   int64
	Duration     time.Duration
}

// CreateCache scans a dataset and writes its image metadata into a new
// cache. A missing dataset root fails with apperr.ErrNotFound before any
// file or directory is created. An existing cache is only rebuilt when
// opts.Overwrite is set; otherwise its metadata row makes this fail with
// database.ErrAlreadyInitialized.
func CreateCache(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	result, err := createCache(ctx, opts)
	result.Duration = time.Since(start)

	status := "success"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "cancelled"
	case err != nil:
		status = "error"
	}
	metrics.ScanRunsTotal.WithLabelValues(status).Inc()
	if err == nil {
		metrics.ScanLastRunDuration.Set(result.Duration.Seconds())
		metrics.ScanLastRunTimestamp.Set(float64(time.Now().Unix()))
	}
	return result, err
}

func createCache(ctx context.Context, opts Options) (Result, error) {
	var result Result

	if err := scanner.CheckRoot(opts.DatasetPath); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	root, err := filepath.Abs(opts.DatasetPath)
	if err != nil {
		return result, apperr.IO("resolve dataset path", opts.DatasetPath, err)
	}

	storeCfg, err := resolveStoreConfig(opts.Store, opts.CachePath)
	if err != nil {
		return result, err
	}
	if storeCfg.IsFile() {
		if err := startup.EnsureDirectory(filepath.Dir(storeCfg.DSN)); err != nil {
			return result, apperr.IO("create cache directory", filepath.Dir(storeCfg.DSN), err)
		}
	}

	openStart := time.Now()
	store, err := database.Open(ctx, storeCfg)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Warn("Error closing cache store: %v", cerr)
		}
	}()

	if opts.Overwrite {
		logging.Info("Overwrite requested, dropping existing cache tables")
		if err := store.Reset(ctx); err != nil {
			return result, err
		}
	}
	if err := store.Migrate(ctx); err != nil {
		return result, err
	}
	startup.LogStoreInit(string(storeCfg.Backend), string(storeCfg.Driver), time.Since(openStart))

	hash := opts.Hash
	if hash == "" {
		hash = hashing.Default
	}

	meta := &database.CacheMetadata{
		DatasetPath:   root,
		DatasetType:   NormalizeDatasetType(opts.DatasetType),
		DatasetTask:   NormalizeDatasetTask(opts.DatasetTask),
		Version:       startup.Version,
		HashAlgorithm: string(hash),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	id, err := store.InitCacheMetadata(ctx, meta)
	if err != nil {
		if errors.Is(err, database.ErrAlreadyInitialized) {
			logging.Error("Cache %s already exists; rebuild it with --overwrite", storeCfg.DSN)
		}
		return result, err
	}
	result.MetadataID = id

	scan, err := scanner.Walk(ctx, root, opts.Scan)
	if err != nil {
		return result, err
	}
	result.Ignored = scan.Ignored
	metrics.ScanFilesDiscovered.Add(float64(len(scan.Paths)))
	metrics.ScanFilesIgnored.Add(float64(scan.Ignored))

	proc := processor.New(root, processor.Options{
		Hash:    hash,
		Decoder: processor.Decoder{UseVips: opts.UseVips},
	})
	pl := pipeline.New(proc, pipeline.Config{
		Workers:       opts.Workers,
		ChannelBuffer: pipeline.DefaultConfig().ChannelBuffer,
		Progress:      opts.Progress,
		Gate:          opts.Gate,
	})
	records, err := pl.Run(ctx, scan.Paths)
	stats := pl.Stats()
	result.SkippedFiles = int(stats.Skipped) + scan.Unreadable
	result.Corrupted = stats.Corrupted
	if err != nil {
		return result, err
	}
	result.ImageCount = len(records)

	written, err := NewWriter(store, opts.BatchSize).Write(ctx, records)
	result.Persisted = written.Inserted
	result.RowErrors = written.RowErrors
	result.Batches = written.Batches
	if err != nil {
		return result, err
	}

	if err := metrics.Collect(ctx, metrics.SplitCounterFunc(func(ctx context.Context) (map[string]int64, error) {
		return database.SplitTotals(ctx, store)
	}), fileDSN(storeCfg)); err != nil {
		logging.Warn("Failed to collect cache metrics: %v", err)
	}

	return result, nil
}

// resolveStoreConfig fills the DSN from the cache path for file stores.
func resolveStoreConfig(store database.Config, cachePath string) (database.Config, error) {
	cfg := store.WithDefaults()
	if cfg.DSN == "" && cfg.IsFile() {
		cfg.DSN = cachePath
	}
	if cfg.DSN == "" {
		return cfg, apperr.New(apperr.KindConfig, "resolve store", "", errors.New("no cache path given"))
	}
	if cfg.IsFile() {
		abs, err := filepath.Abs(cfg.DSN)
		if err != nil {
			return cfg, apperr.IO("resolve cache path", cfg.DSN, err)
		}
		cfg.DSN = abs
	}
	return cfg, nil
}

func fileDSN(cfg database.Config) string {
	if cfg.IsFile() {
		return cfg.DSN
	}
	return ""
}
