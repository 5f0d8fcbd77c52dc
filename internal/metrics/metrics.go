package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalint_db_queries_total",
			Help: "Total number of cache store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datalint_db_query_duration_seconds",
			Help:    "Cache store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datalint_db_transaction_duration_seconds",
			Help:    "Duration of batch transactions from begin to commit or rollback",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"}, // "commit", "rollback"
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datalint_db_size_bytes",
			Help: "Size of SQLite cache files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalint_scan_runs_total",
			Help: "Total number of cache builds by outcome",
		},
		[]string{"status"},
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datalint_scan_last_run_duration_seconds",
			Help: "Duration of the last cache build in seconds",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datalint_scan_last_run_timestamp",
			Help: "Unix timestamp of the last completed cache build",
		},
	)

	ScanFilesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datalint_scan_files_discovered_total",
			Help: "Total number of candidate image files found by the walker",
		},
	)

	ScanFilesIgnored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datalint_scan_files_ignored_total",
			Help: "Total number of files rejected by the extension filter",
		},
	)
)

// Processing metrics
var (
	ProcessFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalint_process_files_total",
			Help: "Total number of files run through the image processor by outcome",
		},
		[]string{"status"}, // "ok", "corrupted", "skipped"
	)

	ProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datalint_process_duration_seconds",
			Help:    "Per-file read, hash and decode duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	DecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalint_decode_total",
			Help: "Total number of decode attempts by format and decoder",
		},
		[]string{"format", "decoder"},
	)

	PipelineWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datalint_pipeline_workers",
			Help: "Number of workers in the processing pool",
		},
	)
)

// Writer metrics
var (
	WriterBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalint_writer_batches_total",
			Help: "Total number of record batches by outcome",
		},
		[]string{"status"},
	)

	WriterRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalint_writer_rows_total",
			Help: "Total number of record inserts by outcome",
		},
		[]string{"status"}, // "inserted", "duplicate", "error"
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datalint_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datalint_memory_paused",
			Help: "Whether file processing is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datalint_memory_gc_pauses_total",
			Help: "Total number of times processing paused for memory pressure",
		},
	)
)

// Cache content metrics
var (
	CacheImagesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datalint_cache_images",
			Help: "Number of cached images by split",
		},
		[]string{"split"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datalint_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
