// Package metrics provides Prometheus instrumentation for datalint.
//
// All metrics are prefixed with "datalint_" and registered on the default
// registry through promauto.
//
// # Metric Categories
//
// ## Database Metrics
//
//   - DBQueryTotal: Counter of store operations by operation and status
//   - DBQueryDuration: Histogram of store operation duration
//   - DBTransactionDuration: Histogram of batch transaction lifetime by outcome
//   - DBSizeBytes: Gauge of SQLite file sizes (main, WAL, SHM)
//
// ## Scan and Processing Metrics
//
//   - ScanRunsTotal: Counter of cache builds by status
//   - ScanLastRunDuration, ScanLastRunTimestamp: Gauges for the last build
//   - ScanFilesDiscovered, ScanFilesIgnored: Counters from the walker
//   - ProcessFilesTotal: Counter of processed files (ok/corrupted/skipped)
//   - ProcessDuration: Histogram of per-file processing time
//   - DecodeByFormat: Counter of decode attempts by format and decoder
//   - PipelineWorkers: Gauge of the worker pool size
//
// ## Writer Metrics
//
//   - WriterBatchesTotal: Counter of batches (committed/failed)
//   - WriterRowsTotal: Counter of row inserts (inserted/duplicate/error)
//
// ## Cache Content
//
//   - CacheImagesTotal: Gauge of cached images by split, refreshed by Collect
//
// # Textfile Export
//
// datalint is a one-shot CLI, so there is no scrape endpoint. Instead the
// registry is written in the text exposition format after a run:
//
//	metrics.InitializeMetrics()
//	defer func() {
//	    if err := metrics.WriteTextfile("/var/lib/node_exporter/datalint.prom"); err != nil {
//	        logging.Warn("metrics: %v", err)
//	    }
//	}()
//
// Useful queries once the file is collected:
//
//	datalint_process_files_total{status="corrupted"} / ignoring(status) sum(datalint_process_files_total)
//	histogram_quantile(0.95, rate(datalint_process_duration_seconds_bucket[1d]))
package metrics
