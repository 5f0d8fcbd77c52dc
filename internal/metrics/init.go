package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every series is present in a textfile dump even when it stayed at zero.
// Call this once at startup.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"migrate", "init_metadata", "get_metadata", "begin_batch",
		"insert_image", "commit", "rollback", "find_by_hash", "count_by_split", "count_images", "reset"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error", "cancelled"} {
		ScanRunsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"ok", "corrupted", "skipped"} {
		ProcessFilesTotal.WithLabelValues(status)
	}

	for _, format := range []string{"jpeg", "png", "gif", "webp", "bmp", "tiff", "ico", "svg", "unknown"} {
		for _, decoder := range []string{"go", "vips"} {
			DecodeByFormat.WithLabelValues(format, decoder)
		}
	}

	for _, status := range []string{"committed", "failed"} {
		WriterBatchesTotal.WithLabelValues(status)
	}

	for _, status := range []string{"inserted", "duplicate", "error"} {
		WriterRowsTotal.WithLabelValues(status)
	}

	for _, split := range []string{"train", "val", "test", "unknown"} {
		CacheImagesTotal.WithLabelValues(split)
	}
}
