package metrics

import (
	"context"
	"os"

	"datalint/internal/logging"
)

// SplitCounter reports cached image counts keyed by split label.
type SplitCounter interface {
	SplitCounts(ctx context.Context) (map[string]int64, error)
}

// SplitCounterFunc adapts a function to SplitCounter.
type SplitCounterFunc func(ctx context.Context) (map[string]int64, error)

// SplitCounts calls f.
func (f SplitCounterFunc) SplitCounts(ctx context.Context) (map[string]int64, error) {
	return f(ctx)
}

// Collect refreshes the cache content gauges from provider and, when dbPath
// names a SQLite file, the on-disk size gauges.
func Collect(ctx context.Context, provider SplitCounter, dbPath string) error {
	if provider != nil {
		counts, err := provider.SplitCounts(ctx)
		if err != nil {
			return err
		}
		for split, n := range counts {
			CacheImagesTotal.WithLabelValues(split).Set(float64(n))
		}
		logging.Debug("Metrics collected: %d split buckets", len(counts))
	}

	if dbPath != "" {
		for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
			info, err := os.Stat(dbPath + suffix)
			if err != nil {
				DBSizeBytes.WithLabelValues(label).Set(0)
				continue
			}
			DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
		}
	}

	return nil
}
