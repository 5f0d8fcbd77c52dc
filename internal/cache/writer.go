package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datalint/internal/apperr"
	"datalint/internal/database"
	"datalint/internal/logging"
	"datalint/internal/metrics"
)

// DefaultBatchSize is the number of records written per transaction.
const DefaultBatchSize = 10000

// maxLoggedRowErrors bounds per-row warnings; the rest are summarised.
const maxLoggedRowErrors = 5

// RowError is an insert that failed inside an otherwise committed batch.
type RowError struct {
	// Index is the record's position in the slice given to Write.
	Index int
	// Path is the record's dataset-relative location.
	Path string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// WriteResult reports the outcome of Write.
type WriteResult struct {
	// Inserted counts rows in committed batches.
	Inserted int
	// RowErrors lists the inserts that failed, in input order.
	RowErrors []RowError
	// Batches counts committed transactions.
	Batches int
}

// Writer persists records in fixed-size transactional batches.
type Writer struct {
	store     database.Store
	batchSize int
}

// NewWriter returns a writer over store. A non-positive batchSize selects
// DefaultBatchSize.
func NewWriter(store database.Store, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Writer{store: store, batchSize: batchSize}
}

// BatchSize returns the effective batch size.
func (w *Writer) BatchSize() int { return w.batchSize }

// Write inserts records in contiguous batches of BatchSize, each in its own
// transaction, and sets the ID of every inserted record. A failed row is
// recorded and the batch continues. Failing to begin or commit a batch is
// fatal: Write stops and returns the error together with the result so far.
// Batches committed before the failure stay committed.
func (w *Writer) Write(ctx context.Context, records []database.ImageRecord) (WriteResult, error) {
	var result WriteResult
	total := len(records)
	if total == 0 {
		return result, nil
	}

	logging.Info("Writing %d records in batches of %d", total, w.batchSize)

	for start := 0; start < total; start += w.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := min(start+w.batchSize, total)

		inserted, rowErrs, err := w.writeBatch(ctx, records, start, end)
		result.RowErrors = append(result.RowErrors, rowErrs...)
		if err != nil {
			metrics.WriterBatchesTotal.WithLabelValues("failed").Inc()
			w.logRowErrors(result.RowErrors)
			return result, err
		}

		metrics.WriterBatchesTotal.WithLabelValues("committed").Inc()
		result.Inserted += inserted
		result.Batches++

		logging.Info("Database insert progress: %d/%d records", end, total)
	}

	w.logRowErrors(result.RowErrors)
	return result, nil
}

// writeBatch inserts records[start:end] in one transaction.
func (w *Writer) writeBatch(ctx context.Context, records []database.ImageRecord, start, end int) (int, []RowError, error) {
	batchStart := time.Now()

	batch, err := w.store.BeginBatch(ctx)
	if err != nil {
		return 0, nil, apperr.Store("begin batch", err)
	}

	var rowErrs []RowError
	inserted := 0
	for i := start; i < end; i++ {
		rec := &records[i]
		if _, err := batch.InsertImage(ctx, rec); err != nil {
			rowErrs = append(rowErrs, RowError{Index: i, Path: rec.Location(), Err: err})
			if errors.Is(err, apperr.ErrDuplicate) {
				metrics.WriterRowsTotal.WithLabelValues("duplicate").Inc()
			} else {
				metrics.WriterRowsTotal.WithLabelValues("error").Inc()
			}
			continue
		}
		inserted++
	}

	if err := batch.Commit(); err != nil {
		// Rows of an uncommitted batch were never persisted.
		for i := start; i < end; i++ {
			records[i].ID = 0
		}
		return 0, rowErrs, apperr.Store("commit batch", err)
	}

	metrics.WriterRowsTotal.WithLabelValues("inserted").Add(float64(inserted))
	logging.Debug("Committed batch [%d,%d): %d rows in %v", start, end, inserted, time.Since(batchStart))
	return inserted, rowErrs, nil
}

func (w *Writer) logRowErrors(rowErrs []RowError) {
	for i, re := range rowErrs {
		if i == maxLoggedRowErrors {
			logging.Warn("... and %d more row errors", len(rowErrs)-maxLoggedRowErrors)
			return
		}
		logging.Warn("Error inserting %v", re)
	}
}
