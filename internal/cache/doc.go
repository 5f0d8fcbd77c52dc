// Package cache builds a dataset's metadata cache.
//
// [CreateCache] is the one-shot entry point: it validates the dataset root,
// opens and migrates the store, writes the cache metadata row, discovers
// image files, processes them on a worker pool and persists the records.
// Processing and writing are separated by a barrier; the writer runs on the
// calling goroutine as the store's single writer.
//
// [Writer] persists records in fixed-size batches, one transaction each.
// Row-level insert failures are collected as [RowError] values and do not
// abort the batch. Failing to begin or commit a batch stops the write;
// batches committed before it remain.
//
// [OpenExisting], [Inspect] and [LookupFile] read a cache back.
package cache
