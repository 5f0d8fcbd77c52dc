/*
Package workers sizes the image processing pool.

Scanning a dataset mixes blocking reads with CPU-bound decode and hashing, so
the default pool uses 1.5 workers per schedulable CPU. GOMAXPROCS is consulted
instead of runtime.NumCPU so that container CPU limits (honoured by the Go
runtime since 1.19) are respected:

	// 2-CPU container on a 64-core node
	workers.ForMixed(32) // 3, not 96

# Overrides

An explicit scan.workers setting wins (see Resolve). Otherwise the
DATALINT_WORKERS environment variable pins the count:

	DATALINT_WORKERS=4 datalint create ...

Overrides are still capped by the limit passed to Count.
*/
package workers
