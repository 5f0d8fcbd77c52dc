// Package memory keeps a scan inside its memory budget.
//
// Each worker holds a whole image file in memory while decoding it, and the
// libvips fallback allocates outside the Go heap, so a large dataset on
// many workers can outgrow a container. Go detects CPU quotas by itself
// but not memory limits.
//
// [ConfigureFromEnv] sets the runtime soft limit from the environment:
//
//   - GOMEMLIMIT, when set, is respected as is.
//   - DATALINT_MEMORY_LIMIT is the container limit, in bytes or with a unit
//     ("4GiB", "512MB").
//   - DATALINT_MEMORY_RATIO is the share of it given to the Go heap
//     (default 0.85).
//
// A [Monitor] samples the heap against that limit. Workers call
// [Monitor.WaitIfPaused] before reading each file; they are held while the
// heap is above Config.PauseAt and released once it falls below
// Config.ResumeAt. A pause never outlasts Config.MaxPause: the records a
// scan collects stay on the heap, and a pause that waits for them to go
// away would never end.
package memory
