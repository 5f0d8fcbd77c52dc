package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the scan pool size.
const EnvOverride = "DATALINT_WORKERS"

// DefaultLimit caps automatically sized pools on very large hosts. Image
// decode holds one full file buffer per worker, so unbounded pools trade
// little throughput for a lot of memory.
const DefaultLimit = 32

// Count returns the number of workers for a task with the given CPU
// multiplier, capped at limit (0 = no cap). GOMAXPROCS is used rather than
// NumCPU so container CPU limits are respected.
//
// The DATALINT_WORKERS environment variable takes precedence over the
// calculation but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override, ok := envOverride(); ok {
		return capAt(override, limit)
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

// Resolve returns requested when it is positive, otherwise a mixed-workload
// count bounded by DefaultLimit. Scan configuration uses 0 to mean "auto".
func Resolve(requested int) int {
	if requested > 0 {
		return requested
	}
	return ForMixed(DefaultLimit)
}

// ForMixed returns worker count for read-then-decode work (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

func envOverride() (int, bool) {
	raw := os.Getenv(EnvOverride)
	if raw == "" {
		return 0, false
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count <= 0 {
		return 0, false
	}
	return count, true
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
