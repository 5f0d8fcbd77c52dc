package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"datalint/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of the container limit given to the Go
	// heap. The remainder covers libvips, stacks and read buffers.
	DefaultMemoryRatio = 0.85

	// EnvMemoryLimit is the container memory limit, either in bytes or as a
	// size such as "4GiB".
	EnvMemoryLimit = "DATALINT_MEMORY_LIMIT"
	// EnvMemoryRatio overrides DefaultMemoryRatio.
	EnvMemoryRatio = "DATALINT_MEMORY_RATIO"
)

// Source names where the Go memory limit came from.
type Source string

const (
	SourceNone       Source = "none"
	SourceGOMEMLIMIT Source = "GOMEMLIMIT"
	SourceContainer  Source = "container"
)

// Limits describes the memory limit ConfigureFromEnv settled on.
type Limits struct {
	Source Source
	// Container is the parsed EnvMemoryLimit, 0 when unused.
	Container int64
	// GoLimit is the runtime soft limit in bytes, 0 when none is in effect.
	GoLimit int64
	// Ratio is the share of Container applied, 0 when unused.
	Ratio float64
}

// Configured reports whether a Go memory limit is in effect.
func (l Limits) Configured() bool { return l.GoLimit > 0 }

// ConfigureFromEnv applies a Go memory limit derived from the environment
// and reports what it did. GOMEMLIMIT, when set, is left alone and wins over
// EnvMemoryLimit. Call it before the scan starts allocating.
func ConfigureFromEnv() Limits {
	if raw := os.Getenv("GOMEMLIMIT"); raw != "" {
		logging.Info("Using GOMEMLIMIT=%s from the environment", raw)
		return Limits{Source: SourceGOMEMLIMIT, GoLimit: runtimeLimit()}
	}

	container, ok := containerLimit()
	if !ok {
		return Limits{Source: SourceNone}
	}

	ratio := heapRatio()
	goLimit := int64(float64(container) * ratio)
	debug.SetMemoryLimit(goLimit)

	logging.Info("GOMEMLIMIT set to %s (%.0f%% of the %s container limit)",
		FormatBytes(goLimit), ratio*100, FormatBytes(container))

	return Limits{Source: SourceContainer, Container: container, GoLimit: goLimit, Ratio: ratio}
}

func containerLimit() (int64, bool) {
	raw := strings.TrimSpace(os.Getenv(EnvMemoryLimit))
	if raw == "" {
		logging.Debug("%s not set, leaving the Go memory limit alone", EnvMemoryLimit)
		return 0, false
	}

	n, err := humanize.ParseBytes(raw)
	if err != nil || n == 0 || n > math.MaxInt64 {
		logging.Warn("Ignoring %s=%q: not a usable byte size", EnvMemoryLimit, raw)
		return 0, false
	}
	return int64(n), true
}

func heapRatio() float64 {
	raw := strings.TrimSpace(os.Getenv(EnvMemoryRatio))
	if raw == "" {
		return DefaultMemoryRatio
	}

	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("Ignoring %s=%q: want a fraction in (0, 1], using %.2f", EnvMemoryRatio, raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// runtimeLimit returns the runtime soft limit, or 0 when it is unlimited.
func runtimeLimit() int64 {
	if l := debug.SetMemoryLimit(-1); l > 0 && l < math.MaxInt64 {
		return l
	}
	return 0
}

// FormatBytes renders b with binary units, e.g. "1.5 KiB".
func FormatBytes(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}
