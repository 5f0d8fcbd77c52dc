package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"datalint/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"buildTime" yaml:"buildTime"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// String renders the build info on one line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("datalint %s (commit %s, built %s, %s %s/%s)",
		b.Version, b.Commit, b.BuildTime, b.GoVersion, b.OS, b.Arch)
}

// Setting is one key/value line of the configuration summary.
type Setting struct {
	Key   string
	Value any
}

// ScanSummary is what LogScanComplete reports.
type ScanSummary struct {
	DatasetPath string
	CachePath   string
	Discovered  int
	Ignored     int
	Skipped     int
	Corrupted   int64
	Persisted   int
	RowErrors   int
	Batches     int
	Duration    time.Duration
}

// LogStartup prints the banner and system information.
func LogStartup() {
	printBanner()
	logSystemInfo()
}

// LogSection logs a section header.
func LogSection(title string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

// LogSettings logs the effective configuration.
func LogSettings(settings []Setting) {
	LogSection("CONFIGURATION")
	for _, s := range settings {
		logging.Info("  %-20s %v", s.Key+":", s.Value)
	}
	logging.Info("  %-20s %s", "log.level:", logging.GetLevel())
	logging.Info("")
}

// LogStoreInit logs cache store initialization
func LogStoreInit(backend, driver string, duration time.Duration) {
	LogSection("CACHE STORE")
	logging.Info("  Backend: %s (%s)", backend, driver)
	logging.Info("  [OK] Store opened and migrated in %v", duration)
	logging.Info("")
}

// LogVipsInit logs whether the libvips decode fallback is active.
func LogVipsInit(requested, available bool) {
	switch {
	case !requested:
		logging.Debug("  libvips fallback: DISABLED")
	case available:
		logging.Info("  [OK] libvips fallback enabled")
	default:
		logging.Warn("  libvips fallback requested but unavailable")
	}
}

// LogScanComplete logs the result of a cache build.
func LogScanComplete(s ScanSummary) {
	logging.Info("")
	LogSection("SCAN COMPLETE")
	logging.Info("  Dataset:      %s", s.DatasetPath)
	logging.Info("  Cache:        %s", s.CachePath)
	logging.Info("  Discovered:   %d images (%d other files ignored)", s.Discovered, s.Ignored)
	if s.Skipped > 0 {
		logging.Warn("  Skipped:      %d unreadable files", s.Skipped)
	}
	logging.Info("  Corrupted:    %d", s.Corrupted)
	logging.Info("  Persisted:    %d rows in %d batches", s.Persisted, s.Batches)
	if s.RowErrors > 0 {
		logging.Warn("  Row errors:   %d", s.RowErrors)
	}
	logging.Info("  Duration:     %v", s.Duration.Round(time.Millisecond))
}

// EnsureDirectory creates path if needed and checks it is a writable
// directory.
func EnsureDirectory(path string) error {
	logging.Debug("  Checking directory: %s", path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	if err := testWriteAccess(path); err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}

	logging.Debug("    [OK] Directory exists and is writable")
	return nil
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
       __      __        ___       __
  ____/ /___ _/ /_____ _/ (_)___  / /_
 / __  / __ '/ __/ __ '/ / / __ \/ __/
/ /_/ / /_/ / /_/ /_/ / / / / / / /_
\__,_/\__,_/\__/\__,_/_/_/_/ /_/\__/

------------------------------------------------------------`
	fmt.Fprintln(os.Stderr, banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	LogSection("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}
