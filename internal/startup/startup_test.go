package startup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	// Check that all fields are populated
	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}

	// Verify that runtime values are correct
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{
		Version:   "1.2.3",
		Commit:    "abc1234",
		BuildTime: "2026-01-01T00:00:00Z",
		GoVersion: "go1.26.0",
		OS:        "linux",
		Arch:      "amd64",
	}

	got := info.String()
	for _, want := range []string{"datalint 1.2.3", "abc1234", "go1.26.0", "linux/amd64"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}

func TestEnsureDirectory(t *testing.T) {
	t.Parallel()

	t.Run("creates missing nested directory", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "a", "b", "c")
		if err := EnsureDirectory(dir); err != nil {
			t.Fatalf("EnsureDirectory() error = %v", err)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory not created: %v", err)
		}
	})

	t.Run("existing directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := EnsureDirectory(dir); err != nil {
			t.Fatalf("EnsureDirectory() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
			t.Error("write test file left behind")
		}
	})

	t.Run("path is a file", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := EnsureDirectory(file); err == nil {
			t.Error("Expected error for a regular file")
		}
	})
}

// Logging helpers only write output; these calls guard against panics.
func TestLoggingHelpers(_ *testing.T) {
	LogSettings([]Setting{{Key: "scan.workers", Value: 4}, {Key: "store.backend", Value: "sql"}})
	LogStoreInit("sql", "sqlite3", 10*time.Millisecond)
	LogVipsInit(false, false)
	LogVipsInit(true, false)
	LogVipsInit(true, true)
	LogScanComplete(ScanSummary{
		DatasetPath: "/data",
		CachePath:   "/data/.cache.db",
		Discovered:  10,
		Skipped:     1,
		Persisted:   9,
		RowErrors:   1,
		Batches:     1,
		Duration:    time.Second,
	})
}
