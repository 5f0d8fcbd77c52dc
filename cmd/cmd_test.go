package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"datalint/internal/cache"
	"datalint/internal/config"
	"datalint/internal/logging"
	"datalint/internal/startup"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// isolate runs the test from an empty HOME and working directory so no
// user configuration leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writePNG(t *testing.T, path string, w, h int, seed uint8) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = seed + uint8(i)
	}
	img.Set(0, 0, color.NRGBA{R: seed, A: 128})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	writeBytes(t, path, buf.Bytes())
}

func writeBytes(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func makeDataset(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "dataset")
	writePNG(t, filepath.Join(root, "train", "a.png"), 8, 6, 1)
	writePNG(t, filepath.Join(root, "train", "b.png"), 4, 4, 2)
	writePNG(t, filepath.Join(root, "val", "c.png"), 5, 5, 3)
	writeBytes(t, filepath.Join(root, "test", "broken.png"), []byte("not an image"))
	writeBytes(t, filepath.Join(root, "labels.txt"), []byte("cat\ndog\n"))
	return root
}

func createArgs(dataset, cachePath string, extra ...string) []string {
	args := []string{"create", dataset, cachePath, "--quiet", "--no-progress", "--workers", "2"}
	return append(args, extra...)
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	code, out, _ := execute(t, "version")
	if code != ExitOK {
		t.Fatalf("exit code = %d, want %d", code, ExitOK)
	}
	if !strings.HasPrefix(out, "datalint ") {
		t.Errorf("version output = %q", out)
	}

	code, out, _ = execute(t, "version", "-o", "json")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	var info startup.BuildInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version json: %v", err)
	}
	if info.Version != startup.Version {
		t.Errorf("Version = %q, want %q", info.Version, startup.Version)
	}

	code, out, _ = execute(t, "version", "-o", "yaml")
	if code != ExitOK || !strings.Contains(out, "goVersion:") {
		t.Errorf("yaml output (code %d) = %q", code, out)
	}

	if code, _, _ := execute(t, "version", "-o", "xml"); code != ExitUsage {
		t.Errorf("unknown format exit code = %d, want %d", code, ExitUsage)
	}
}

func TestCreateStatsLookup(t *testing.T) {
	isolate(t)
	dataset := makeDataset(t)
	cachePath := filepath.Join(t.TempDir(), "out", "cache.db")

	code, out, errOut := execute(t, createArgs(dataset, cachePath, "--type", "YOLO", "--task", "detect")...)
	if code != ExitOK {
		t.Fatalf("create exit code = %d, stderr: %s", code, errOut)
	}
	if !strings.Contains(out, "cached 4 images (4 persisted, 1 corrupted)") {
		t.Errorf("create output = %q", out)
	}

	code, out, errOut = execute(t, "stats", cachePath, "--json")
	if code != ExitOK {
		t.Fatalf("stats exit code = %d, stderr: %s", code, errOut)
	}
	var info cache.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("stats json: %v\n%s", err, out)
	}
	if info.Total != 4 {
		t.Errorf("Total = %d, want 4", info.Total)
	}
	if info.Metadata.DatasetType != "yolo" || info.Metadata.DatasetTask != "detect" {
		t.Errorf("type/task = %q/%q", info.Metadata.DatasetType, info.Metadata.DatasetTask)
	}

	code, out, _ = execute(t, "stats", cachePath)
	if code != ExitOK {
		t.Fatalf("stats exit code = %d", code)
	}
	for _, want := range []string{"Images:    4", "train    2", "val      1", "test     1"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	code, out, errOut = execute(t, "lookup", cachePath, "--file", filepath.Join(dataset, "train", "a.png"))
	if code != ExitOK {
		t.Fatalf("lookup exit code = %d, stderr: %s", code, errOut)
	}
	if !strings.Contains(out, "Path:       train/a.png") || !strings.Contains(out, "Dimensions: 8x6, 4 channel(s)") {
		t.Errorf("lookup output = %q", out)
	}

	code, out, _ = execute(t, "lookup", cachePath, "--file", filepath.Join(dataset, "test", "broken.png"))
	if code != ExitOK || !strings.Contains(out, "Corrupted:  yes") {
		t.Errorf("lookup corrupted (code %d) = %q", code, out)
	}

	code, _, errOut = execute(t, "lookup", cachePath, "0000000000000000")
	if code != ExitError {
		t.Errorf("lookup miss exit code = %d, want %d", code, ExitError)
	}
	if !strings.Contains(errOut, "no image with hash 0000000000000000") {
		t.Errorf("lookup miss stderr = %q", errOut)
	}
}

func TestCreateSplitFromDirectoryName(t *testing.T) {
	isolate(t)
	dataset := t.TempDir()
	writePNG(t, filepath.Join(dataset, "images", "validation", "a.png"), 4, 4, 1)
	writePNG(t, filepath.Join(dataset, "data", "Train", "b.png"), 4, 4, 2)
	writePNG(t, filepath.Join(dataset, "train_val", "c.png"), 4, 4, 3)
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	if code, _, errOut := execute(t, createArgs(dataset, cachePath)...); code != ExitOK {
		t.Fatalf("create exit code = %d: %s", code, errOut)
	}
	code, out, _ := execute(t, "stats", cachePath)
	if code != ExitOK {
		t.Fatalf("stats exit code = %d", code)
	}
	for _, want := range []string{"train    1", "val      1", "unknown  1"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	_, help, _ := execute(t, "create", "--help")
	if !strings.Contains(help, `"validation" counts as val`) || strings.Contains(help, "first directory component") {
		t.Errorf("create help does not describe split inference:\n%s", help)
	}
}

func TestCreateExistingCacheNeedsOverwrite(t *testing.T) {
	isolate(t)
	dataset := makeDataset(t)
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	if code, _, errOut := execute(t, createArgs(dataset, cachePath)...); code != ExitOK {
		t.Fatalf("first create exit code = %d: %s", code, errOut)
	}
	if code, _, _ := execute(t, createArgs(dataset, cachePath)...); code != ExitError {
		t.Errorf("second create exit code = %d, want %d", code, ExitError)
	}
	if code, _, errOut := execute(t, createArgs(dataset, cachePath, "--overwrite")...); code != ExitOK {
		t.Errorf("overwrite exit code = %d: %s", code, errOut)
	}
}

func TestCreateMissingDataset(t *testing.T) {
	dir := isolate(t)
	cachePath := filepath.Join(dir, "nested", "cache.db")

	code, _, errOut := execute(t, createArgs(filepath.Join(dir, "absent"), cachePath)...)
	if code != ExitError {
		t.Errorf("exit code = %d, want %d", code, ExitError)
	}
	if !strings.Contains(errOut, "not-found") {
		t.Errorf("stderr = %q", errOut)
	}
	if _, err := os.Stat(filepath.Dir(cachePath)); !os.IsNotExist(err) {
		t.Errorf("cache directory created for a missing dataset: %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{"create without cache", []string{"create", "only-dataset"}},
		{"unknown flag", []string{"create", "--frobnicate"}},
		{"lookup without hash", []string{"lookup", "cache.db"}},
		{"lookup with hash and file", []string{"lookup", "cache.db", "abc", "--file", "x.png"}},
		{"stats without cache", []string{"stats"}},
		{"unsupported driver", []string{"stats", "cache.db", "--driver", "postgres"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := execute(t, tt.args...)
			if code != ExitUsage {
				t.Errorf("exit code = %d, want %d (stderr %q)", code, ExitUsage, errOut)
			}
		})
	}
}

func TestInvalidEnvironmentConfig(t *testing.T) {
	isolate(t)
	t.Setenv("DATALINT_STORE_DEDUP", "maybe")

	code, _, errOut := execute(t, "stats", "cache.db")
	if code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(errOut, "store.dedup") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)

	code, out, _ := execute(t, "config", "init")
	if code != ExitOK {
		t.Fatalf("config init exit code = %d", code)
	}
	if !strings.Contains(out, config.FileName) {
		t.Errorf("config init output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	if code, _, _ := execute(t, "config", "init"); code != ExitUsage {
		t.Errorf("second init exit code = %d, want %d", code, ExitUsage)
	}
	if code, _, _ := execute(t, "config", "init", "--force"); code != ExitOK {
		t.Errorf("forced init exit code = %d", code)
	}

	// The template in the working directory is picked up; flags beat env.
	t.Setenv("DATALINT_STORE_BACKEND", "sql")
	t.Setenv("DATALINT_STORE_BATCH_SIZE", "250")
	code, out, errOut := execute(t, "config", "show", "--backend", "gorm")
	if code != ExitOK {
		t.Fatalf("config show exit code = %d: %s", code, errOut)
	}
	for _, want := range []string{"backend: gorm", "batch_size: 250", "algorithm: xxh64"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsTextfile(t *testing.T) {
	dir := isolate(t)
	dataset := makeDataset(t)
	promPath := filepath.Join(dir, "metrics", "datalint.prom")

	code, _, errOut := execute(t, createArgs(dataset, filepath.Join(dir, "cache.db"), "--metrics-textfile", promPath)...)
	if code != ExitOK {
		t.Fatalf("create exit code = %d: %s", code, errOut)
	}

	data, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	for _, want := range []string{"datalint_scan_runs_total", "datalint_scan_files_discovered_total"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %s", want)
		}
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if got := exitCode(nil, &buf); got != ExitOK {
		t.Errorf("nil error = %d", got)
	}
	if got := exitCode(context.Canceled, &buf); got != ExitInterrupted {
		t.Errorf("cancelled = %d, want %d", got, ExitInterrupted)
	}
	if got := exitCode(usagef("bad"), &buf); got != ExitUsage {
		t.Errorf("usage = %d, want %d", got, ExitUsage)
	}
	if got := exitCode(io.ErrUnexpectedEOF, &buf); got != ExitError {
		t.Errorf("plain error = %d, want %d", got, ExitError)
	}
}
