package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"datalint/internal/apperr"
	"datalint/internal/imagetypes"
	"datalint/internal/logging"
)

// Options configures a directory scan.
type Options struct {
	// Extensions selects candidate files. Nil means imagetypes.Default().
	Extensions imagetypes.ExtensionSet
	// SkipHidden drops files and directories whose name starts with ".".
	SkipHidden bool
}

// Result is the outcome of a scan.
type Result struct {
	// Paths holds every candidate file, in no particular order.
	Paths []string
	// Ignored counts regular files rejected by the extension filter.
	Ignored int
	// Unreadable counts entries skipped because they could not be read.
	Unreadable int
	// Symlinks counts symbolic links that were not followed.
	Symlinks int
}

// CheckRoot verifies that root exists and is a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.NotFound("scan", root, err)
		}
		return apperr.IO("scan", root, err)
	}
	if !info.IsDir() {
		return apperr.NotFound("scan", root, errors.New("not a directory"))
	}
	return nil
}

// Walk recursively lists candidate image files under root. It fails with an
// apperr.ErrNotFound error when root is missing or not a directory. Symbolic
// links and entries that cannot be read are skipped.
func Walk(ctx context.Context, root string, opts Options) (Result, error) {
	var res Result

	if err := CheckRoot(root); err != nil {
		return res, err
	}

	exts := opts.Extensions
	if exts == nil {
		exts = imagetypes.Default()
	}

	// A symlinked root is followed; links below it are not.
	start := root
	if info, err := os.Lstat(root); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		start = root + string(filepath.Separator)
	}

	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			res.Unreadable++
			logging.Debug("Skipping unreadable path %s: %v", path, err)
			if d != nil && d.IsDir() && path != start {
				return filepath.SkipDir
			}
			return nil
		}

		if path == start {
			return nil
		}

		if opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			res.Symlinks++
			logging.Debug("Skipping symlink %s", path)
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if !exts.Matches(path) {
			res.Ignored++
			return nil
		}

		res.Paths = append(res.Paths, path)
		return nil
	})
	if err != nil {
		return res, err
	}

	logging.Debug("Scan of %s found %d candidates (%d ignored, %d unreadable, %d symlinks)",
		root, len(res.Paths), res.Ignored, res.Unreadable, res.Symlinks)

	return res, nil
}
