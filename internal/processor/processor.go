package processor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"datalint/internal/apperr"
	"datalint/internal/database"
	"datalint/internal/hashing"
	"datalint/internal/imagetypes"
	"datalint/internal/logging"
	"datalint/internal/metrics"
)

// Options configures a Processor.
type Options struct {
	Hash    hashing.Algorithm
	Decoder Decoder
}

// Processor turns a discovered file into an ImageRecord. It holds no mutable
// state and is safe for concurrent use.
type Processor struct {
	root    string
	hash    hashing.Algorithm
	decoder Decoder
}

// New returns a Processor for files under root.
func New(root string, opts Options) *Processor {
	if opts.Hash == "" {
		opts.Hash = hashing.Default
	}
	return &Processor{root: filepath.Clean(root), hash: opts.Hash, decoder: opts.Decoder}
}

// Process reads, hashes and decodes one file. A read or stat failure is
// returned as an error and the file should be dropped. A decode failure is
// not an error: the record comes back with IsCorrupted set.
func (p *Processor) Process(path string) (*database.ImageRecord, error) {
	start := time.Now()
	defer func() { metrics.ProcessDuration.Observe(time.Since(start).Seconds()) }()

	filename := filepath.Base(path)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, apperr.IO("process", path, errors.New("no file name"))
	}
	ext := imagetypes.Of(filename)
	name := stem(filename)

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.IO("stat", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.IO("read", path, err)
	}

	rel := RelativeDir(p.root, path)
	rec := &database.ImageRecord{
		Name:         name,
		Filename:     filename,
		Extension:    ext,
		RelativePath: rel,
		Split:        InferSplit(rel),
		FileSize:     info.Size(),
		FileHash:     p.hash.Sum(data),
	}

	img, err := p.decoder.Decode(data, ext)
	if err != nil {
		logging.Debug("Marking %s corrupted: %v", path, err)
		rec.IsCorrupted = true
		return rec, nil
	}

	w, h, c := img.Width, img.Height, img.Channels
	rec.Width, rec.Height, rec.Channels = &w, &h, &c
	return rec, nil
}

// RelativeDir returns the directory containing path relative to root, using
// forward slashes. Files directly under root, and paths outside root, yield "".
func RelativeDir(root, path string) string {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

// stem strips the final extension; dot-files keep their full name.
func stem(filename string) string {
	ext := filepath.Ext(filename)
	if ext == filename {
		return filename
	}
	return strings.TrimSuffix(filename, ext)
}
