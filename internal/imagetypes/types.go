package imagetypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// ExtensionSet maps a lower-cased extension (without the leading dot) to
// whether files with that extension are eligible for a decode attempt.
type ExtensionSet map[string]bool

// DefaultExtensions lists the formats scanned when no override is configured.
var DefaultExtensions = []string{
	"jpg", "jpeg", "png", "bmp", "gif", "webp", "tiff", "tif", "ico", "svg",
}

// Default returns a fresh copy of the default extension set.
func Default() ExtensionSet {
	return New(DefaultExtensions...)
}

// New builds a set from extension tokens. Tokens are normalized: a leading
// dot is dropped and case is folded. Empty tokens are ignored.
func New(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	set.Add(exts...)
	return set
}

// Add marks extensions as eligible.
func (s ExtensionSet) Add(exts ...string) {
	for _, ext := range exts {
		if n := Normalize(ext); n != "" {
			s[n] = true
		}
	}
}

// Matches reports whether path has an eligible extension.
func (s ExtensionSet) Matches(path string) bool {
	ext := Of(path)
	if ext == "" {
		return false
	}
	return s[ext]
}

// List returns the eligible extensions in sorted order.
func (s ExtensionSet) List() []string {
	out := make([]string, 0, len(s))
	for ext, ok := range s {
		if ok {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// Of returns the lower-cased extension of path without the dot, or "" when
// the file name has none. Dot-files such as ".png" have no extension.
func Of(path string) string {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && strings.Count(base, ".") == 1 {
		return ""
	}
	return Normalize(filepath.Ext(base))
}

// Normalize folds an extension token to its canonical form.
func Normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Format groups extensions that share a decoder.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatWebP    Format = "webp"
	FormatTIFF    Format = "tiff"
	FormatICO     Format = "ico"
	FormatSVG     Format = "svg"
	FormatUnknown Format = "unknown"
)

var formats = map[string]Format{
	"jpg":  FormatJPEG,
	"jpeg": FormatJPEG,
	"png":  FormatPNG,
	"gif":  FormatGIF,
	"bmp":  FormatBMP,
	"webp": FormatWebP,
	"tiff": FormatTIFF,
	"tif":  FormatTIFF,
	"ico":  FormatICO,
	"svg":  FormatSVG,
}

// FormatOf maps an extension token to its decoder family.
func FormatOf(ext string) Format {
	if f, ok := formats[Normalize(ext)]; ok {
		return f
	}
	return FormatUnknown
}
