package database

import (
	"strings"
	"time"
)

// Split is the dataset partition an image belongs to.
type Split string

const (
	SplitTrain   Split = "train"
	SplitVal     Split = "val"
	SplitTest    Split = "test"
	SplitUnknown Split = "unknown"
)

// Splits lists every split label in display order.
var Splits = []Split{SplitTrain, SplitVal, SplitTest, SplitUnknown}

// ParseSplit maps a stored label back to a Split. Anything unrecognised is
// SplitUnknown.
func ParseSplit(s string) Split {
	switch Split(strings.ToLower(s)) {
	case SplitTrain:
		return SplitTrain
	case SplitVal:
		return SplitVal
	case SplitTest:
		return SplitTest
	default:
		return SplitUnknown
	}
}

// ImageRecord is one cached image. Width, Height and Channels are nil when
// the file could not be decoded.
type ImageRecord struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Filename     string `json:"filename"`
	Extension    string `json:"extension,omitempty"`
	RelativePath string `json:"relativePath"`
	Split        Split  `json:"split"`
	Width        *int   `json:"width,omitempty"`
	Height       *int   `json:"height,omitempty"`
	Channels     *int   `json:"channels,omitempty"`
	FileSize     int64  `json:"fileSize"`
	FileHash     string `json:"fileHash"`
	IsCorrupted  bool   `json:"isCorrupted"`
}

// Dimensions returns width, height and channels, or zeros when undecoded.
func (r *ImageRecord) Dimensions() (w, h, c int) {
	if r.Width != nil {
		w = *r.Width
	}
	if r.Height != nil {
		h = *r.Height
	}
	if r.Channels != nil {
		c = *r.Channels
	}
	return w, h, c
}

// Location is the record's path relative to the dataset root.
func (r *ImageRecord) Location() string {
	if r.RelativePath == "" {
		return r.Filename
	}
	return r.RelativePath + "/" + r.Filename
}

// CacheMetadata describes the dataset a cache was built from. One row per
// cache, written once.
type CacheMetadata struct {
	ID            int64     `json:"id"`
	DatasetPath   string    `json:"datasetPath"`
	DatasetType   string    `json:"datasetType"`
	DatasetTask   string    `json:"datasetTask"`
	Version       string    `json:"version"`
	HashAlgorithm string    `json:"hashAlgorithm"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SplitCount is one row of a count-by-split query.
type SplitCount struct {
	Split Split `json:"split"`
	Count int64 `json:"count"`
}
