// Package processor turns a discovered image file into a cache record.
//
// Each file is read once. The bytes are hashed for content addressing and
// fully decoded to obtain width, height and channel count. Decoding tries
// the Go decoders first (standard library plus golang.org/x/image, driven
// through disintegration/imaging), with dedicated paths for SVG via oksvg
// and for ICO directories. When enabled, libvips is a fallback for data the
// Go decoders reject.
//
// A file that cannot be decoded is not an error: it is recorded with
// IsCorrupted set and no dimensions. Only failures to stat or read the file
// are returned, and such files are dropped from the scan.
//
// The dataset split is inferred from the record's relative directory by
// InferSplit.
package processor
