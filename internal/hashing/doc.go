// Package hashing computes the content hash that identifies an image in the
// cache. Identical bytes always produce the identical digest regardless of
// file name or location.
//
// xxh64 is the default because scans hash every file in the dataset; sha256
// and blake2b are available when the cache is shared with tools that expect a
// cryptographic digest. The digest is always lowercase hex of fixed width
// (Algorithm.HexLen). A cache records which algorithm filled it.
package hashing
