// Package apperr defines the error taxonomy shared by the scan, process and
// persist stages.
//
// Every error that crosses a package boundary is an *Error carrying a Kind:
//   - KindNotFound: dataset root or cache path parent unusable (fatal)
//   - KindIO: read, write or metadata failure (per-file, absorbed)
//   - KindStore: connection, statement or transaction failure (fatal on commit)
//   - KindDecode: undecodable image bytes (folded into is_corrupted)
//   - KindDuplicate: row rejected by the unique content-hash index
//
// Callers test kinds with errors.Is against the package sentinels:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
package apperr
