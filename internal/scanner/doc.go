// Package scanner discovers candidate image files beneath a dataset root.
//
// Walk validates the root first, so a missing dataset fails before any cache
// state exists. The returned path list is unordered from the caller's point of
// view; downstream processing is parallel and does not depend on it.
//
// Symbolic links below the root are never followed, which keeps a scan finite
// on trees with link cycles. Permission-denied directories are skipped and
// counted in Result.Unreadable.
package scanner
