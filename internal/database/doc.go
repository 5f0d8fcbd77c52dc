// Package database persists the image metadata cache.
//
// The Store interface is the only thing the rest of datalint sees. Two
// implementations exist:
//
//   - SQLStore: database/sql over SQLite, with either the cgo driver
//     (mattn/go-sqlite3, "sqlite3") or the pure Go driver (modernc.org/sqlite,
//     "sqlite"). The schema is plain DDL (schema.go).
//   - GormStore: gorm with the sqlite dialect (either driver) or MySQL. The
//     schema is derived from row types that mirror the DDL.
//
// Writes happen through a Batch, one transaction per batch. A failed row
// insert returns an error but leaves the transaction usable, so callers can
// record the failure and continue. Begin and commit failures are fatal.
//
// SQLite caches are opened in WAL mode with a busy timeout so read-only
// commands can inspect a cache while nothing else writes to it. Only one
// writer per cache file is supported.
//
// Every operation records DBQueryTotal/DBQueryDuration metrics.
package database
