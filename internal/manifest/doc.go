// Package manifest persists one row per crawled path (its outcome, title,
// file location, content hash and fetch details) in SQLite via the pure-Go
// modernc.org/sqlite driver, so no cgo toolchain is needed.
package manifest
