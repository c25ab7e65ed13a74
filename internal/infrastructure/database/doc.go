// Package database provides the embedded SQLite store used for unit
// state history.
//
// It wraps database/sql with the go-sqlite3 driver, configured for a
// single writer with WAL mode and a busy timeout, and applies embedded
// schema migrations on startup. Migration files live in the migrations
// package and follow the YYYYMMDD_HHMMSS_description.up.sql naming
// convention, with optional .down.sql counterparts for rollback.
package database
