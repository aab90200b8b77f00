//go:build !purego

package store

// Default build: CGO SQLite driver.
//
//	CGO_ENABLED=1 go build ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver to use.
	DriverName = "sqlite3"

	dsnParams = "?_journal_mode=WAL&_busy_timeout=5000"
)
