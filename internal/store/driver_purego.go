//go:build purego

package store

// Pure Go SQLite driver, no C compiler required.
//
//	CGO_ENABLED=0 go build -tags purego ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver to use.
	DriverName = "sqlite"

	dsnParams = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
)
