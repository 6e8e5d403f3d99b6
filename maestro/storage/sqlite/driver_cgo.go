//go:build cgo_sqlite

package sqlite

// Built with -tags cgo_sqlite (and CGO_ENABLED=1) the adapter uses the C
// SQLite library through github.com/mattn/go-sqlite3.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver registered by the import above.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"

	dsnParams = "_busy_timeout=5000&_foreign_keys=on"
)
