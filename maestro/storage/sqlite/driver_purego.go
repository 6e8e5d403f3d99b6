//go:build !cgo_sqlite

package sqlite

// The default build uses the pure Go translation of SQLite from
// modernc.org/sqlite, so the binary needs no C toolchain.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver registered by the import above.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"

	dsnParams = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
)
