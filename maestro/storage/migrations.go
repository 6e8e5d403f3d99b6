package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

// CurrentSchemaVersion tracks the newest migration known to this build.
const CurrentSchemaVersion = "1.1.0"

// Migration is one forward schema step. Up may hold several statements.
type Migration struct {
	Version string
	Up      string
}

const createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// ApplyMigrations runs every migration newer than the highest recorded
// version, in order, and records each one.
func ApplyMigrations(ctx context.Context, db *sql.DB, style sqlbuilder.PlaceholderStyle, migrations []Migration) error {
	if _, err := db.ExecContext(ctx, createSchemaVersion); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if !current.LessThan(migrationVersion) {
			continue
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		b := sqlbuilder.New(style)
		q := "INSERT INTO schema_version (version) VALUES (" + b.Arg(migration.Version) + ")"
		if _, err := db.ExecContext(ctx, q, b.Args()...); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
		current = migrationVersion
	}
	return nil
}

// SchemaVersion returns the highest applied version, or 0.0.0.
func SchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to read schema_version: %w", err)
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}
