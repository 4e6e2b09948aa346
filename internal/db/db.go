// Package db stores decoded replay events in SQLite for offline
// analysis of filtered runs.
package db

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens the events database at path, creating the file if needed.
// The schema is managed by MigrateUp; callers run it before writing.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	return &DB{sqlDB}, nil
}
