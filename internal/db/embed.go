package db

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

// DevMode switches getMigrationsFS to read migrations from the local
// source tree instead of the embedded copy.
var DevMode = false

//go:embed migrations/*.sql
var migrationsFS embed.FS

// getMigrationsFS returns the migration files rooted at the directory
// containing the SQL (embedded FS in production, local files in dev).
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		dir := "internal/db/migrations"
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("dev migrations dir: %w", err)
		}
		return os.DirFS(dir), nil
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("embedded migrations: %w", err)
	}
	return sub, nil
}

// Migrations exposes the migration files for callers outside the
// package.
func Migrations() (fs.FS, error) {
	return getMigrationsFS()
}
