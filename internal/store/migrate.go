package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// migrateUp applies every embedded migration under dir.
func migrateUp(db *sql.DB, fsys embed.FS, dialect, dir string) error {
	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// MigrationStatus reports the applied schema version and the latest
// embedded version for driver without applying anything.
func MigrationStatus(driver, dsn string) (current, latest int64, err error) {
	var (
		sqlDriver, dialect, dir string
		fsys                    embed.FS
	)
	switch driver {
	case "sqlite":
		sqlDriver, dialect, dir, fsys = "sqlite", "sqlite3", "migrations", migrations
	case "postgres":
		sqlDriver, dialect, dir, fsys = "pgx", "postgres", "pgmigrations", pgMigrations
	default:
		return 0, 0, fmt.Errorf("unknown storage driver: %s", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return 0, 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return 0, 0, fmt.Errorf("setting goose dialect: %w", err)
	}

	all, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return 0, 0, fmt.Errorf("collecting migrations: %w", err)
	}
	if last, err := all.Last(); err == nil {
		latest = last.Version
	}

	current, err = goose.GetDBVersion(db)
	if err != nil {
		current = 0
	}
	return current, latest, nil
}
