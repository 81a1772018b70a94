package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// MigrationStatus describes the schema version of a database
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// newMigrator builds a migrate instance over the embedded migrations for the
// connection's dialect. The instance is never closed: closing it would close
// the shared *sql.DB handle.
func (db *DB) newMigrator() (*migrate.Migrate, error) {
	var (
		dir    string
		name   string
		driver database.Driver
		err    error
	)

	switch db.DriverName() {
	case "postgres", "pgx":
		dir, name = "migrations/postgres", "postgres"
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	case "sqlite3":
		dir, name = "migrations/sqlite3", "sqlite3"
		driver, err = sqlite3.WithInstance(db.DB.DB, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("no migrations for driver %q", db.DriverName())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, nil
}

// MigrateUp applies all pending migrations. It reports whether anything changed.
func (db *DB) MigrateUp() (bool, error) {
	m, err := db.newMigrator()
	if err != nil {
		return false, err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migration up failed: %w", err)
	}

	return true, nil
}

// MigrateDown reverts all migrations
func (db *DB) MigrateDown() (bool, error) {
	m, err := db.newMigrator()
	if err != nil {
		return false, err
	}

	if err := m.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migration down failed: %w", err)
	}

	return true, nil
}

// MigrationVersion returns the current schema version
func (db *DB) MigrationVersion() (*MigrationStatus, error) {
	m, err := db.newMigrator()
	if err != nil {
		return nil, err
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return &MigrationStatus{}, nil
		}
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}

	return &MigrationStatus{Version: version, Dirty: dirty}, nil
}
