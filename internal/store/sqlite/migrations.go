package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/inventory/*.sql
var inventoryMigrations embed.FS

//go:embed migrations/vault/*.sql
var vaultMigrations embed.FS

//go:embed migrations/templates/*.sql
var templateMigrations embed.FS

//go:embed migrations/history/*.sql
var historyMigrations embed.FS

// MigrateInventory brings the inventory database to the latest schema.
func MigrateInventory(db *sql.DB) error { return migrateUp(db, inventoryMigrations, "migrations/inventory") }

// MigrateVault brings the secret store database to the latest schema.
func MigrateVault(db *sql.DB) error { return migrateUp(db, vaultMigrations, "migrations/vault") }

// MigrateTemplates brings the template store database to the latest schema.
func MigrateTemplates(db *sql.DB) error { return migrateUp(db, templateMigrations, "migrations/templates") }

// MigrateHistory brings the run/capture history database to the latest schema.
func MigrateHistory(db *sql.DB) error { return migrateUp(db, historyMigrations, "migrations/history") }

func migrateUp(db *sql.DB, fsys embed.FS, root string) error {
	m, err := newMigrate(db, fsys, root)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s up: %w", root, err)
	}
	return nil
}

func newMigrate(db *sql.DB, fsys embed.FS, root string) (*migrate.Migrate, error) {
	sub, err := fs.Sub(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("migration subtree %s: %w", root, err)
	}

	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source %s: %w", root, err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver %s: %w", root, err)
	}

	return migrate.NewWithInstance("iofs", src, "sqlite3", driver)
}

// CheckMigrationStatus reports the latest available schema version for a
// migration set without applying it. No command in this module calls it.
func CheckMigrationStatus(fsys embed.FS, root string) (uint, error) {
	sub, err := fs.Sub(fsys, root)
	if err != nil {
		return 0, err
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return 0, err
	}
	return getLatestVersion(src)
}

func getLatestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no migrations found: %w", err)
	}

	for {
		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}
	return version, nil
}
