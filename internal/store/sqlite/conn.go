// Package sqlite implements the inventory, vault, template and history
// stores on top of mattn/go-sqlite3, one physical database file per logical
// store, matching the four read/write surfaces the collection core talks to.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// OpenConnection opens a sqlite3 database at path and enables foreign key
// enforcement, which sqlite otherwise leaves off per-connection by default.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys on %s: %w", path, err)
	}

	// TODO: WAL + busy_timeout once concurrent-writer store access
	// patterns are measured under real job/batch concurrency.
	db.SetMaxOpenConns(1)

	return db, nil
}

// OpenReadOnlyPool opens a sqlite3 database intended for many concurrent
// reader connections (inventory, template, and secret-store reads during a
// run). Each caller is expected to hold its own *sql.DB per the "each worker
// acquires its own read-only handle" design note.
func OpenReadOnlyPool(path string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open read-only sqlite database %s: %w", path, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	return db, nil
}
