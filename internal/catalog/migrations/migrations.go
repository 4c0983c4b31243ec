// Package migrations holds the catalog schema as embedded SQL files and
// applies them with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var files embed.FS

// Check verifies that the catalog schema matches the migrations compiled
// into this binary. Fresh and outdated catalogs yield an error pointing at
// 'omex catalog migrate'; a catalog written by a newer binary is rejected
// too.
func Check(db *sql.DB) error {
	m, src, err := newMigrate(db)
	if err != nil {
		return err
	}
	// Closing m would close db, which the caller still owns. Only the
	// source driver is released here.
	defer src.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("catalog has no schema yet, run 'omex catalog migrate'")
	}
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("catalog schema is dirty at version %d, an earlier migration was interrupted", version)
	}

	latest, err := latestVersion(src)
	if err != nil {
		return fmt.Errorf("inspecting bundled migrations: %w", err)
	}
	switch {
	case version < latest:
		return fmt.Errorf("catalog schema version %d is behind %d, run 'omex catalog migrate'", version, latest)
	case version > latest:
		return fmt.Errorf("catalog schema version %d is newer than this binary supports (%d)", version, latest)
	}
	return nil
}

// Up applies every pending migration. An already current catalog is not an
// error.
func Up(db *sql.DB) error {
	m, src, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, source.Driver, error) {
	src, err := iofs.New(files, "files")
	if err != nil {
		return nil, nil, fmt.Errorf("reading embedded migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("preparing sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("preparing migrations: %w", err)
	}
	return m, src, nil
}

func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			// Next past the last migration reports a missing file.
			return v, nil
		}
		v = next
	}
}
