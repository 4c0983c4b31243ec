// Package catalog tracks saved archives in a local SQLite database so they
// can be listed and pruned without reopening every file.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/binfalse/CombineArchive-fb/internal/catalog/migrations"
	"github.com/binfalse/CombineArchive-fb/internal/omex"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Record is one cataloged archive.
type Record struct {
	ID        string
	Path      string
	MainFile  string
	Entries   int64
	Size      int64
	AddedAt   time.Time
	UpdatedAt time.Time
}

// Store provides access to the archive catalog. A Store holds an exclusive
// file lock for its lifetime so concurrent processes fail fast instead of
// corrupting the database.
type Store struct {
	db    *sql.DB
	lock  *flock.Flock
	path  string
	clock omex.Clock
	idgen omex.IDGenerator
}

// Open opens the catalog at path. The schema must be up to date; run
// Migrate first on a fresh catalog.
func Open(path string, clock omex.Clock, idgen omex.IDGenerator) (*Store, error) {
	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	db, err := openConnection(path)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	if err := migrations.Check(db); err != nil {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("checking catalog schema: %w", err)
	}

	return &Store{db: db, lock: lock, path: path, clock: clock, idgen: idgen}, nil
}

// Migrate brings the catalog at path to the latest schema version, creating
// the database if needed.
func Migrate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}

	lock, err := acquireLock(path)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	db, err := openConnection(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return fmt.Errorf("migrating catalog: %w", err)
	}
	return nil
}

func acquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring catalog lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("catalog %s is in use by another process", path)
	}
	return lock, nil
}

// openConnection opens and configures a SQLite connection.
func openConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Upsert records the archive at rec.Path, inserting a new row or refreshing
// the existing one. The stored record is returned; the original id and
// added_at survive an update.
func (s *Store) Upsert(rec Record) (*Record, error) {
	now := s.clock.Now()
	_, err := s.db.Exec(`
		INSERT INTO archives (id, path, main_file, entries, size, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			main_file = excluded.main_file,
			entries = excluded.entries,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		s.idgen.New(), rec.Path, rec.MainFile, rec.Entries, rec.Size, now, now)
	if err != nil {
		return nil, fmt.Errorf("upserting archive %s: %w", rec.Path, err)
	}
	return s.Get(rec.Path)
}

// Get returns the record for path, or nil if the archive is not cataloged.
func (s *Store) Get(path string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, path, main_file, entries, size, added_at, updated_at
		FROM archives WHERE path = ?`, path)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding archive by path: %w", err)
	}
	return rec, nil
}

// List returns every cataloged archive ordered by path.
func (s *Store) List() ([]*Record, error) {
	rows, err := s.db.Query(`
		SELECT id, path, main_file, entries, size, added_at, updated_at
		FROM archives ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("listing archives: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	return records, nil
}

// Delete removes path from the catalog. It reports whether a record existed.
func (s *Store) Delete(path string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM archives WHERE path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("deleting archive %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting archive %s: %w", path, err)
	}
	return n > 0, nil
}

// Close releases the database connection and the catalog lock.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.lock.Unlock()
			return fmt.Errorf("closing catalog: %w", err)
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			return fmt.Errorf("releasing catalog lock: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Path, &rec.MainFile, &rec.Entries, &rec.Size, &rec.AddedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
