package main

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SnapshotStore is the persistence contract from spec.md §4.6: whole-
// store JSON, versioned, loaded/saved atomically. Generalized from the
// teacher's row-level Store interface (storage.go), which persisted
// every entity as its own table; here the entities stay row-relational
// only for the housekeeping table, and the collection itself is a
// single JSON blob column, since spec.md's wire format is the whole
// store, not per-row CRUD.
type SnapshotStore interface {
	SaveSnapshot(col *Collection) error
	LoadSnapshot(col *Collection) error
	Close() error
}

// SQLiteStore implements SnapshotStore using SQLite as the durable
// substrate, reusing the teacher's driver (mattn/go-sqlite3) and
// migration-runner idiom (migrations.go) even though the schema itself
// is now just a single-row snapshots table plus metadata.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the sqlite file at dbPath
// and runs migrations, the way the teacher's NewSQLiteStore does.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot serializes col and upserts it as the single row of the
// snapshots table. Write failures are non-fatal per spec.md §4.5/§4.6 —
// the caller logs and retries on the next debounce.
func (s *SQLiteStore) SaveSnapshot(col *Collection) error {
	data, err := col.Marshal()
	if err != nil {
		return invariantViolation("SaveSnapshot", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO snapshots (id, schema_version, data, saved_at)
		VALUES (1, ?, ?, strftime('%s','now'))
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			data = excluded.data,
			saved_at = excluded.saved_at
	`, schemaVersion, data)
	if err != nil {
		return ioFailure("SaveSnapshot", err)
	}
	return nil
}

// LoadSnapshot reads the stored blob and replaces col's repositories
// atomically. A missing row leaves col as a fresh, empty collection —
// the first-run case the teacher's InitDefaultCollection covers.
func (s *SQLiteStore) LoadSnapshot(col *Collection) error {
	row := s.db.QueryRow(`SELECT data FROM snapshots WHERE id = 1`)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return ioFailure("LoadSnapshot", err)
	}
	if err := col.Unmarshal(data); err != nil {
		return err
	}
	return nil
}
