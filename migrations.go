package main

import (
	"database/sql"
	"fmt"
)

// migrate runs database migrations to ensure schema is up to date.
func (s *SQLiteStore) migrate() error {
	// Ensure metadata table exists first
	if err := s.ensureMetadataTable(); err != nil {
		return err
	}

	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	// Run migrations sequentially
	migrations := []struct {
		version int
		name    string
		fn      func() error
	}{
		{1, "initial_schema", s.runMigration001_InitialSchema},
		// Future migrations go here
		// {2, "add_deck_stats", s.runMigration002_AddDeckStats},
	}

	for _, m := range migrations {
		if version < m.version {
			fmt.Printf("Running migration %d: %s\n", m.version, m.name)
			if err := m.fn(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setSchemaVersion(m.version); err != nil {
				return fmt.Errorf("failed to update schema version: %w", err)
			}
			version = m.version
		}
	}

	fmt.Printf("Database schema up to date (version %d)\n", version)
	return nil
}

func (s *SQLiteStore) ensureMetadataTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT
		)
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) getSchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil // No version set = version 0
	}
	return version, err
}

func (s *SQLiteStore) setSchemaVersion(version int) error {
	query := `
		INSERT OR REPLACE INTO metadata (key, value)
		VALUES ('schema_version', ?)
	`
	_, err := s.db.Exec(query, fmt.Sprintf("%d", version))
	return err
}

// runMigration001_InitialSchema creates the snapshots table: the whole
// collection persists as a single versioned JSON blob (spec.md §4.6),
// not as per-entity tables the way the teacher's relational schema did.
func (s *SQLiteStore) runMigration001_InitialSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		schema_version INTEGER NOT NULL,
		data BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
