package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// SchemaVersion is bumped whenever a column is added to pendingMigrations.
const SchemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	seq INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	kind TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	section TEXT NOT NULL DEFAULT '',
	old_content TEXT NOT NULL DEFAULT '',
	new_content TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_document ON snapshots(document_id, seq);

CREATE TABLE IF NOT EXISTS history_state (
	document_id TEXT PRIMARY KEY REFERENCES documents(id),
	current_id TEXT NOT NULL DEFAULT '',
	next_seq INTEGER NOT NULL,
	max_versions INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS patches (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	section TEXT NOT NULL DEFAULT '',
	intent TEXT NOT NULL DEFAULT '',
	old_text TEXT NOT NULL,
	new_text TEXT NOT NULL,
	justification TEXT NOT NULL DEFAULT '',
	changes_json TEXT NOT NULL DEFAULT '[]',
	decision TEXT NOT NULL,
	passed INTEGER NOT NULL,
	report_json TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patches_document ON patches(document_id, recorded_at);

CREATE TABLE IF NOT EXISTS schema_versions (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);
`

// migration adds a column that older databases lack.
type migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists columns added after the first release.
var pendingMigrations = []migration{
	// v2: snapshot that a patch decision produced
	{"patches", "snapshot_id", "TEXT NOT NULL DEFAULT ''"},
}

func (s *Store) initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return s.runMigrations()
}

// runMigrations applies pendingMigrations and records the schema version.
func (s *Store) runMigrations() error {
	applied := 0
	for _, m := range pendingMigrations {
		exists, err := columnExists(s.db, m.Table, m.Column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		s.log.Info("migration applied", zap.String("table", m.Table), zap.String("column", m.Column))
		applied++
	}

	_, err := s.db.Exec(`INSERT OR IGNORE INTO schema_versions (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	s.log.Debug("schema ready", zap.Int("version", SchemaVersion), zap.Int("migrations_applied", applied))
	return nil
}

// Version returns the highest recorded schema version.
func (s *Store) Version() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var v int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("table_info(%s): %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
