package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// documentNamespace scopes document ids derived from file paths.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("redline:document"))

// Document is a tracked report file.
type Document struct {
	ID        string
	Path      string
	CreatedAt string
	UpdatedAt string
}

// DocumentID derives a stable id from a file path. Relative paths are made
// absolute first so the same file gets the same id from any directory.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(documentNamespace, []byte(filepath.Clean(path))).String()
}

// SaveDocument registers a document (or touches its updated_at) and
// returns its id.
func (s *Store) SaveDocument(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveDocument(s.db, path)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store) saveDocument(db execer, path string) (string, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id := DocumentID(path)
	now := formatTime(s.now())
	_, err := db.Exec(`
		INSERT INTO documents (id, path, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		id, path, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}
	s.log.Debug("document saved", zap.String("id", id), zap.String("path", path))
	return id, nil
}

// LoadDocument returns a document by id.
func (s *Store) LoadDocument(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d Document
	err := s.db.QueryRow(`SELECT id, path, created_at, updated_at FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Path, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to load document: %w", err)
	}
	return d, nil
}

// Documents lists every tracked document, most recently updated first.
func (s *Store) Documents() ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, path, created_at, updated_at FROM documents ORDER BY updated_at DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Path, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
