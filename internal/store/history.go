package store

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"redline/internal/version"
)

// SaveHistory replaces the stored history of a document with h. The
// document row is created when missing. The write is one transaction, so a
// crash leaves either the old or the new history, never a mix.
func (s *Store) SaveHistory(path string, h version.History) (string, error) {
	if err := h.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	docID, err := s.saveDocument(tx, path)
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE document_id = ?`, docID); err != nil {
		return "", fmt.Errorf("failed to clear snapshots: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO snapshots (id, document_id, seq, created_at, kind, description, section, old_content, new_content, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, snap := range h.Snapshots {
		_, err := stmt.Exec(snap.ID, docID, snap.Seq, formatTime(snap.CreatedAt), string(snap.Kind),
			snap.Description, snap.Section, snap.OldContent, snap.NewContent, snap.Document)
		if err != nil {
			return "", fmt.Errorf("failed to insert snapshot %s: %w", snap.ID, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO history_state (document_id, current_id, next_seq, max_versions, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			current_id = excluded.current_id,
			next_seq = excluded.next_seq,
			max_versions = excluded.max_versions,
			updated_at = excluded.updated_at`,
		docID, h.Current, h.NextSeq, h.Max, formatTime(s.now()))
	if err != nil {
		return "", fmt.Errorf("failed to save history state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit history: %w", err)
	}
	s.log.Debug("history saved",
		zap.String("document_id", docID),
		zap.Int("snapshots", len(h.Snapshots)),
		zap.String("current", h.Current))
	return docID, nil
}

// LoadHistory returns the stored history of the document at path. It
// returns ErrNotFound when the document has never been saved.
func (s *Store) LoadHistory(path string) (version.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docID := DocumentID(path)

	var h version.History
	err := s.db.QueryRow(`SELECT current_id, next_seq, max_versions FROM history_state WHERE document_id = ?`, docID).
		Scan(&h.Current, &h.NextSeq, &h.Max)
	if errors.Is(err, sql.ErrNoRows) {
		return version.History{}, fmt.Errorf("history for %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return version.History{}, fmt.Errorf("failed to load history state: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, seq, created_at, kind, description, section, old_content, new_content, content
		FROM snapshots WHERE document_id = ? ORDER BY seq`, docID)
	if err != nil {
		return version.History{}, fmt.Errorf("failed to load snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snap version.Snapshot
		var created, kind string
		if err := rows.Scan(&snap.ID, &snap.Seq, &created, &kind, &snap.Description, &snap.Section,
			&snap.OldContent, &snap.NewContent, &snap.Document); err != nil {
			return version.History{}, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.CreatedAt = parseTime(created)
		snap.Kind = version.Kind(kind)
		h.Snapshots = append(h.Snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return version.History{}, err
	}
	return h, nil
}
