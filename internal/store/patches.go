package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"redline/internal/patch"
	"redline/internal/safety"
)

// Decision is what happened to a proposed patch.
type Decision string

const (
	DecisionApproved   Decision = "approved"
	DecisionOverridden Decision = "overridden"
	DecisionRejected   Decision = "rejected"
	DecisionFailed     Decision = "failed"
)

// PatchRecord is a patch together with its review outcome.
type PatchRecord struct {
	Patch      patch.Patch
	DocumentID string
	Decision   Decision
	Report     safety.Report
	SnapshotID string
	RecordedAt time.Time
}

// Passed reports whether the recorded validation passed.
func (r PatchRecord) Passed() bool { return r.Report.Passed() }

// RecordPatch stores a reviewed patch for the document at path. snapshotID
// names the snapshot the decision produced and is empty for rejections.
// Recording the same patch id twice keeps the latest decision.
func (s *Store) RecordPatch(path string, p *patch.Patch, report safety.Report, d Decision, snapshotID string) error {
	if p == nil {
		return fmt.Errorf("record patch: nil patch")
	}
	changes, err := json.Marshal(p.Changes)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}
	rep, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docID, err := s.saveDocument(s.db, path)
	if err != nil {
		return err
	}
	passed := 0
	if report.Passed() {
		passed = 1
	}
	_, err = s.db.Exec(`
		INSERT INTO patches (id, document_id, section, intent, old_text, new_text, justification,
			changes_json, decision, passed, report_json, created_at, recorded_at, snapshot_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			decision = excluded.decision,
			passed = excluded.passed,
			report_json = excluded.report_json,
			recorded_at = excluded.recorded_at,
			snapshot_id = excluded.snapshot_id`,
		p.ID, docID, p.Section, p.Intent, p.OldText, p.NewText, p.Justification,
		string(changes), string(d), passed, string(rep),
		formatTime(p.CreatedAt), formatTime(s.now()), snapshotID)
	if err != nil {
		return fmt.Errorf("failed to record patch: %w", err)
	}
	s.log.Debug("patch recorded",
		zap.String("patch_id", p.ID),
		zap.String("decision", string(d)),
		zap.Bool("passed", passed == 1))
	return nil
}

// Patches lists the recorded patches of the document at path in the order
// they were recorded.
func (s *Store) Patches(path string) ([]PatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docID := DocumentID(path)
	rows, err := s.db.Query(`
		SELECT id, section, intent, old_text, new_text, justification, changes_json,
			decision, report_json, created_at, recorded_at, snapshot_id
		FROM patches WHERE document_id = ? ORDER BY recorded_at, rowid`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patches: %w", err)
	}
	defer rows.Close()

	var out []PatchRecord
	for rows.Next() {
		var (
			r                      PatchRecord
			changes, decision, rep string
			createdAt, recordedAt  string
		)
		if err := rows.Scan(&r.Patch.ID, &r.Patch.Section, &r.Patch.Intent, &r.Patch.OldText, &r.Patch.NewText,
			&r.Patch.Justification, &changes, &decision, &rep, &createdAt, &recordedAt, &r.SnapshotID); err != nil {
			return nil, fmt.Errorf("failed to scan patch: %w", err)
		}
		if err := json.Unmarshal([]byte(changes), &r.Patch.Changes); err != nil {
			return nil, fmt.Errorf("patch %s changes: %w", r.Patch.ID, err)
		}
		if err := json.Unmarshal([]byte(rep), &r.Report); err != nil {
			return nil, fmt.Errorf("patch %s report: %w", r.Patch.ID, err)
		}
		r.DocumentID = docID
		r.Decision = Decision(decision)
		r.Patch.CreatedAt = parseTime(createdAt)
		r.RecordedAt = parseTime(recordedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
