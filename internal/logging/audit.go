package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a reviewable decision in an edit's life.
type AuditEventType string

const (
	AuditEditProposed  AuditEventType = "edit_proposed"
	AuditEditValidated AuditEventType = "edit_validated"
	AuditEditApproved  AuditEventType = "edit_approved"
	AuditEditOverride  AuditEventType = "edit_override"
	AuditEditRejected  AuditEventType = "edit_rejected"
	AuditEditAbandoned AuditEventType = "edit_abandoned"
	AuditEditFailed    AuditEventType = "edit_failed"

	AuditVersionSaved    AuditEventType = "version_saved"
	AuditVersionUndo     AuditEventType = "version_undo"
	AuditVersionRedo     AuditEventType = "version_redo"
	AuditVersionRollback AuditEventType = "version_rollback"
)

// AuditEvent is one structured audit entry.
type AuditEvent struct {
	EventType AuditEventType
	Document  string // document path or id
	PatchID   string
	Snapshot  string
	Success   bool
	Code      string // error code when Success is false
	Message   string
	Duration  time.Duration
	Fields    []zap.Field
}

// AuditLogger writes audit events to the audit category, scoped to one
// document.
type AuditLogger struct {
	document string
}

// Audit returns an audit logger for a document.
func Audit(document string) *AuditLogger {
	return &AuditLogger{document: document}
}

// Log writes an audit event. Events are info level so they survive a
// non-debug level setting while debug_mode is on.
func (a *AuditLogger) Log(e AuditEvent) {
	l := Get(CategoryAudit)
	if e.Document == "" {
		e.Document = a.document
	}
	fields := make([]zap.Field, 0, 8+len(e.Fields))
	fields = append(fields,
		zap.String("event", string(e.EventType)),
		zap.String("document", e.Document),
		zap.Bool("success", e.Success))
	if e.PatchID != "" {
		fields = append(fields, zap.String("patch_id", e.PatchID))
	}
	if e.Snapshot != "" {
		fields = append(fields, zap.String("snapshot_id", e.Snapshot))
	}
	if e.Code != "" {
		fields = append(fields, zap.String("code", e.Code))
	}
	if e.Duration > 0 {
		fields = append(fields, zap.Duration("duration", e.Duration))
	}
	fields = append(fields, e.Fields...)

	msg := e.Message
	if msg == "" {
		msg = string(e.EventType)
	}
	l.Info(msg, fields...)
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// Proposed records a parsed patch awaiting review.
func (a *AuditLogger) Proposed(patchID, intent string, took time.Duration) {
	a.Log(AuditEvent{
		EventType: AuditEditProposed,
		PatchID:   patchID,
		Success:   true,
		Duration:  took,
		Fields:    []zap.Field{zap.String("intent", intent)},
	})
}

// Validated records the safety outcome of a patch.
func (a *AuditLogger) Validated(patchID string, passed bool, failed []string) {
	a.Log(AuditEvent{
		EventType: AuditEditValidated,
		PatchID:   patchID,
		Success:   passed,
		Fields:    []zap.Field{zap.Strings("failed_checks", failed)},
	})
}

// Decision records the reviewer's verdict.
func (a *AuditLogger) Decision(event AuditEventType, patchID, snapshotID string) {
	a.Log(AuditEvent{EventType: event, PatchID: patchID, Snapshot: snapshotID, Success: true})
}

// Failed records an edit that ended in error.
func (a *AuditLogger) Failed(patchID, code string, err error) {
	a.Log(AuditEvent{
		EventType: AuditEditFailed,
		PatchID:   patchID,
		Code:      code,
		Fields:    []zap.Field{zap.Error(err)},
	})
}

// VersionMoved records a history navigation or save.
func (a *AuditLogger) VersionMoved(event AuditEventType, snapshotID string) {
	a.Log(AuditEvent{EventType: event, Snapshot: snapshotID, Success: true})
}
