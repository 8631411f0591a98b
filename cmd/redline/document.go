package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"redline/internal/logging"
	"redline/internal/patch"
	"redline/internal/safety"
	"redline/internal/store"
	"redline/internal/version"
)

// document is an open report file with its snapshot history.
type document struct {
	path     string
	text     string
	perm     os.FileMode
	versions *version.Manager
	store    *store.Store // nil when the store is disabled
	audit    *logging.AuditLogger
}

// openDocument reads path and restores its history. A file that changed
// since the last recorded snapshot gets a manual_edit snapshot so undo can
// return to it.
func openDocument(path string) (*document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	d := &document{
		path:     path,
		text:     string(data),
		perm:     info.Mode().Perm(),
		versions: version.NewManager(cfg.Versions.MaxVersions, version.WithLogger(logging.Get(logging.CategoryVersion))),
		audit:    logging.Audit(path),
	}

	if !cfg.Store.Disabled {
		st, err := store.Open(cfg.Store.DatabasePath, logging.Get(logging.CategoryStore))
		if err != nil {
			return nil, err
		}
		d.store = st

		h, err := st.LoadHistory(path)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			st.Close()
			return nil, err
		default:
			if err := d.versions.Restore(h); err != nil {
				st.Close()
				return nil, fmt.Errorf("stored history for %s: %w", path, err)
			}
		}
	}

	cur, ok := d.versions.Current()
	switch {
	case !ok:
		snap := d.versions.Save(version.Input{Kind: version.KindInitial, Description: "initial import", Document: d.text})
		d.audit.VersionMoved(logging.AuditVersionSaved, snap.ID)
	case cur.Document != d.text:
		snap := d.versions.Save(version.Input{Kind: version.KindManualEdit, Description: "changed outside redline", Document: d.text})
		d.audit.VersionMoved(logging.AuditVersionSaved, snap.ID)
		logger.Info("recorded external change", zap.String("path", path), zap.String("snapshot", snap.ID))
	default:
		return d, nil
	}
	if err := d.commit(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// commit persists the history when a store is configured.
func (d *document) commit() error {
	if d.store == nil {
		return nil
	}
	_, err := d.store.SaveHistory(d.path, d.versions.Export())
	return err
}

// write replaces the file contents and the in-memory text.
func (d *document) write(text string) error {
	if err := os.WriteFile(d.path, []byte(text), d.perm); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	d.text = text
	return nil
}

// checkout writes a snapshot to disk and persists the moved pointer.
func (d *document) checkout(snap version.Snapshot, event logging.AuditEventType) error {
	if err := d.write(snap.Document); err != nil {
		return err
	}
	d.audit.VersionMoved(event, snap.ID)
	return d.commit()
}

// record stores a reviewed patch when a store is configured.
func (d *document) record(p *patch.Patch, rep safety.Report, decision store.Decision, snapshotID string) error {
	if d.store == nil {
		return nil
	}
	return d.store.RecordPatch(d.path, p, rep, decision, snapshotID)
}

func (d *document) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
