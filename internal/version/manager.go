// Package version keeps a bounded, linear history of document snapshots
// with undo, redo and rollback.
//
// A Manager has a single owner and takes no locks. Callers that share one
// across goroutines must serialize access themselves.
package version

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"redline/internal/diff"
)

// DefaultMaxVersions is the default history ceiling.
const DefaultMaxVersions = 50

var (
	// ErrNoHistory means there is no earlier (or later) snapshot to move to.
	ErrNoHistory = errors.New("no history to navigate")

	// ErrNotFound means the snapshot id is not in the retained history.
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidHistory rejects an inconsistent History passed to Restore.
	ErrInvalidHistory = errors.New("invalid history")
)

// Manager holds the snapshot list and the current pointer.
type Manager struct {
	entries []Snapshot
	current int // index into entries, -1 when empty
	nextSeq int64
	max     int

	now   func() time.Time
	newID func() string
	log   *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an empty manager keeping at most maxVersions snapshots.
// A non-positive maxVersions selects DefaultMaxVersions.
func NewManager(maxVersions int, opts ...Option) *Manager {
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}
	m := &Manager{
		current: -1,
		nextSeq: 1,
		max:     maxVersions,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Max returns the ceiling.
func (m *Manager) Max() int { return m.max }

// Len returns the number of retained snapshots.
func (m *Manager) Len() int { return len(m.entries) }

// Save records a new snapshot. Snapshots after the current one are
// discarded first, so history stays linear; the oldest snapshots are pruned
// once the ceiling is exceeded.
func (m *Manager) Save(in Input) Snapshot {
	if !in.Kind.Valid() {
		in.Kind = KindManualEdit
	}
	s := Snapshot{
		ID:          m.newID(),
		Seq:         m.nextSeq,
		CreatedAt:   m.now().UTC(),
		Kind:        in.Kind,
		Description: in.Description,
		Section:     in.Section,
		OldContent:  in.OldContent,
		NewContent:  in.NewContent,
		Document:    in.Document,
	}
	m.nextSeq++

	if dropped := len(m.entries) - (m.current + 1); dropped > 0 {
		m.log.Debug("discarding redo entries", zap.Int("count", dropped))
	}
	m.entries = append(m.entries[:m.current+1], s)
	m.current = len(m.entries) - 1

	if over := len(m.entries) - m.max; over > 0 {
		m.entries = append([]Snapshot(nil), m.entries[over:]...)
		m.current -= over
		m.log.Debug("pruned oldest snapshots", zap.Int("count", over))
	}

	m.log.Debug("snapshot saved",
		zap.String("id", s.ID),
		zap.Int64("seq", s.Seq),
		zap.String("kind", string(s.Kind)),
		zap.Int("retained", len(m.entries)))
	return s
}

// Current returns the current snapshot.
func (m *Manager) Current() (Snapshot, bool) {
	if m.current < 0 {
		return Snapshot{}, false
	}
	return m.entries[m.current], true
}

// Undo moves the pointer back one snapshot.
func (m *Manager) Undo() (Snapshot, error) {
	if m.current <= 0 {
		return Snapshot{}, fmt.Errorf("undo: %w", ErrNoHistory)
	}
	m.current--
	return m.entries[m.current], nil
}

// Redo moves the pointer forward one snapshot.
func (m *Manager) Redo() (Snapshot, error) {
	if m.current < 0 || m.current >= len(m.entries)-1 {
		return Snapshot{}, fmt.Errorf("redo: %w", ErrNoHistory)
	}
	m.current++
	return m.entries[m.current], nil
}

// CanUndo reports whether Undo would succeed.
func (m *Manager) CanUndo() bool { return m.current > 0 }

// CanRedo reports whether Redo would succeed.
func (m *Manager) CanRedo() bool { return m.current >= 0 && m.current < len(m.entries)-1 }

// Rollback moves the pointer to the snapshot with the given id. Later
// snapshots are kept and remain reachable through Redo until the next Save.
func (m *Manager) Rollback(id string) (Snapshot, error) {
	i := m.indexOf(id)
	if i < 0 {
		return Snapshot{}, fmt.Errorf("rollback to %q: %w", id, ErrNotFound)
	}
	m.current = i
	return m.entries[i], nil
}

// Get returns the snapshot with the given id.
func (m *Manager) Get(id string) (Snapshot, error) {
	i := m.indexOf(id)
	if i < 0 {
		return Snapshot{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return m.entries[i], nil
}

func (m *Manager) indexOf(id string) int {
	for i := range m.entries {
		if m.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// History lists the retained snapshots, oldest first.
func (m *Manager) History() []Summary {
	out := make([]Summary, len(m.entries))
	for i, s := range m.entries {
		out[i] = Summary{
			ID:          s.ID,
			Seq:         s.Seq,
			CreatedAt:   s.CreatedAt,
			Kind:        s.Kind,
			Section:     s.Section,
			Description: s.Description,
			IsCurrent:   i == m.current,
		}
	}
	return out
}

// Diff compares the documents of two snapshots line by line.
func (m *Manager) Diff(fromID, toID string) (DiffResult, error) {
	from, err := m.Get(fromID)
	if err != nil {
		return DiffResult{}, err
	}
	to, err := m.Get(toID)
	if err != nil {
		return DiffResult{}, err
	}
	st := diff.LineStats(from.Document, to.Document)
	return DiffResult{
		From:         fromID,
		To:           toID,
		Added:        st.Added,
		Removed:      st.Removed,
		AddedLines:   st.AddedLines,
		RemovedLines: st.RemovedLines,
	}, nil
}

// Export returns a copy of the full state for persistence.
func (m *Manager) Export() History {
	h := History{
		Max:       m.max,
		NextSeq:   m.nextSeq,
		Snapshots: append([]Snapshot{}, m.entries...),
	}
	if cur, ok := m.Current(); ok {
		h.Current = cur.ID
	}
	return h
}

// Restore replaces the manager state with h, keeping the manager's own
// ceiling. The manager is unchanged when h is inconsistent.
func (m *Manager) Restore(h History) error {
	if err := h.Validate(); err != nil {
		return err
	}

	current := -1
	if h.Current != "" {
		for i, s := range h.Snapshots {
			if s.ID == h.Current {
				current = i
				break
			}
		}
	} else if len(h.Snapshots) > 0 {
		current = len(h.Snapshots) - 1
	}

	// The configured ceiling wins over the stored one. Oldest entries go
	// first, as in Save; the current entry is kept and, if that is not
	// enough, the furthest redo entries are dropped.
	entries := append([]Snapshot{}, h.Snapshots...)
	if over := len(entries) - m.max; over > 0 {
		head := over
		if current >= 0 && current < head {
			head = current
		}
		entries = entries[head:]
		current -= head
		if len(entries) > m.max {
			entries = entries[:m.max]
		}
		m.log.Debug("pruned restored history",
			zap.Int("stored_max", h.Max),
			zap.Int("max", m.max),
			zap.Int("dropped", len(h.Snapshots)-len(entries)))
	}

	m.entries = entries
	m.current = current
	m.nextSeq = h.NextSeq
	if last := len(entries); last > 0 && entries[last-1].Seq >= m.nextSeq {
		m.nextSeq = entries[last-1].Seq + 1
	}
	if m.nextSeq < 1 {
		m.nextSeq = 1
	}
	m.log.Debug("history restored", zap.Int("snapshots", len(entries)), zap.Int("current", current))
	return nil
}

// Validate checks ids are unique, sequence numbers strictly increase and the
// current id, when set, is present.
func (h History) Validate() error {
	seen := make(map[string]struct{}, len(h.Snapshots))
	var prev int64
	for i, s := range h.Snapshots {
		if s.ID == "" {
			return fmt.Errorf("%w: snapshot %d has no id", ErrInvalidHistory, i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate snapshot id %q", ErrInvalidHistory, s.ID)
		}
		seen[s.ID] = struct{}{}
		if i > 0 && s.Seq <= prev {
			return fmt.Errorf("%w: sequence not increasing at %q", ErrInvalidHistory, s.ID)
		}
		prev = s.Seq
	}
	if h.Current != "" {
		if _, ok := seen[h.Current]; !ok {
			return fmt.Errorf("%w: current %q: %w", ErrInvalidHistory, h.Current, ErrNotFound)
		}
	}
	return nil
}
