package version

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func save(m *Manager, doc string) Snapshot {
	return m.Save(Input{Kind: KindManualEdit, Description: "edit", Document: doc})
}

func TestSave_CeilingKeepsNewest(t *testing.T) {
	m := NewManager(50, WithClock(fixedClock()))
	var last Snapshot
	for i := 0; i < 60; i++ {
		last = save(m, fmt.Sprintf("doc %d", i))
	}

	assert.Equal(t, 50, m.Len())
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, last.ID, cur.ID)
	assert.Equal(t, "doc 59", cur.Document)

	hist := m.History()
	assert.Equal(t, int64(11), hist[0].Seq, "the ten oldest snapshots are pruned")
	for i := 1; i < len(hist); i++ {
		assert.Greater(t, hist[i].Seq, hist[i-1].Seq)
	}
	assert.True(t, hist[len(hist)-1].IsCurrent)
}

func TestUndo_EmptyAndFirst(t *testing.T) {
	m := NewManager(0)
	assert.Equal(t, DefaultMaxVersions, m.Max())

	_, err := m.Undo()
	assert.ErrorIs(t, err, ErrNoHistory)

	save(m, "v1")
	_, err = m.Undo()
	assert.ErrorIs(t, err, ErrNoHistory)
	assert.False(t, m.CanUndo())
}

func TestUndoRedo(t *testing.T) {
	m := NewManager(10)
	s1 := save(m, "v1")
	s2 := save(m, "v2")
	s3 := save(m, "v3")

	got, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, s2.ID, got.ID)
	got, err = m.Undo()
	require.NoError(t, err)
	assert.Equal(t, s1.ID, got.ID)

	assert.True(t, m.CanRedo())
	got, err = m.Redo()
	require.NoError(t, err)
	assert.Equal(t, s2.ID, got.ID)
	got, err = m.Redo()
	require.NoError(t, err)
	assert.Equal(t, s3.ID, got.ID)

	_, err = m.Redo()
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestSave_AfterUndoDiscardsRedo(t *testing.T) {
	m := NewManager(10)
	save(m, "v1")
	s2 := save(m, "v2")
	s3 := save(m, "v3")

	_, err := m.Undo()
	require.NoError(t, err)
	s4 := save(m, "v4")

	assert.Equal(t, 3, m.Len())
	_, err = m.Get(s3.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Redo()
	assert.ErrorIs(t, err, ErrNoHistory)

	got, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, s2.ID, got.ID)
	assert.Greater(t, s4.Seq, s3.Seq, "sequence keeps increasing across discards")
}

func TestRollback(t *testing.T) {
	m := NewManager(10)
	s1 := save(m, "v1")
	save(m, "v2")
	s3 := save(m, "v3")

	got, err := m.Rollback(s1.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Document)
	assert.Equal(t, 3, m.Len(), "rollback only moves the pointer")

	got, err = m.Rollback(s3.ID)
	require.NoError(t, err)
	assert.Equal(t, "v3", got.Document)

	_, err = m.Rollback("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	cur, _ := m.Current()
	assert.Equal(t, s3.ID, cur.ID, "failed rollback leaves the pointer")
}

func TestCurrent_Empty(t *testing.T) {
	_, ok := NewManager(5).Current()
	assert.False(t, ok)
}

func TestSave_UnknownKindBecomesManual(t *testing.T) {
	m := NewManager(5)
	s := m.Save(Input{Kind: "weird", Document: "x"})
	assert.Equal(t, KindManualEdit, s.Kind)
	assert.True(t, KindAIEdit.Valid())
}

func TestDiff(t *testing.T) {
	m := NewManager(10)
	a := save(m, "Severity: High\nThe login form is vulnerable.")
	b := save(m, "Severity: High\nLogin form is vulnerable.\nFixed in 2.1.")

	d, err := m.Diff(a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Added)
	assert.Equal(t, 1, d.Removed)
	assert.Equal(t, []string{"The login form is vulnerable."}, d.RemovedLines)
	assert.Contains(t, d.AddedLines, "Fixed in 2.1.")

	_, err = m.Diff(a.ID, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportRestore_RoundTrip(t *testing.T) {
	m := NewManager(5, WithClock(fixedClock()))
	for i := 0; i < 7; i++ {
		m.Save(Input{Kind: KindAIEdit, Description: fmt.Sprint("edit ", i), Section: "Findings",
			OldContent: "old", NewContent: "new", Document: fmt.Sprint("doc ", i)})
	}
	_, err := m.Undo()
	require.NoError(t, err)

	exported := m.Export()
	data, err := json.Marshal(exported)
	require.NoError(t, err)
	var decoded History
	require.NoError(t, json.Unmarshal(data, &decoded))

	restored := NewManager(5)
	require.NoError(t, restored.Restore(decoded))
	if diff := cmp.Diff(exported, restored.Export()); diff != "" {
		t.Fatalf("restore mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, restored.Max())

	// Sequence continues past the restored entries.
	next := restored.Save(Input{Kind: KindManualEdit, Document: "after"})
	assert.Equal(t, int64(8), next.Seq)
}

func TestRestore_RejectsInconsistentHistory(t *testing.T) {
	m := NewManager(5)
	save(m, "keep")

	bad := []History{
		{Snapshots: []Snapshot{{ID: "a", Seq: 2}, {ID: "b", Seq: 1}}},
		{Snapshots: []Snapshot{{ID: "a", Seq: 1}, {ID: "a", Seq: 2}}},
		{Snapshots: []Snapshot{{ID: "", Seq: 1}}},
		{Current: "zzz", Snapshots: []Snapshot{{ID: "a", Seq: 1}}},
	}
	for i, h := range bad {
		assert.ErrorIs(t, m.Restore(h), ErrInvalidHistory, "case %d", i)
	}

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "keep", cur.Document, "failed restore leaves state untouched")
}

func TestRestore_UsesConfiguredCeiling(t *testing.T) {
	stored := NewManager(10, WithClock(fixedClock()))
	for i := 0; i < 8; i++ {
		save(stored, fmt.Sprint("doc ", i))
	}
	h := stored.Export()

	t.Run("lower ceiling prunes oldest", func(t *testing.T) {
		m := NewManager(3)
		require.NoError(t, m.Restore(h))
		assert.Equal(t, 3, m.Max())
		assert.Equal(t, 3, m.Len())
		cur, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "doc 7", cur.Document)
		assert.Equal(t, int64(6), m.History()[0].Seq)
	})

	t.Run("higher ceiling keeps everything", func(t *testing.T) {
		m := NewManager(20)
		require.NoError(t, m.Restore(h))
		assert.Equal(t, 20, m.Max())
		assert.Equal(t, 8, m.Len())
		for i := 0; i < 15; i++ {
			save(m, fmt.Sprint("more ", i))
		}
		assert.Equal(t, 20, m.Len())
	})

	t.Run("current entry survives pruning", func(t *testing.T) {
		back := h
		back.Current = h.Snapshots[1].ID
		m := NewManager(3)
		require.NoError(t, m.Restore(back))
		assert.Equal(t, 3, m.Len())
		cur, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "doc 1", cur.Document)
		assert.False(t, m.CanUndo())
		assert.True(t, m.CanRedo())
		assert.Equal(t, int64(4), m.History()[2].Seq)
	})
}

func TestRestore_EmptyHistory(t *testing.T) {
	m := NewManager(5)
	save(m, "x")
	require.NoError(t, m.Restore(History{}))
	assert.Equal(t, 0, m.Len())
	_, ok := m.Current()
	assert.False(t, ok)
	assert.Equal(t, int64(1), m.Save(Input{Kind: KindInitial, Document: "y"}).Seq)
}
