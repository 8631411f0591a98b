package version

import (
	"time"
)

// Kind records what produced a snapshot.
type Kind string

const (
	KindInitial    Kind = "initial"
	KindManualEdit Kind = "manual_edit"
	KindAIEdit     Kind = "ai_edit"
	KindBulkEdit   Kind = "bulk_edit"
	KindImport     Kind = "import"
	KindRestore    Kind = "restore"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInitial, KindManualEdit, KindAIEdit, KindBulkEdit, KindImport, KindRestore:
		return true
	}
	return false
}

// Snapshot is one immutable version of a document. Every field is a
// primitive so a snapshot serializes to a single flat record.
type Snapshot struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	CreatedAt   time.Time `json:"created_at"`
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	Section     string    `json:"section,omitempty"`
	OldContent  string    `json:"old_content,omitempty"`
	NewContent  string    `json:"new_content,omitempty"`
	Document    string    `json:"document"`
}

// Input is what a caller supplies to Save. Document is the full text after
// the change; OldContent and NewContent describe the edited span, if any.
type Input struct {
	Kind        Kind
	Description string
	Section     string
	OldContent  string
	NewContent  string
	Document    string
}

// Summary is the history-listing view of a snapshot.
type Summary struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	CreatedAt   time.Time `json:"created_at"`
	Kind        Kind      `json:"kind"`
	Section     string    `json:"section,omitempty"`
	Description string    `json:"description"`
	IsCurrent   bool      `json:"is_current"`
}

// History is the exportable state of a Manager. Current is the id of the
// current snapshot, empty when there is none.
type History struct {
	Max       int        `json:"max_versions"`
	Current   string     `json:"current"`
	NextSeq   int64      `json:"next_seq"`
	Snapshots []Snapshot `json:"snapshots"`
}

// DiffResult is the line-level difference between two snapshots.
type DiffResult struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	Added        int      `json:"added"`
	Removed      int      `json:"removed"`
	AddedLines   []string `json:"added_lines"`
	RemovedLines []string `json:"removed_lines"`
}
