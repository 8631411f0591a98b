// Package diff computes line diffs between document versions using
// sergi/go-diff, and renders them as hunks for review and history output.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType classifies a diff line.
type LineType int

const (
	LineContext LineType = iota
	LineAdded
	LineRemoved
)

// Prefix is the unified-diff marker for the line type.
func (t LineType) Prefix() string {
	switch t {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	}
	return " "
}

// Line is one line of a hunk. OldNum and NewNum are 1-based; zero means the
// line does not exist on that side.
type Line struct {
	OldNum  int
	NewNum  int
	Content string
	Type    LineType
}

// Hunk is a run of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Header renders the @@ line of the hunk.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

// Stats summarizes a diff at line granularity.
type Stats struct {
	Added        int      `json:"added"`
	Removed      int      `json:"removed"`
	AddedLines   []string `json:"added_lines"`
	RemovedLines []string `json:"removed_lines"`
}

// DocumentDiff is the diff between two versions of one document.
type DocumentDiff struct {
	OldLabel string
	NewLabel string
	Hunks    []Hunk
	Stats    Stats
}

// Empty reports whether the two versions are identical.
func (d *DocumentDiff) Empty() bool { return len(d.Hunks) == 0 }

// Unified renders the diff in unified format.
func (d *DocumentDiff) Unified() string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", d.OldLabel, d.NewLabel)
	for _, h := range d.Hunks {
		b.WriteString(h.Header())
		b.WriteByte('\n')
		for _, l := range h.Lines {
			b.WriteString(l.Type.Prefix())
			b.WriteString(l.Content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Engine computes diffs. It is safe for concurrent use.
type Engine struct {
	dmp          *diffmatchpatch.DiffMatchPatch
	contextLines int
}

// DefaultContextLines is the context kept around each change.
const DefaultContextLines = 3

// NewEngine creates an engine with the default context width.
func NewEngine() *Engine {
	return NewEngineWithContext(DefaultContextLines)
}

// NewEngineWithContext creates an engine keeping n context lines per hunk.
func NewEngineWithContext(n int) *Engine {
	if n < 0 {
		n = 0
	}
	dmp := diffmatchpatch.New()
	// Reports are small; accuracy matters more than a time bound.
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp, contextLines: n}
}

// DefaultEngine is shared by the package-level helpers.
var DefaultEngine = NewEngine()

// Compute diffs two document versions line by line.
func (e *Engine) Compute(oldLabel, newLabel, oldText, newText string) *DocumentDiff {
	ops := e.lineOps(oldText, newText)
	return &DocumentDiff{
		OldLabel: oldLabel,
		NewLabel: newLabel,
		Hunks:    groupHunks(ops, e.contextLines),
		Stats:    statsOf(ops),
	}
}

// Stats returns only the added and removed line summary.
func (e *Engine) Stats(oldText, newText string) Stats {
	return statsOf(e.lineOps(oldText, newText))
}

// Compute uses DefaultEngine.
func Compute(oldLabel, newLabel, oldText, newText string) *DocumentDiff {
	return DefaultEngine.Compute(oldLabel, newLabel, oldText, newText)
}

// LineStats uses DefaultEngine.
func LineStats(oldText, newText string) Stats {
	return DefaultEngine.Stats(oldText, newText)
}

// Segment is a run of an inline word diff.
type Segment struct {
	Text string
	Type LineType
}

// Words diffs two short texts at character level with semantic cleanup, for
// inline highlighting of an edited span.
func (e *Engine) Words(oldText, newText string) []Segment {
	diffs := e.dmp.DiffMain(oldText, newText, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)
	out := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, Segment{Text: d.Text, Type: lineType(d.Type)})
	}
	return out
}

// =============================================================================
// LINE OPERATIONS
// =============================================================================

type lineOp struct {
	typ     LineType
	oldPos  int // 0-based index of the next old line at this point
	newPos  int
	content string
}

func lineType(op diffmatchpatch.Operation) LineType {
	switch op {
	case diffmatchpatch.DiffInsert:
		return LineAdded
	case diffmatchpatch.DiffDelete:
		return LineRemoved
	}
	return LineContext
}

// lineOps reduces both texts to one rune per line so the diff never splits
// a line, then expands the result back into per-line operations.
func (e *Engine) lineOps(oldText, newText string) []lineOp {
	a, b, lines := e.dmp.DiffLinesToChars(oldText, newText)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)
	diffs = e.dmp.DiffCharsToLines(diffs, lines)

	var ops []lineOp
	oldPos, newPos := 0, 0
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		typ := lineType(d.Type)
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			ops = append(ops, lineOp{typ: typ, oldPos: oldPos, newPos: newPos, content: line})
			switch typ {
			case LineContext:
				oldPos++
				newPos++
			case LineRemoved:
				oldPos++
			case LineAdded:
				newPos++
			}
		}
	}
	return ops
}

func statsOf(ops []lineOp) Stats {
	s := Stats{AddedLines: []string{}, RemovedLines: []string{}}
	for _, op := range ops {
		switch op.typ {
		case LineAdded:
			s.Added++
			s.AddedLines = append(s.AddedLines, op.content)
		case LineRemoved:
			s.Removed++
			s.RemovedLines = append(s.RemovedLines, op.content)
		}
	}
	return s
}

// groupHunks merges changes whose context windows touch into one hunk.
func groupHunks(ops []lineOp, ctx int) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(ops) {
		if ops[i].typ == LineContext {
			i++
			continue
		}

		start := max(i-ctx, 0)
		end := i // last change index in this hunk
		for j := i + 1; j < len(ops); j++ {
			if ops[j].typ == LineContext {
				if j-end > 2*ctx {
					break
				}
				continue
			}
			end = j
		}
		stop := min(end+ctx+1, len(ops))

		h := Hunk{OldStart: ops[start].oldPos + 1, NewStart: ops[start].newPos + 1}
		for _, op := range ops[start:stop] {
			l := Line{Content: op.content, Type: op.typ}
			if op.typ != LineAdded {
				l.OldNum = op.oldPos + 1
				h.OldCount++
			}
			if op.typ != LineRemoved {
				l.NewNum = op.newPos + 1
				h.NewCount++
			}
			h.Lines = append(h.Lines, l)
		}
		hunks = append(hunks, h)
		i = stop
	}
	return hunks
}
