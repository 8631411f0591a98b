// Package matcher relocates a span of text inside a document so it can be
// replaced, even after the document has been reflowed or lightly edited.
//
// Strategies run from strictest to loosest and the first hit wins:
// exact substring, whitespace-normalized, fuzzy boundary anchors, and
// token-set similarity. Replacement always happens inside the original
// document; normalized text is only ever used for searching.
package matcher

import (
	"strings"

	"go.uber.org/zap"
)

// Strategy identifies which matching pass located a span.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyExact
	StrategyNormalized
	StrategyFuzzyBoundary
	StrategyTokenSet
)

// String returns the strategy name used in logs and the CLI.
func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyNormalized:
		return "normalized"
	case StrategyFuzzyBoundary:
		return "fuzzy_boundary"
	case StrategyTokenSet:
		return "token_set"
	default:
		return "none"
	}
}

// Options tunes the looser strategies.
type Options struct {
	// FuzzyMinLength is the minimum normalized needle length (bytes) for the
	// fuzzy boundary strategy.
	FuzzyMinLength int
	// AnchorLength is the length of the head and tail anchors.
	AnchorLength int
	// MaxSpanFactor bounds the anchored span relative to the needle length.
	MaxSpanFactor float64
	// TokenThreshold is the minimum token multiset overlap in [0,1].
	TokenThreshold float64
}

// DefaultOptions returns the defaults used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		FuzzyMinLength: 50,
		AnchorLength:   30,
		MaxSpanFactor:  1.5,
		TokenThreshold: 0.9,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FuzzyMinLength <= 0 {
		o.FuzzyMinLength = d.FuzzyMinLength
	}
	if o.AnchorLength <= 0 {
		o.AnchorLength = d.AnchorLength
	}
	if o.MaxSpanFactor < 1 {
		o.MaxSpanFactor = d.MaxSpanFactor
	}
	if o.TokenThreshold <= 0 || o.TokenThreshold > 1 {
		o.TokenThreshold = d.TokenThreshold
	}
	return o
}

// Match is the outcome of Locate. Start and End are byte offsets into the
// original document.
type Match struct {
	Found    bool
	Start    int
	End      int
	Strategy Strategy
}

// Text returns the matched slice of doc.
func (m Match) Text(doc string) string {
	if !m.Found {
		return ""
	}
	return doc[m.Start:m.End]
}

// Matcher locates and replaces spans. It holds no per-document state and is
// safe for concurrent use.
type Matcher struct {
	opts Options
	log  *zap.Logger
}

// New creates a Matcher. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{opts: opts.withDefaults(), log: log}
}

// Default is a matcher with default options and no logging.
var Default = New(DefaultOptions(), nil)

// Locate finds the first span of doc that corresponds to needle.
func (m *Matcher) Locate(doc, needle string) Match {
	if needle == "" || doc == "" {
		return Match{}
	}

	if i := strings.Index(doc, needle); i >= 0 {
		return Match{Found: true, Start: i, End: i + len(needle), Strategy: StrategyExact}
	}

	nDoc := normalize(doc)
	nNeedle := normalize(needle)
	if nNeedle.text == "" || nDoc.text == "" {
		return Match{}
	}

	if i := strings.Index(nDoc.text, nNeedle.text); i >= 0 {
		start, end := nDoc.span(i, i+len(nNeedle.text))
		return Match{Found: true, Start: start, End: end, Strategy: StrategyNormalized}
	}

	if len(nNeedle.text) > m.opts.FuzzyMinLength {
		if start, end, ok := m.fuzzyBoundary(nDoc, nNeedle.text); ok {
			return Match{Found: true, Start: start, End: end, Strategy: StrategyFuzzyBoundary}
		}
	}

	if start, end, ok := tokenSet(doc, needle, m.opts.TokenThreshold); ok {
		return Match{Found: true, Start: start, End: end, Strategy: StrategyTokenSet}
	}

	return Match{}
}

// Apply replaces the first span matching oldText with newText. When nothing
// matches, doc is returned unchanged together with a *NoMatchError.
func (m *Matcher) Apply(doc, oldText, newText string) (string, Match, error) {
	if oldText == "" {
		return doc, Match{}, ErrEmptyNeedle
	}

	match := m.Locate(doc, oldText)
	if !match.Found {
		m.log.Debug("no match for span",
			zap.Int("doc_len", len(doc)),
			zap.Int("needle_len", len(oldText)))
		return doc, match, &NoMatchError{Needle: oldText, DocumentLength: len(doc)}
	}

	m.log.Debug("span located",
		zap.Stringer("strategy", match.Strategy),
		zap.Int("start", match.Start),
		zap.Int("end", match.End))

	var b strings.Builder
	b.Grow(len(doc) - (match.End - match.Start) + len(newText))
	b.WriteString(doc[:match.Start])
	b.WriteString(newText)
	b.WriteString(doc[match.End:])
	return b.String(), match, nil
}

// fuzzyBoundary anchors on the first and last characters of the needle.
func (m *Matcher) fuzzyBoundary(nDoc normalized, needle string) (int, int, bool) {
	k := m.opts.AnchorLength
	if k > len(needle)/2 {
		k = len(needle) / 2
	}
	head := strings.TrimSpace(needle[:headCut(needle, k)])
	tail := strings.TrimSpace(needle[tailCut(needle, len(needle)-k):])
	if head == "" || tail == "" {
		return 0, 0, false
	}

	maxSpan := int(float64(len(needle)) * m.opts.MaxSpanFactor)
	heads := occurrences(nDoc.text, head)
	tails := occurrences(nDoc.text, tail)

	// Heads and tails are sorted, so the nearest tail after each head is found
	// by a single forward pass over both lists.
	j := 0
	for _, hi := range heads {
		for j < len(tails) && tails[j] < hi+len(head) {
			j++
		}
		if j == len(tails) {
			break
		}
		if end := tails[j] + len(tail); end <= hi+maxSpan {
			start, origEnd := nDoc.span(hi, end)
			return start, origEnd, true
		}
	}
	return 0, 0, false
}

// occurrences returns the start of every occurrence of sub in s, overlapping
// ones included, in increasing order.
func occurrences(s, sub string) []int {
	var out []int
	for from := 0; from <= len(s)-len(sub); {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			break
		}
		out = append(out, from+i)
		from += i + 1
	}
	return out
}

// Locate runs the default matcher.
func Locate(doc, needle string) Match {
	return Default.Locate(doc, needle)
}

// Apply runs the default matcher.
func Apply(doc, oldText, newText string) (string, Match, error) {
	return Default.Apply(doc, oldText, newText)
}
