package matcher

import "unicode/utf8"

// normalized is a whitespace-normalized view of a string that remembers, for
// every byte it emits, the byte offset it came from in the original.
type normalized struct {
	text string
	offs []int
}

// normalize collapses runs of spaces and tabs to one space, converts CRLF and
// CR line endings to LF, drops whitespace at line edges, collapses runs of
// blank lines to a single blank line, and trims the string.
//
// Only ASCII whitespace is rewritten, so multi-byte runes are copied byte by
// byte and every emitted byte maps to exactly one original byte.
func normalize(s string) normalized {
	buf := make([]byte, 0, len(s))
	offs := make([]int, 0, len(s))

	pendingSpace := false
	pendingSpacePos := 0
	pendingNewlines := 0
	pendingNewlinePos := 0

	for i := 0; i < len(s); i++ {
		b := s[i]
		switch b {
		case ' ', '\t', '\f', '\v':
			if !pendingSpace && pendingNewlines == 0 {
				pendingSpace = true
				pendingSpacePos = i
			}
			continue
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				continue
			}
			fallthrough
		case '\n':
			if pendingNewlines == 0 {
				pendingNewlinePos = i
			}
			pendingNewlines++
			pendingSpace = false
			continue
		}

		if len(buf) > 0 {
			switch {
			case pendingNewlines > 0:
				n := pendingNewlines
				if n > 2 {
					n = 2
				}
				for j := 0; j < n; j++ {
					buf = append(buf, '\n')
					offs = append(offs, pendingNewlinePos)
				}
			case pendingSpace:
				buf = append(buf, ' ')
				offs = append(offs, pendingSpacePos)
			}
		}
		pendingSpace = false
		pendingNewlines = 0

		buf = append(buf, b)
		offs = append(offs, i)
	}

	return normalized{text: string(buf), offs: offs}
}

// span maps the normalized byte range [start, end) back to the original
// string. The range must begin and end on non-whitespace bytes, which holds
// for every match of a trimmed needle.
func (n normalized) span(start, end int) (int, int) {
	return n.offs[start], n.offs[end-1] + 1
}

// headCut returns the largest rune boundary <= k.
func headCut(s string, k int) int {
	if k >= len(s) {
		return len(s)
	}
	for k > 0 && !utf8.RuneStart(s[k]) {
		k--
	}
	return k
}

// tailCut returns the smallest rune boundary >= k.
func tailCut(s string, k int) int {
	if k <= 0 {
		return 0
	}
	for k < len(s) && !utf8.RuneStart(s[k]) {
		k++
	}
	return k
}
