package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type token struct {
	text       string
	start, end int
}

// tokenize splits s on Unicode whitespace, keeping byte offsets.
func tokenize(s string) []token {
	var toks []token
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, token{text: s[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: s[start:], start: start, end: len(s)})
	}
	return toks
}

// window is one scored token-set candidate.
type window struct {
	score      float64
	edges      int // needle's first and last tokens found at the window edges
	lenDelta   int // distance from the needle token count
	extraneous int // tokens that do not count toward the overlap
	start, end int
}

// better orders candidates: score, then edge alignment, then length, then
// fewest extraneous tokens, then earliest start.
func (w window) better(o window) bool {
	switch {
	case w.score != o.score:
		return w.score > o.score
	case w.edges != o.edges:
		return w.edges > o.edges
	case w.lenDelta != o.lenDelta:
		return w.lenDelta < o.lenDelta
	case w.extraneous != o.extraneous:
		return w.extraneous < o.extraneous
	}
	return w.start < o.start
}

// tokenSet slides windows over the document tokens and accepts the best
// window whose multiset overlap with the needle reaches threshold. Window
// lengths range over the needle token count +/- 10%; each pass updates the
// overlap incrementally so a pass is linear in the document token count.
// Windows with equal overlap are told apart by edge alignment so a shifted
// window never claims text outside the selection.
func tokenSet(doc, needle string, threshold float64) (int, int, bool) {
	want := strings.Fields(needle)
	if len(want) == 0 {
		return 0, 0, false
	}
	toks := tokenize(doc)
	if len(toks) == 0 {
		return 0, 0, false
	}

	need := make(map[string]int, len(want))
	for _, w := range want {
		need[w]++
	}

	n := len(want)
	slack := n / 10
	minW, maxW := n-slack, n+slack
	if minW < 1 {
		minW = 1
	}
	if maxW > len(toks) {
		maxW = len(toks)
	}

	var best window
	found := false

	for w := minW; w <= maxW; w++ {
		have := make(map[string]int, w)
		overlap := 0
		add := func(t string) {
			if have[t] < need[t] {
				overlap++
			}
			have[t]++
		}
		remove := func(t string) {
			have[t]--
			if have[t] < need[t] {
				overlap--
			}
		}

		denom := float64(n)
		if w > n {
			denom = float64(w)
		}
		delta := w - n
		if delta < 0 {
			delta = -delta
		}

		for i := 0; i < len(toks); i++ {
			add(toks[i].text)
			if i >= w {
				remove(toks[i-w].text)
			}
			if i < w-1 {
				continue
			}
			score := float64(overlap) / denom
			if score < threshold {
				continue
			}
			first := i - w + 1
			cand := window{
				score:      score,
				lenDelta:   delta,
				extraneous: w - overlap,
				start:      toks[first].start,
				end:        toks[i].end,
			}
			if toks[first].text == want[0] {
				cand.edges++
			}
			if toks[i].text == want[n-1] {
				cand.edges++
			}
			if !found || cand.better(best) {
				best = cand
				found = true
			}
		}
	}

	if !found {
		return 0, 0, false
	}
	return best.start, best.end, true
}

// preview shortens s for error messages without splitting a rune.
func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
