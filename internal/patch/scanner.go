package patch

import (
	"regexp"
	"strings"
)

// fencePattern captures the body of a Markdown code fence, with or without
// a language tag.
var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")

// stripFences returns the bodies of any fenced blocks in s, in order.
// When s has no complete fence it returns nil.
func stripFences(s string) []string {
	if !strings.Contains(s, "```") {
		return nil
	}
	matches := fencePattern.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// findObjects scans s for top-level JSON object candidates, tracking brace
// depth and skipping braces inside string literals, so trailing prose or a
// second object cannot be swallowed into the first.
//
// Iterating bytes is safe for the ASCII delimiters involved because UTF-8
// never reuses ASCII bytes inside multi-byte sequences.
func findObjects(s string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			// Quotes only open strings inside an object; prose apostrophes and
			// stray quotes outside are ignored.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}
