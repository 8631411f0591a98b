package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// Default identifier vocabularies. These are heuristics: callers with a
// different report format should supply their own through NewPatterns.
const (
	// DefaultFindingPattern matches uppercase-prefixed codes followed by
	// digits: SQLI-001, VULN-12, CVE-2021-44228, CWE-79.
	DefaultFindingPattern = `\b[A-Z][A-Z0-9]{1,}(?:-[A-Z0-9]+)*-\d+\b`
)

// DefaultSeverities is the severity vocabulary counted by the
// severity-tokens check.
var DefaultSeverities = []string{"Critical", "High", "Medium", "Low"}

// DefaultEvidencePatterns extract tokens that must survive an edit verbatim.
var DefaultEvidencePatterns = []string{
	`\bCVE-\d{4}-\d{4,}\b`,
	`\bCWE-\d+\b`,
	`\b[A-Z]{3,}-\d{3,}\b`,
	`[\w./:\\-]*[\w-]\.(?:conf|config|xml|json|ya?ml|toml|ini|env|properties|py|js|ts|go|java|php|rb|cs|sh|sql|html)\b`,
}

// Patterns is the compiled vocabulary the validator checks against.
type Patterns struct {
	FindingID  *regexp.Regexp
	Severity   *regexp.Regexp
	severities map[string]string // lowercased -> canonical
	Evidence   []*regexp.Regexp
}

// NewPatterns compiles a vocabulary. Empty arguments fall back to defaults.
func NewPatterns(finding string, severities []string, evidence []string) (Patterns, error) {
	if strings.TrimSpace(finding) == "" {
		finding = DefaultFindingPattern
	}
	if len(severities) == 0 {
		severities = DefaultSeverities
	}
	if len(evidence) == 0 {
		evidence = DefaultEvidencePatterns
	}

	var p Patterns
	var err error

	p.FindingID, err = regexp.Compile(finding)
	if err != nil {
		return Patterns{}, fmt.Errorf("invalid finding pattern %q: %w", finding, err)
	}

	p.severities = make(map[string]string, len(severities))
	quoted := make([]string, 0, len(severities))
	for _, s := range severities {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p.severities[strings.ToLower(s)] = s
		quoted = append(quoted, regexp.QuoteMeta(s))
	}
	if len(quoted) == 0 {
		return Patterns{}, fmt.Errorf("severity vocabulary is empty")
	}
	p.Severity = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)

	for _, e := range evidence {
		re, err := regexp.Compile(e)
		if err != nil {
			return Patterns{}, fmt.Errorf("invalid evidence pattern %q: %w", e, err)
		}
		p.Evidence = append(p.Evidence, re)
	}

	return p, nil
}

// DefaultPatterns returns the built-in vocabulary.
func DefaultPatterns() Patterns {
	p, err := NewPatterns("", nil, nil)
	if err != nil {
		panic(err)
	}
	return p
}

// canonicalSeverity maps a matched token to its vocabulary spelling.
func (p Patterns) canonicalSeverity(tok string) string {
	if c, ok := p.severities[strings.ToLower(tok)]; ok {
		return c
	}
	return tok
}
