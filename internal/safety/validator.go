// Package safety checks that a proposed edit leaves the protected facts of a
// security report alone: the finding population, the severity mentions, and
// the evidence identifiers.
//
// Every check is a pure function of (old, new). Whether a failed check blocks
// an edit or only warns is the caller's policy; the validator just reports.
package safety

import (
	"fmt"
	"sort"
	"strings"
)

// Check names one of the three mandatory checks.
type Check string

const (
	CheckFindingsCount     Check = "findings-count"
	CheckSeverityTokens    Check = "severity-tokens"
	CheckEvidencePreserved Check = "evidence-preserved"
)

// Result is the outcome of one check.
type Result struct {
	Check    Check    `json:"check"`
	Passed   bool     `json:"passed"`
	Messages []string `json:"messages"`
}

// Validator runs the checks against a fixed vocabulary.
type Validator struct {
	patterns Patterns
}

// New creates a validator over the given patterns.
func New(p Patterns) *Validator {
	return &Validator{patterns: p}
}

// NewDefault creates a validator over the built-in vocabulary.
func NewDefault() *Validator {
	return New(DefaultPatterns())
}

// Validate runs all three checks unconditionally plus the advisory length
// notices.
func (v *Validator) Validate(oldText, newText string) Report {
	return Report{
		Results: []Result{
			v.FindingsCount(oldText, newText),
			v.SeverityTokens(oldText, newText),
			v.EvidencePreserved(oldText, newText),
		},
		Warnings: lengthWarnings(oldText, newText),
	}
}

// FindingsCount fails when the new text names finding identifiers that the
// old text did not, or when the number of identifier mentions changes.
func (v *Validator) FindingsCount(oldText, newText string) Result {
	oldIDs := v.patterns.FindingID.FindAllString(oldText, -1)
	newIDs := v.patterns.FindingID.FindAllString(newText, -1)

	known := make(map[string]struct{}, len(oldIDs))
	for _, id := range oldIDs {
		known[id] = struct{}{}
	}

	var introduced []string
	seen := make(map[string]struct{})
	for _, id := range newIDs {
		if _, ok := known[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		introduced = append(introduced, id)
	}
	sort.Strings(introduced)

	res := Result{Check: CheckFindingsCount, Passed: true}
	if len(introduced) > 0 {
		res.Passed = false
		res.Messages = append(res.Messages,
			fmt.Sprintf("new finding identifiers introduced: %s", strings.Join(introduced, ", ")))
	}
	if len(oldIDs) != len(newIDs) {
		res.Passed = false
		res.Messages = append(res.Messages,
			fmt.Sprintf("finding identifier count changed: %d -> %d", len(oldIDs), len(newIDs)))
	}
	if res.Passed {
		res.Messages = []string{fmt.Sprintf("finding identifiers unchanged (%d)", len(oldIDs))}
	}
	return res
}

// SeverityTokens fails on any change in how often each severity word
// appears. Matching is case-insensitive on word boundaries.
func (v *Validator) SeverityTokens(oldText, newText string) Result {
	oldCounts := v.severityCounts(oldText)
	newCounts := v.severityCounts(newText)

	names := make(map[string]struct{})
	for k := range oldCounts {
		names[k] = struct{}{}
	}
	for k := range newCounts {
		names[k] = struct{}{}
	}
	ordered := make([]string, 0, len(names))
	for k := range names {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	res := Result{Check: CheckSeverityTokens, Passed: true}
	for _, name := range ordered {
		if oldCounts[name] != newCounts[name] {
			res.Passed = false
			res.Messages = append(res.Messages,
				fmt.Sprintf("severity %q count changed: %d -> %d", name, oldCounts[name], newCounts[name]))
		}
	}
	if res.Passed {
		res.Messages = []string{"severity mentions unchanged"}
	}
	return res
}

func (v *Validator) severityCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, m := range v.patterns.Severity.FindAllString(s, -1) {
		counts[v.patterns.canonicalSeverity(m)]++
	}
	return counts
}

// EvidencePreserved fails when any evidence token from the old text is not
// present verbatim in the new text.
func (v *Validator) EvidencePreserved(oldText, newText string) Result {
	evidence := v.Evidence(oldText)

	var missing []string
	for _, tok := range evidence {
		if !strings.Contains(newText, tok) {
			missing = append(missing, tok)
		}
	}

	res := Result{Check: CheckEvidencePreserved, Passed: len(missing) == 0}
	if res.Passed {
		res.Messages = []string{fmt.Sprintf("evidence preserved (%d identifiers)", len(evidence))}
		return res
	}
	res.Messages = []string{fmt.Sprintf("evidence removed: %s", strings.Join(missing, ", "))}
	return res
}

// Evidence returns the sorted, de-duplicated evidence tokens found in s.
func (v *Validator) Evidence(s string) []string {
	set := make(map[string]struct{})
	for _, re := range v.patterns.Evidence {
		for _, m := range re.FindAllString(s, -1) {
			set[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// lengthWarnings flags dramatic size changes. They never fail a check.
func lengthWarnings(oldText, newText string) []string {
	if len(oldText) == 0 {
		return nil
	}
	ratio := float64(len(newText)) / float64(len(oldText))
	switch {
	case ratio > 3:
		return []string{fmt.Sprintf("large expansion: new text is %.1fx the original length", ratio)}
	case ratio < 0.3:
		return []string{fmt.Sprintf("large compression: new text is %.0f%% of the original length", ratio*100)}
	}
	return nil
}
