package edit

import (
	"strings"
)

// Context is everything the prompt needs for one edit. It carries only the
// selected span, never the whole document.
type Context struct {
	Section      string   `json:"section"`
	SectionKey   string   `json:"section_key"`
	OldText      string   `json:"old_text"`
	Intent       Intent   `json:"intent"`
	Constraints  []string `json:"constraints"`
	ToneGuidance string   `json:"tone_guidance"`
}

// DefaultToneGuidance applies to sections missing from the guidance table.
const DefaultToneGuidance = "neutral and professional"

var sectionGuidance = map[string]string{
	"executive-summary": "business-focused: lead with impact and risk, avoid implementation detail",
	"findings":          "technical and evidence-based: keep identifiers, paths and reproduction facts exact",
	"risk-overview":     "impact-balanced: weigh likelihood against business impact without alarmism",
	"recommendations":   "actionable: imperative, specific remediation steps",
	"technical-details": "exhaustive: keep every technical specific, favour precision over brevity",
}

// SectionKey normalizes a section label: lowercase, with spaces and
// underscores folded into single dashes.
func SectionKey(section string) string {
	s := strings.ToLower(strings.TrimSpace(section))
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '_' || r == '\t' {
			return '-'
		}
		return r
	}, s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// ToneGuidance returns the fixed guidance line for a section label.
func ToneGuidance(section string) string {
	if g, ok := sectionGuidance[SectionKey(section)]; ok {
		return g
	}
	return DefaultToneGuidance
}

// BuildContext assembles the prompt context. It is pure.
func BuildContext(section, oldText string, intent Intent) Context {
	constraints := intent.Constraints
	if len(constraints) == 0 {
		constraints = DefaultConstraints()
	}
	constraints = append([]string(nil), constraints...)

	return Context{
		Section:      section,
		SectionKey:   SectionKey(section),
		OldText:      oldText,
		Intent:       intent,
		Constraints:  constraints,
		ToneGuidance: ToneGuidance(section),
	}
}
