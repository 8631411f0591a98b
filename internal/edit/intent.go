package edit

import (
	"regexp"
	"strings"
)

// =============================================================================
// INTENT
// =============================================================================

// Kind classifies what the analyst asked for.
type Kind int

const (
	KindCustom Kind = iota
	KindRewrite
	KindSummarize
	KindCompress
	KindExpand
	KindFormalize
	KindSimplify
	KindProofread
)

var kindNames = map[Kind]string{
	KindCustom:    "CUSTOM",
	KindRewrite:   "REWRITE",
	KindSummarize: "SUMMARIZE",
	KindCompress:  "COMPRESS",
	KindExpand:    "EXPAND",
	KindFormalize: "FORMALIZE",
	KindSimplify:  "SIMPLIFY",
	KindProofread: "PROOFREAD",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "CUSTOM"
}

// ParseKind is the inverse of Kind.String. Unknown names map to KindCustom.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k
		}
	}
	return KindCustom
}

// Scope is the part of the report a request refers to.
type Scope string

const (
	ScopeSelection    Scope = "SELECTION"
	ScopeParagraph    Scope = "PARAGRAPH"
	ScopeSection      Scope = "SECTION"
	ScopeExecSummary  Scope = "EXEC_SUMMARY"
	ScopeFindings     Scope = "FINDINGS"
	ScopeRiskOverview Scope = "RISK_OVERVIEW"
	ScopeFullReport   Scope = "FULL_REPORT"
)

// Tone and length hints. Empty means "not requested".
const (
	ToneProfessional = "professional"
	ToneTechnical    = "technical"
	ToneSimple       = "simple"
	ToneExecutive    = "executive"

	LengthShorter = "shorter"
	LengthLonger  = "longer"
)

// CoreConstraint is present in every intent.
const CoreConstraint = "preserve facts, severities, identifiers"

// baseConstraints are attached to every intent after CoreConstraint.
var baseConstraints = []string{
	"Do not add new vulnerabilities or findings",
	"Do not change severity ratings",
	"Do not modify evidence references, rule IDs or file paths",
	"Keep all facts and numbers unchanged",
	"Preserve all technical details",
}

// Intent is the classified request.
type Intent struct {
	Kind        Kind     `json:"kind"`
	Tone        string   `json:"tone,omitempty"`
	Length      string   `json:"length,omitempty"`
	Scope       Scope    `json:"scope"`
	Constraints []string `json:"constraints"`
	Raw         string   `json:"raw"`
}

// keywordRule maps a keyword alternation to a kind. Keywords match at a word
// start, so "shorten" also catches "shortened".
type keywordRule struct {
	kind Kind
	re   *regexp.Regexp
}

func words(ws ...string) *regexp.Regexp {
	quoted := make([]string, len(ws))
	for i, w := range ws {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)`)
}

// Priority order: first matching rule wins.
var kindRules = []keywordRule{
	{KindCompress, words("compress", "shorten", "condense", "tighten", "concise", "shorter", "trim", "cut down", "one line", "one-liner")},
	{KindExpand, words("expand", "extend", "elaborate", "flesh out", "more detail", "add detail", "longer")},
	{KindFormalize, words("formal", "professional", "business tone")},
	{KindSimplify, words("simplify", "simpler", "simple", "plain", "easy", "layman", "non-technical")},
}

// The technical tier sets a tone rather than a kind of its own.
var technicalRule = words("technical", "cve", "cvss", "more precise", "precise")

// Generic rewrite tier, checked in order. An explicit rewrite verb beats
// "summary", which is usually the section name ("rewrite the executive
// summary").
var genericRules = []keywordRule{
	{KindRewrite, words("rewrite", "rephrase", "reword", "improve", "clarify", "polish")},
	{KindSummarize, words("summarize", "summarise", "summary", "brief", "tl;dr")},
	{KindProofread, words("proofread", "grammar", "spelling", "typo", "punctuation")},
}

var toneRules = []struct {
	tone string
	re   *regexp.Regexp
}{
	{ToneProfessional, words("professional", "formal", "business")},
	{ToneTechnical, words("technical", "cve", "cvss")},
	{ToneSimple, words("simple", "plain", "easy")},
	{ToneExecutive, words("executive", "high-level", "c-level", "board")},
}

var (
	shorterRule = words("short", "brief", "one line", "compress", "concise", "condense", "trim")
	longerRule  = words("long", "expand", "detail", "elaborate", "more")
)

var scopeRules = []struct {
	scope Scope
	re    *regexp.Regexp
}{
	{ScopeExecSummary, words("executive summary", "executive", "summary section")},
	{ScopeFindings, words("finding", "vulnerabilit")},
	{ScopeRiskOverview, words("risk overview")},
}

var (
	selectionRule  = words("this", "selection", "selected", "text")
	paragraphRule  = words("paragraph")
	sectionRule    = words("section")
	fullReportRule = words("report", "entire", "whole")
)

// AnalyzeIntent classifies a request. It never fails: anything unmatched is
// KindCustom.
func AnalyzeIntent(request, selected string) Intent {
	in := Intent{
		Kind:        classifyKind(request),
		Tone:        detectTone(request),
		Length:      detectLength(request),
		Scope:       detectScope(request, selected),
		Constraints: DefaultConstraints(),
		Raw:         request,
	}
	if in.Tone == "" && in.Kind == KindCustom && technicalRule.MatchString(request) {
		in.Tone = ToneTechnical
	}
	return in
}

// DefaultConstraints returns a fresh copy of the always-on constraint list.
func DefaultConstraints() []string {
	out := make([]string, 0, len(baseConstraints)+1)
	out = append(out, CoreConstraint)
	return append(out, baseConstraints...)
}

func classifyKind(request string) Kind {
	for _, r := range kindRules {
		if r.re.MatchString(request) {
			return r.kind
		}
	}
	if technicalRule.MatchString(request) {
		return KindCustom
	}
	for _, r := range genericRules {
		if r.re.MatchString(request) {
			return r.kind
		}
	}
	return KindCustom
}

func detectTone(request string) string {
	for _, r := range toneRules {
		if r.re.MatchString(request) {
			return r.tone
		}
	}
	return ""
}

func detectLength(request string) string {
	switch {
	case shorterRule.MatchString(request):
		return LengthShorter
	case longerRule.MatchString(request):
		return LengthLonger
	}
	return ""
}

func detectScope(request, selected string) Scope {
	for _, r := range scopeRules {
		if r.re.MatchString(request) {
			return r.scope
		}
	}
	switch {
	case selected != "" || selectionRule.MatchString(request):
		return ScopeSelection
	case paragraphRule.MatchString(request):
		return ScopeParagraph
	case sectionRule.MatchString(request):
		return ScopeSection
	case fullReportRule.MatchString(request):
		return ScopeFullReport
	}
	return ScopeSelection
}
