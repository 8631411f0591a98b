package edit

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every generation request.
const SystemPrompt = `You are an editor for cybersecurity assessment reports.

Rules you must follow:
- Never add vulnerabilities or findings that are not in the text.
- Never change a severity rating (Critical, High, Medium, Low).
- Never alter evidence: CVE and CWE identifiers, rule IDs and file paths stay byte-for-byte identical.
- Never invent technical details.
- Facts and numbers stay as written. Only wording, grammar, structure and tone may change.`

// ResponseContract is appended to every prompt.
const ResponseContract = `Return ONLY valid JSON with keys edited_text, justification, changes:
{"edited_text": "<the edited text>", "justification": "<why>", "changes": ["<change>", "..."]}`

// Headers that delimit the original text inside a prompt.
const (
	OriginalTextHeader = "ORIGINAL TEXT:"
	ConstraintsHeader  = "CONSTRAINTS:"
)

type instruction struct {
	lead   string
	detail string
}

var instructions = map[Kind]instruction{
	KindRewrite: {
		lead:   "Rewrite the text below for the %s section.",
		detail: "Improve clarity, grammar and flow without touching any fact.",
	},
	KindSummarize: {
		lead:   "Summarize the text below for the %s section.",
		detail: "Keep the key points; drop nothing a reader needs to act on.",
	},
	KindCompress: {
		lead:   "Compress the text below into one tight paragraph for the %s section.",
		detail: "Remove redundancy and filler while keeping every identifier and severity.",
	},
	KindExpand: {
		lead:   "Expand the text below with more explanation for the %s section.",
		detail: "Add context and explanation only from what the text already states.",
	},
	KindFormalize: {
		lead:   "Rewrite the text below for the %s section in a formal register.",
		detail: "Use language suitable for a security audit deliverable.",
	},
	KindSimplify: {
		lead:   "Rewrite the text below for the %s section in plain language.",
		detail: "Make it readable for a non-specialist while staying technically correct.",
	},
	KindProofread: {
		lead:   "Proofread the text below from the %s section.",
		detail: "Fix grammar, spelling and punctuation only. Do not change meaning.",
	},
}

// BuildPrompt renders the full prompt for a context. It is pure.
func BuildPrompt(c Context) string {
	section := c.Section
	if section == "" {
		section = "report"
	}

	ins, ok := instructions[c.Intent.Kind]
	if !ok {
		ins = instructions[KindRewrite]
	}

	var b strings.Builder
	b.WriteString(SystemPrompt)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, ins.lead, section)
	b.WriteString("\n")
	if c.Intent.Kind == KindCustom && strings.TrimSpace(c.Intent.Raw) != "" {
		fmt.Fprintf(&b, "Request: %s\n", strings.TrimSpace(c.Intent.Raw))
	}
	fmt.Fprintf(&b, "Intent: %s\n", c.Intent.Kind)
	fmt.Fprintf(&b, "Section guidance: %s\n", c.ToneGuidance)
	if c.Intent.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", c.Intent.Tone)
	}
	if c.Intent.Length != "" {
		fmt.Fprintf(&b, "Length: make the text %s\n", c.Intent.Length)
	}

	b.WriteString("\n" + OriginalTextHeader + "\n")
	b.WriteString(c.OldText)
	b.WriteString("\n\n" + ConstraintsHeader + "\n")
	for _, con := range c.Constraints {
		fmt.Fprintf(&b, "- %s\n", con)
	}

	b.WriteString("\n")
	b.WriteString(ins.detail)
	b.WriteString("\n\n")
	b.WriteString(ResponseContract)
	return b.String()
}
