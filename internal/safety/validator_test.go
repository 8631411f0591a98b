package safety

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CleanRewritePasses(t *testing.T) {
	v := NewDefault()
	oldText := "SQLI-001 (High): the login form at app/login.py is vulnerable to CVE-2021-44228 style injection (CWE-89)."
	newText := "SQLI-001 (High): app/login.py accepts unsanitized input, matching CVE-2021-44228 and CWE-89."

	rep := v.Validate(oldText, newText)
	require.Len(t, rep.Results, 3)
	assert.True(t, rep.Passed(), "lines: %v", rep.Lines())
	assert.NoError(t, rep.Err())
	assert.Empty(t, rep.Failed())
}

func TestValidate_EqualSeveritiesAndEvidenceSupersetPass(t *testing.T) {
	v := NewDefault()
	cases := []struct {
		oldText, newText string
	}{
		{"Low risk.", "This is a low risk."},
		{"Critical and high issues in config/app.yaml.", "Issues rated critical and HIGH in config/app.yaml remain."},
		{"See CWE-79.", "Refer to CWE-79 for background."},
		{"No identifiers at all.", "Still none."},
		{"Medium: settings.xml exposes secrets.", "settings.xml exposes secrets (Medium)."},
	}
	for _, tc := range cases {
		rep := v.Validate(tc.oldText, tc.newText)
		assert.True(t, rep.Passed(), "%q -> %q: %v", tc.oldText, tc.newText, rep.Lines())
	}
}

func TestSeverityTokens_ChangedSeverityFails(t *testing.T) {
	v := NewDefault()
	res := v.SeverityTokens("Severity: High", "Severity: Medium")

	assert.False(t, res.Passed)
	joined := strings.Join(res.Messages, "\n")
	assert.Contains(t, joined, `"High" count changed: 1 -> 0`)
	assert.Contains(t, joined, `"Medium" count changed: 0 -> 1`)
}

func TestSeverityTokens_WordBoundaries(t *testing.T) {
	v := NewDefault()
	// "allow" and "highway" must not count as Low/High.
	res := v.SeverityTokens("We allow the highway.", "We allow it.")
	assert.True(t, res.Passed)
}

func TestSeverityTokens_CaseInsensitive(t *testing.T) {
	v := NewDefault()
	assert.True(t, v.SeverityTokens("HIGH impact", "high impact").Passed)
	assert.False(t, v.SeverityTokens("high and high", "high").Passed)
}

func TestEvidencePreserved_RemovingAnyTokenFails(t *testing.T) {
	v := NewDefault()
	oldText := "CVE-2023-12345 in /etc/nginx/nginx.conf via rule AUTH-101, see CWE-287."
	evidence := v.Evidence(oldText)
	require.Contains(t, evidence, "CVE-2023-12345")
	require.Contains(t, evidence, "CWE-287")
	require.Contains(t, evidence, "AUTH-101")
	require.Contains(t, evidence, "/etc/nginx/nginx.conf")

	for _, tok := range evidence {
		newText := strings.ReplaceAll(oldText, tok, "[redacted]")
		rep := v.Validate(oldText, newText)
		res, ok := rep.Result(CheckEvidencePreserved)
		require.True(t, ok)
		assert.False(t, res.Passed, "removing %q should fail", tok)

		err := rep.Err()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidationFailed))
		var vf *ValidationFailedError
		require.True(t, errors.As(err, &vf))
		assert.Contains(t, vf.Checks(), CheckEvidencePreserved)
	}
}

func TestFindingsCount(t *testing.T) {
	v := NewDefault()

	t.Run("introduced identifier", func(t *testing.T) {
		res := v.FindingsCount("Issue XSS-004 found.", "Issues XSS-004 and SQLI-009 found.")
		assert.False(t, res.Passed)
		assert.Contains(t, strings.Join(res.Messages, " "), "SQLI-009")
	})

	t.Run("dropped mention", func(t *testing.T) {
		res := v.FindingsCount("XSS-004 and again XSS-004.", "XSS-004.")
		assert.False(t, res.Passed)
		assert.Contains(t, strings.Join(res.Messages, " "), "2 -> 1")
	})

	t.Run("reordered", func(t *testing.T) {
		res := v.FindingsCount("XSS-004 then SQLI-009.", "SQLI-009 then XSS-004.")
		assert.True(t, res.Passed)
	})
}

func TestValidate_LengthWarningsAreAdvisory(t *testing.T) {
	v := NewDefault()
	rep := v.Validate("short", strings.Repeat("much longer text ", 5))
	assert.True(t, rep.Passed())
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "large expansion")

	rep = v.Validate(strings.Repeat("long original text ", 5), "tiny")
	assert.True(t, rep.Passed())
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "large compression")
}

func TestNewPatterns_CustomVocabulary(t *testing.T) {
	p, err := NewPatterns(`\bF\d+\b`, []string{"Severe", "Minor"}, []string{`\bTICKET-\d+\b`})
	require.NoError(t, err)
	v := New(p)

	assert.False(t, v.SeverityTokens("Severe bug", "bug").Passed)
	assert.True(t, v.SeverityTokens("High bug", "bug").Passed)
	assert.False(t, v.EvidencePreserved("TICKET-7", "ticket").Passed)
	assert.False(t, v.FindingsCount("F1", "F1 F2").Passed)
}

func TestNewPatterns_InvalidRegex(t *testing.T) {
	_, err := NewPatterns(`([`, nil, nil)
	assert.Error(t, err)

	_, err = NewPatterns("", nil, []string{`(`})
	assert.Error(t, err)
}

func TestReport_Lines(t *testing.T) {
	v := NewDefault()
	lines := v.Validate("Severity: High", "Severity: Medium").Lines()
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "PASS findings-count"))
	assert.True(t, strings.HasPrefix(lines[1], "FAIL severity-tokens"))
	assert.True(t, strings.HasPrefix(lines[2], "PASS evidence-preserved"))
}
