package edit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeIntent_Kinds(t *testing.T) {
	tests := []struct {
		request string
		want    Kind
	}{
		{"make this concise", KindCompress},
		{"Shorten the paragraph", KindCompress},
		{"please condense it", KindCompress},
		{"expand on this", KindExpand},
		{"elaborate with more detail", KindExpand},
		{"make it more formal", KindFormalize},
		{"sound more professional", KindFormalize},
		{"simplify this for managers", KindSimplify},
		{"use plain English", KindSimplify},
		{"rephrase this sentence", KindRewrite},
		{"rewrite the executive summary", KindRewrite},
		{"summarize the finding", KindSummarize},
		{"fix the grammar", KindProofread},
		{"proofread please", KindProofread},
		{"use more technical language", KindCustom},
		{"change severity to Medium", KindCustom},
		{"", KindCustom},
	}
	for _, tc := range tests {
		t.Run(tc.request, func(t *testing.T) {
			got := AnalyzeIntent(tc.request, "")
			assert.Equal(t, tc.want, got.Kind, "kind for %q", tc.request)
			assert.Equal(t, tc.request, got.Raw)
		})
	}
}

func TestAnalyzeIntent_PriorityOrder(t *testing.T) {
	// Earlier tiers win whenever several keywords appear together.
	assert.Equal(t, KindCompress, AnalyzeIntent("make it shorter and more formal", "").Kind)
	assert.Equal(t, KindCompress, AnalyzeIntent("technical but concise", "").Kind)
	assert.Equal(t, KindExpand, AnalyzeIntent("expand and simplify", "").Kind)
	assert.Equal(t, KindFormalize, AnalyzeIntent("professional but simple", "").Kind)
	assert.Equal(t, KindSimplify, AnalyzeIntent("simplify and rewrite", "").Kind)
	assert.Equal(t, KindCustom, AnalyzeIntent("rewrite with CVSS detail", "").Kind)
}

func TestAnalyzeIntent_WordStartsOnly(t *testing.T) {
	// "retrim" and "unexpanded" must not trigger compress or expand.
	assert.Equal(t, KindCustom, AnalyzeIntent("retrim unexpanded", "").Kind)
}

func TestAnalyzeIntent_TechnicalTone(t *testing.T) {
	in := AnalyzeIntent("use more technical language", "")
	assert.Equal(t, ToneTechnical, in.Tone)
	assert.Equal(t, LengthLonger, in.Length)
}

func TestAnalyzeIntent_ToneAndLength(t *testing.T) {
	in := AnalyzeIntent("make this concise", "")
	assert.Equal(t, LengthShorter, in.Length)
	assert.Equal(t, "", in.Tone)

	in = AnalyzeIntent("make it formal", "")
	assert.Equal(t, ToneProfessional, in.Tone)
	assert.Equal(t, "", in.Length)

	in = AnalyzeIntent("high-level wording for the board", "")
	assert.Equal(t, ToneExecutive, in.Tone)
}

func TestAnalyzeIntent_Scope(t *testing.T) {
	tests := []struct {
		request, selected string
		want              Scope
	}{
		{"rewrite the executive summary", "", ScopeExecSummary},
		{"tighten the finding", "", ScopeFindings},
		{"polish the risk overview", "", ScopeRiskOverview},
		{"improve this", "", ScopeSelection},
		{"improve", "some selected text", ScopeSelection},
		{"improve the paragraph", "", ScopeParagraph},
		{"reword the section", "", ScopeSection},
		{"polish the whole report", "", ScopeFullReport},
		{"polish", "", ScopeSelection},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, AnalyzeIntent(tc.request, tc.selected).Scope, tc.request)
	}
}

func TestAnalyzeIntent_AlwaysCarriesCoreConstraint(t *testing.T) {
	for _, req := range []string{"", "make this concise", "anything at all", "rewrite"} {
		in := AnalyzeIntent(req, "")
		assert.Contains(t, in.Constraints, CoreConstraint, req)
		assert.Equal(t, CoreConstraint, in.Constraints[0])
	}
}

func TestDefaultConstraints_FreshCopy(t *testing.T) {
	a := DefaultConstraints()
	a[0] = "mutated"
	assert.Equal(t, CoreConstraint, DefaultConstraints()[0])
}

func TestKindStringRoundTrip(t *testing.T) {
	for k := range kindNames {
		assert.Equal(t, k, ParseKind(k.String()))
		assert.Equal(t, k, ParseKind(strings.ToLower(k.String())))
	}
	assert.Equal(t, KindCustom, ParseKind("nonsense"))
	assert.Equal(t, "CUSTOM", Kind(99).String())
}
