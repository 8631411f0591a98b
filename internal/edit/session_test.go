package edit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSession_HappyPath(t *testing.T) {
	doc := "Severity: High\nThe login form is vulnerable."
	s := NewSession(NewEngine(), "Findings", "The login form is vulnerable.")
	assert.Equal(t, StateIdle, s.State())

	in, err := s.Analyze("make this concise")
	require.NoError(t, err)
	assert.Equal(t, KindCompress, in.Kind)
	assert.Equal(t, StateIntentDetected, s.State())

	_, err = s.Build()
	require.NoError(t, err)
	assert.Equal(t, StateContextBuilt, s.State())

	rep, err := s.Generate(context.Background(), scripted(replyJSON(t, "Login form is vulnerable.")))
	require.NoError(t, err)
	assert.True(t, rep.Passed())
	assert.Equal(t, StateAwaitingApproval, s.State())
	require.NotNil(t, s.Patch())

	out, _, err := s.Approve(doc)
	require.NoError(t, err)
	assert.Equal(t, "Severity: High\nLogin form is vulnerable.", out)
	assert.Equal(t, StateApplied, s.State())
	assert.True(t, s.State().Terminal())
}

func TestSession_FailedValidationNeedsOverride(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := NewEngineWithConfig(DefaultEngineConfig(), zap.New(core))

	doc := "Severity: High\nThe login form is vulnerable."
	s := NewSession(e, "Findings", "Severity: High")
	_, err := s.Analyze("change severity to Medium")
	require.NoError(t, err)
	_, err = s.Build()
	require.NoError(t, err)

	rep, err := s.Generate(context.Background(), scripted(replyJSON(t, "Severity: Medium")))
	require.NoError(t, err)
	assert.False(t, rep.Passed())

	out, _, err := s.Approve(doc)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, doc, out)
	assert.Equal(t, StateAwaitingApproval, s.State(), "blocked approval keeps the decision open")

	out, _, err = s.ApproveOverride(doc)
	require.NoError(t, err)
	assert.Equal(t, "Severity: Medium\nThe login form is vulnerable.", out)
	assert.Equal(t, StateApplied, s.State())
	assert.Equal(t, 1, logs.FilterMessage("validation overridden by reviewer").Len())
}

func TestSession_RejectLeavesNothingApplied(t *testing.T) {
	s := NewSession(NewEngine(), "Findings", "The login form is vulnerable.")
	_, _ = s.Analyze("rewrite")
	_, _ = s.Build()
	_, err := s.Generate(context.Background(), scripted(replyJSON(t, "Rewritten.")))
	require.NoError(t, err)

	require.NoError(t, s.Reject())
	assert.Equal(t, StateRejected, s.State())

	_, _, err = s.Approve("The login form is vulnerable.")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.Reject(), ErrInvalidTransition)
}

func TestSession_NoMatchFails(t *testing.T) {
	s := NewSession(NewEngine(), "Findings", "The login form is vulnerable.")
	_, _ = s.Analyze("rewrite")
	_, _ = s.Build()
	_, err := s.Generate(context.Background(), scripted(replyJSON(t, "Rewritten.")))
	require.NoError(t, err)

	doc := "A completely different document body."
	out, _, err := s.Approve(doc)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, doc, out)
	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Err(), ErrNoMatch)
}

func TestSession_GenerationErrorFails(t *testing.T) {
	s := NewSession(NewEngine(), "Findings", "old")
	_, _ = s.Analyze("rewrite")
	_, _ = s.Build()

	_, err := s.Generate(context.Background(), scripted("not json"))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, StateFailed, s.State())
	assert.Nil(t, s.Patch())
}

func TestSession_OutOfOrderCalls(t *testing.T) {
	s := NewSession(nil, "Findings", "old")

	_, err := s.Build()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.StartGeneration()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, _, err = s.Approve("old")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.Analyze("rewrite")
	require.NoError(t, err)
	_, err = s.Analyze("rewrite")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIntentDetected, s.State())
}

func TestSession_AbandonDuringGenerationDiscardsResult(t *testing.T) {
	e := NewEngine()
	s := NewSession(e, "Findings", "old span")
	_, _ = s.Analyze("rewrite")
	_, _ = s.Build()

	c, err := s.StartGeneration()
	require.NoError(t, err)
	assert.Equal(t, StateGenerating, s.State())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := e.GeneratePatchAsync(ctx, c, scripted(`{"edited_text":"new span"}`))

	require.NoError(t, s.Abandon())
	res := <-ch

	_, err = s.Complete(res)
	assert.ErrorIs(t, err, ErrStaleResult)
	assert.Equal(t, StateRejected, s.State())
	assert.Nil(t, s.Patch(), "stale results are never recorded")
}

func TestSession_CompleteWithNilPatch(t *testing.T) {
	s := NewSession(NewEngine(), "Findings", "old")
	_, _ = s.Analyze("rewrite")
	_, _ = s.Build()
	_, _ = s.StartGeneration()

	_, err := s.Complete(Result{})
	assert.True(t, errors.Is(err, ErrEmptyResponse))
	assert.Equal(t, StateFailed, s.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_approval", StateAwaitingApproval.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.False(t, StateGenerating.Terminal())
}
