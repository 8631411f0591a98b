package edit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"redline/internal/matcher"
	"redline/internal/patch"
	"redline/internal/safety"
)

// State is a step of the edit state machine.
type State int

const (
	StateIdle State = iota
	StateIntentDetected
	StateContextBuilt
	StateGenerating
	StatePatchParsed
	StateValidated
	StateAwaitingApproval
	StateApplied
	StateRejected
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateIntentDetected:   "intent_detected",
	StateContextBuilt:     "context_built",
	StateGenerating:       "generating",
	StatePatchParsed:      "patch_parsed",
	StateValidated:        "validated",
	StateAwaitingApproval: "awaiting_approval",
	StateApplied:          "applied",
	StateRejected:         "rejected",
	StateFailed:           "failed",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateApplied || s == StateRejected || s == StateFailed
}

// Session walks one request through the edit state machine:
//
//	Idle -> IntentDetected -> ContextBuilt -> Generating -> PatchParsed ->
//	Validated -> AwaitingApproval -> Applied | Rejected | Failed
//
// Reject and Abandon are accepted from any non-terminal state. A Session has
// a single owner; callers that generate on another goroutine hand the Result
// back with Complete.
type Session struct {
	engine  *Engine
	section string
	oldText string

	state  State
	intent Intent
	ctx    Context
	patch  *patch.Patch
	report safety.Report
	err    error
}

// NewSession starts a session for one selected span.
func NewSession(e *Engine, section, oldText string) *Session {
	if e == nil {
		e = NewEngine()
	}
	return &Session{engine: e, section: section, oldText: oldText}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Intent returns the analyzed intent.
func (s *Session) Intent() Intent {
	return s.intent
}

// Context returns the built context.
func (s *Session) Context() Context {
	return s.ctx
}

// Patch returns the parsed patch, or nil before generation completes.
func (s *Session) Patch() *patch.Patch {
	return s.patch
}

// Report returns the validation report.
func (s *Session) Report() safety.Report {
	return s.report
}

// Err returns the error that moved the session to Failed, if any.
func (s *Session) Err() error {
	return s.err
}

func (s *Session) expect(want State, op string) error {
	if s.state != want {
		return fmt.Errorf("%w: %s requires %s, session is %s", ErrInvalidTransition, op, want, s.state)
	}
	return nil
}

func (s *Session) move(to State) {
	s.engine.log.Debug("edit session transition",
		zap.Stringer("from", s.state),
		zap.Stringer("to", to))
	s.state = to
}

func (s *Session) fail(err error) error {
	s.err = err
	s.move(StateFailed)
	return err
}

// Analyze classifies the request. Idle -> IntentDetected.
func (s *Session) Analyze(request string) (Intent, error) {
	if err := s.expect(StateIdle, "Analyze"); err != nil {
		return Intent{}, err
	}
	s.intent = s.engine.AnalyzeIntent(request, s.oldText)
	s.move(StateIntentDetected)
	return s.intent, nil
}

// Build assembles the prompt context. IntentDetected -> ContextBuilt.
func (s *Session) Build() (Context, error) {
	if err := s.expect(StateIntentDetected, "Build"); err != nil {
		return Context{}, err
	}
	s.ctx = s.engine.BuildContext(s.section, s.oldText, s.intent)
	s.move(StateContextBuilt)
	return s.ctx, nil
}

// StartGeneration marks the session as waiting on a generator and returns
// the context to generate from. ContextBuilt -> Generating.
func (s *Session) StartGeneration() (Context, error) {
	if err := s.expect(StateContextBuilt, "StartGeneration"); err != nil {
		return Context{}, err
	}
	s.move(StateGenerating)
	return s.ctx, nil
}

// Complete records a generation result and validates the patch. A result
// arriving after the session left Generating is discarded with
// ErrStaleResult. Generating -> PatchParsed -> Validated -> AwaitingApproval,
// or Failed when generation errored.
func (s *Session) Complete(res Result) (safety.Report, error) {
	if s.state != StateGenerating {
		return safety.Report{}, fmt.Errorf("%w (session is %s)", ErrStaleResult, s.state)
	}
	if res.Err != nil {
		return safety.Report{}, s.fail(res.Err)
	}
	if res.Patch == nil {
		return safety.Report{}, s.fail(ErrEmptyResponse)
	}

	s.patch = res.Patch
	s.move(StatePatchParsed)
	s.report = s.engine.Validate(res.Patch)
	s.move(StateValidated)
	s.move(StateAwaitingApproval)
	return s.report, nil
}

// Generate runs StartGeneration, the generator and Complete in one call.
func (s *Session) Generate(ctx context.Context, gen Generator) (safety.Report, error) {
	c, err := s.StartGeneration()
	if err != nil {
		return safety.Report{}, err
	}
	p, genErr := s.engine.GeneratePatch(ctx, c, gen)
	return s.Complete(Result{Patch: p, Err: genErr})
}

// Approve applies the patch to doc after human approval. A failing
// validation report blocks the approval and leaves the session awaiting a
// decision; use ApproveOverride to apply anyway. AwaitingApproval -> Applied,
// or Failed when the span cannot be located (doc is returned unchanged).
func (s *Session) Approve(doc string) (string, matcher.Match, error) {
	return s.approve(doc, false)
}

// ApproveOverride applies the patch even when validation failed. It is the
// explicit human override.
func (s *Session) ApproveOverride(doc string) (string, matcher.Match, error) {
	return s.approve(doc, true)
}

func (s *Session) approve(doc string, override bool) (string, matcher.Match, error) {
	if err := s.expect(StateAwaitingApproval, "Approve"); err != nil {
		return doc, matcher.Match{}, err
	}
	if !override {
		if err := s.report.Err(); err != nil {
			return doc, matcher.Match{}, err
		}
	} else if !s.report.Passed() {
		s.engine.log.Info("validation overridden by reviewer",
			zap.String("patch_id", s.patch.ID),
			zap.Int("failed_checks", len(s.report.Failed())))
	}

	out, m, err := s.engine.Apply(doc, s.patch)
	if err != nil {
		return doc, m, s.fail(err)
	}
	s.move(StateApplied)
	return out, m, nil
}

// Reject discards the proposal. Any non-terminal state -> Rejected.
func (s *Session) Reject() error {
	if s.state.Terminal() {
		return fmt.Errorf("%w: Reject on %s session", ErrInvalidTransition, s.state)
	}
	s.move(StateRejected)
	return nil
}

// Abandon ends the session because its inputs went stale, for example the
// document changed while generating. A pending Complete becomes stale.
func (s *Session) Abandon() error {
	return s.Reject()
}
