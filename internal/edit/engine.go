// Package edit drives one AI-assisted edit of a report span: classify the
// request, build a prompt, obtain a patch from an injected generator, check
// it, and apply it only once a human has approved.
//
// The package never talks to a model service itself. Generation is the
// Generator capability supplied by the caller.
package edit

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"redline/internal/matcher"
	"redline/internal/patch"
	"redline/internal/safety"
)

// DefaultTemperature is the sampling temperature passed to generators.
const DefaultTemperature = 0.3

// Generator produces raw model output for a prompt. Implementations return
// (or wrap) ErrGenerationUnavailable when they cannot run.
type Generator func(ctx context.Context, prompt string, temperature float64) (string, error)

// EngineConfig tunes an Engine.
type EngineConfig struct {
	Temperature float64
	Matcher     matcher.Options
	Patterns    safety.Patterns
}

// DefaultEngineConfig returns the stock configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Temperature: DefaultTemperature,
		Matcher:     matcher.DefaultOptions(),
		Patterns:    safety.DefaultPatterns(),
	}
}

// Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	temperature float64
	matcher     *matcher.Matcher
	validator   *safety.Validator
	log         *zap.Logger
}

// NewEngine returns an Engine with the default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig(), nil)
}

// NewEngineWithConfig builds an Engine. A nil logger disables logging.
func NewEngineWithConfig(cfg EngineConfig, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Patterns.FindingID == nil {
		cfg.Patterns = safety.DefaultPatterns()
	}
	return &Engine{
		temperature: cfg.Temperature,
		matcher:     matcher.New(cfg.Matcher, log.Named("matcher")),
		validator:   safety.New(cfg.Patterns),
		log:         log,
	}
}

// Temperature reports the temperature handed to generators.
func (e *Engine) Temperature() float64 { return e.temperature }

// AnalyzeIntent classifies a request.
func (e *Engine) AnalyzeIntent(request, selected string) Intent {
	in := AnalyzeIntent(request, selected)
	e.log.Debug("intent analyzed",
		zap.String("kind", in.Kind.String()),
		zap.String("tone", in.Tone),
		zap.String("length", in.Length),
		zap.String("scope", string(in.Scope)))
	return in
}

// BuildContext assembles the prompt context for a span.
func (e *Engine) BuildContext(section, oldText string, intent Intent) Context {
	return BuildContext(section, oldText, intent)
}

// =============================================================================
// GENERATION
// =============================================================================

// GeneratePatch renders the prompt, invokes gen once and parses the reply.
// No retries are attempted.
func (e *Engine) GeneratePatch(ctx context.Context, c Context, gen Generator) (*patch.Patch, error) {
	if gen == nil {
		return nil, &GenerationError{Cause: fmt.Errorf("no generator configured")}
	}
	if c.OldText == "" {
		return nil, patch.ErrEmptyOldText
	}

	prompt := BuildPrompt(c)
	e.log.Debug("generating patch",
		zap.String("section", c.Section),
		zap.String("intent", c.Intent.Kind.String()),
		zap.Int("prompt_len", len(prompt)))

	raw, err := gen(ctx, prompt, e.temperature)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("generation aborted: %w", ctxErr)
		}
		return nil, &GenerationError{Cause: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("generation aborted: %w", ctxErr)
	}

	reply, err := patch.Parse(raw)
	if err != nil {
		e.log.Debug("model reply rejected", zap.Error(err), zap.Int("reply_len", len(strings.TrimSpace(raw))))
		return nil, err
	}

	p, err := patch.New(c.Section, c.OldText, reply, c.Intent.Kind.String())
	if err != nil {
		return nil, err
	}
	e.log.Debug("patch parsed", zap.String("patch_id", p.ID), zap.Int("changes", len(p.Changes)))
	return p, nil
}

// Result is the single value delivered by GeneratePatchAsync.
type Result struct {
	Patch *patch.Patch
	Err   error
}

// GeneratePatchAsync runs GeneratePatch on its own goroutine. Exactly one
// Result is delivered on the returned channel, which has room for it, so
// the goroutine never blocks even if the caller stops listening.
func (e *Engine) GeneratePatchAsync(ctx context.Context, c Context, gen Generator) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		p, err := e.GeneratePatch(ctx, c, gen)
		out <- Result{Patch: p, Err: err}
	}()
	return out
}

// =============================================================================
// VALIDATION AND APPLICATION
// =============================================================================

// Validate runs every safety check on the patch.
func (e *Engine) Validate(p *patch.Patch) safety.Report {
	rep := e.validator.Validate(p.OldText, p.NewText)
	e.log.Debug("patch validated",
		zap.String("patch_id", p.ID),
		zap.Bool("passed", rep.Passed()),
		zap.Strings("warnings", rep.Warnings))
	return rep
}

// Apply replaces the patch's span in doc. On failure doc is returned
// unchanged with an error matching ErrNoMatch.
func (e *Engine) Apply(doc string, p *patch.Patch) (string, matcher.Match, error) {
	if err := p.Validate(); err != nil {
		return doc, matcher.Match{}, err
	}
	out, m, err := e.matcher.Apply(doc, p.OldText, p.NewText)
	if err != nil {
		e.log.Debug("patch apply failed", zap.String("patch_id", p.ID), zap.Error(err))
		return doc, m, err
	}
	e.log.Debug("patch applied",
		zap.String("patch_id", p.ID),
		zap.Stringer("strategy", m.Strategy),
		zap.Int("start", m.Start),
		zap.Int("end", m.End))
	return out, m, nil
}
