package edit

import (
	"context"
	"errors"
	"fmt"

	"redline/internal/matcher"
	"redline/internal/patch"
	"redline/internal/safety"
	"redline/internal/version"
)

// Sentinels re-exported so callers can match every failure of an edit from
// one package.
var (
	ErrEmptyResponse     = patch.ErrEmptyResponse
	ErrMalformedResponse = patch.ErrMalformedResponse
	ErrValidationFailed  = safety.ErrValidationFailed
	ErrNoMatch           = matcher.ErrNoMatch
	ErrNoHistory         = version.ErrNoHistory
	ErrNotFound          = version.ErrNotFound
)

var (
	// ErrGenerationUnavailable is returned (or wrapped) by a Generator that
	// cannot run, and by GeneratePatch when no Generator was supplied.
	ErrGenerationUnavailable = errors.New("generation capability unavailable")

	// ErrInvalidTransition rejects a Session call made in the wrong state.
	ErrInvalidTransition = errors.New("invalid edit session transition")

	// ErrStaleResult means a generation finished after its session moved on.
	ErrStaleResult = errors.New("generation result arrived after session left generating state")
)

// GenerationError wraps the cause reported by a Generator.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	if e.Cause == nil {
		return ErrGenerationUnavailable.Error()
	}
	return fmt.Sprintf("%s: %v", ErrGenerationUnavailable, e.Cause)
}

// Is makes errors.Is(err, ErrGenerationUnavailable) hold for every
// GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationUnavailable
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Code is a stable short name for an error class, used in logs and CLI
// output.
type Code string

const (
	CodeNone                  Code = "ok"
	CodeCancel                Code = "cancelled"
	CodeGenerationUnavailable Code = "generation_unavailable"
	CodeEmptyResponse         Code = "empty_response"
	CodeMalformedResponse     Code = "malformed_response"
	CodeValidationFailed      Code = "validation_failed"
	CodeNoMatch               Code = "no_match"
	CodeNoHistory             Code = "no_history"
	CodeNotFound              Code = "not_found"
	CodeInvalidTransition     Code = "invalid_transition"
	CodeUnknown               Code = "unknown"
)

// Classify maps err to its Code using sentinels only.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrStaleResult):
		return CodeCancel
	case errors.Is(err, ErrEmptyResponse):
		return CodeEmptyResponse
	case errors.Is(err, ErrMalformedResponse):
		return CodeMalformedResponse
	case errors.Is(err, ErrGenerationUnavailable):
		return CodeGenerationUnavailable
	case errors.Is(err, ErrValidationFailed):
		return CodeValidationFailed
	case errors.Is(err, ErrNoMatch), errors.Is(err, matcher.ErrEmptyNeedle):
		return CodeNoMatch
	case errors.Is(err, ErrNoHistory):
		return CodeNoHistory
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	}
	return CodeUnknown
}
