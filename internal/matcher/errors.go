package matcher

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch means no strategy could relocate the span. The document was
	// left untouched.
	ErrNoMatch = errors.New("text to replace not found in document")

	// ErrEmptyNeedle rejects an empty old text.
	ErrEmptyNeedle = errors.New("old text is empty")
)

// NoMatchError carries the details a caller needs to explain a failed apply:
// usually a stale selection, a concurrent edit, or reformatted text.
type NoMatchError struct {
	Needle         string
	DocumentLength int
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%v (tried exact, normalized, fuzzy_boundary, token_set; old text %q, document length %d)",
		ErrNoMatch, preview(e.Needle, 80), e.DocumentLength)
}

func (e *NoMatchError) Unwrap() error { return ErrNoMatch }
