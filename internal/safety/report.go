package safety

import (
	"errors"
	"strings"
)

// ErrValidationFailed is returned (wrapped) when at least one check failed.
// It is never fatal: a human may still override.
var ErrValidationFailed = errors.New("patch failed safety validation")

// Report aggregates the results of one validation run.
type Report struct {
	Results  []Result `json:"results"`
	Warnings []string `json:"warnings,omitempty"`
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failed checks in run order.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the outcome of a single check.
func (r Report) Result(c Check) (Result, bool) {
	for _, res := range r.Results {
		if res.Check == c {
			return res, true
		}
	}
	return Result{}, false
}

// Lines renders one human-readable line per check and warning.
func (r Report) Lines() []string {
	lines := make([]string, 0, len(r.Results)+len(r.Warnings))
	for _, res := range r.Results {
		mark := "PASS"
		if !res.Passed {
			mark = "FAIL"
		}
		lines = append(lines, mark+" "+string(res.Check)+": "+strings.Join(res.Messages, "; "))
	}
	for _, w := range r.Warnings {
		lines = append(lines, "WARN "+w)
	}
	return lines
}

// Err returns nil when all checks passed, otherwise a *ValidationFailedError.
func (r Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 && len(r.Results) > 0 {
		return nil
	}
	return &ValidationFailedError{Failures: failed}
}

// ValidationFailedError carries one entry per failed check.
type ValidationFailedError struct {
	Failures []Result
}

func (e *ValidationFailedError) Error() string {
	if len(e.Failures) == 0 {
		return ErrValidationFailed.Error() + ": no checks ran"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, string(f.Check)+": "+strings.Join(f.Messages, "; "))
	}
	return ErrValidationFailed.Error() + " (" + strings.Join(parts, " | ") + ")"
}

func (e *ValidationFailedError) Unwrap() error { return ErrValidationFailed }

// Checks lists the failed check names.
func (e *ValidationFailedError) Checks() []Check {
	out := make([]Check, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Check)
	}
	return out
}
