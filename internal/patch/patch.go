// Package patch turns a model's free-form reply into a structured edit.
//
// Replies are untrusted: they may be wrapped in prose or Markdown fences,
// carry several JSON objects, or be truncated. Parse recovers the first
// object that carries an edited_text key and refuses everything else with a
// typed error, never a partial patch.
package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyResponse means the reply was blank.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrMalformedResponse means no JSON object carrying edited_text could be
	// recovered from the reply.
	ErrMalformedResponse = errors.New("model response does not contain a valid edit object")

	// ErrEmptyOldText rejects patches that would replace nothing.
	ErrEmptyOldText = errors.New("patch old text is empty")
)

// Reply is the JSON contract the model is asked to honour.
type Reply struct {
	EditedText    string   `json:"edited_text"`
	Justification string   `json:"justification"`
	Changes       []string `json:"changes"`
}

// Patch is a proposed replacement of one span, with the metadata that
// explains it. All fields are primitives so a Patch serializes to one flat
// record.
type Patch struct {
	ID            string    `json:"id"`
	Section       string    `json:"section"`
	OldText       string    `json:"old_text"`
	NewText       string    `json:"new_text"`
	Justification string    `json:"justification"`
	Changes       []string  `json:"changes"`
	Intent        string    `json:"intent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// New builds a Patch from a parsed reply.
func New(section, oldText string, r Reply, intent string) (*Patch, error) {
	if oldText == "" {
		return nil, ErrEmptyOldText
	}
	changes := r.Changes
	if changes == nil {
		changes = []string{}
	}
	return &Patch{
		ID:            uuid.New().String(),
		Section:       section,
		OldText:       oldText,
		NewText:       r.EditedText,
		Justification: r.Justification,
		Changes:       changes,
		Intent:        intent,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Validate checks the structural invariants of a patch.
func (p *Patch) Validate() error {
	if p == nil {
		return fmt.Errorf("nil patch")
	}
	if p.OldText == "" {
		return ErrEmptyOldText
	}
	return nil
}

// IsDeletion reports whether the patch removes its span entirely.
func (p *Patch) IsDeletion() bool {
	return p.NewText == ""
}

// Reply returns the model-facing view of the patch.
func (p *Patch) Reply() Reply {
	return Reply{EditedText: p.NewText, Justification: p.Justification, Changes: p.Changes}
}

// =============================================================================
// PARSING
// =============================================================================

// Parse extracts a Reply from raw model output.
func Parse(raw string) (Reply, error) {
	if strings.TrimSpace(raw) == "" {
		return Reply{}, ErrEmptyResponse
	}

	// Fenced bodies first, then the whole reply: a fence may hold the object,
	// or the object may sit in prose next to an unrelated fence.
	sources := append(stripFences(raw), raw)

	var lastErr error
	sawCandidate := false
	for _, src := range sources {
		for _, cand := range findObjects(src) {
			sawCandidate = true
			r, err := decodeReply(cand)
			if err == nil {
				return r, nil
			}
			lastErr = err
		}
	}

	if !sawCandidate {
		return Reply{}, fmt.Errorf("%w: no JSON object boundary found", ErrMalformedResponse)
	}
	return Reply{}, fmt.Errorf("%w: %v", ErrMalformedResponse, lastErr)
}

var (
	errMissingEditedText = errors.New("object has no edited_text key")
	errNullEditedText    = errors.New("edited_text is null")
)

// decodeReply decodes one candidate object. justification and changes are
// optional; a bare string changes value is accepted as a single change.
func decodeReply(obj string) (Reply, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return Reply{}, err
	}

	rawEdited, ok := fields["edited_text"]
	if !ok {
		return Reply{}, errMissingEditedText
	}
	// Only an explicit "" means deletion.
	if isNull(rawEdited) {
		return Reply{}, errNullEditedText
	}

	var r Reply
	if err := json.Unmarshal(rawEdited, &r.EditedText); err != nil {
		return Reply{}, fmt.Errorf("edited_text is not a string: %w", err)
	}

	if raw, ok := fields["justification"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &r.Justification); err != nil {
			r.Justification = strings.TrimSpace(string(raw))
		}
	}

	r.Changes = []string{}
	if raw, ok := fields["changes"]; ok && !isNull(raw) {
		r.Changes = decodeChanges(raw)
	}

	return r, nil
}

func decodeChanges(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			return []string{}
		}
		return list
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return []string{}
		}
		return []string{single}
	}

	var mixed []json.RawMessage
	if err := json.Unmarshal(raw, &mixed); err == nil {
		out := make([]string, 0, len(mixed))
		for _, item := range mixed {
			var s string
			if json.Unmarshal(item, &s) == nil {
				out = append(out, s)
				continue
			}
			out = append(out, string(bytes.TrimSpace(item)))
		}
		return out
	}

	return []string{strings.TrimSpace(string(raw))}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Serialize renders a Reply in the canonical form Parse accepts.
func Serialize(r Reply) (string, error) {
	if r.Changes == nil {
		r.Changes = []string{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal reply: %w", err)
	}
	return string(data), nil
}
