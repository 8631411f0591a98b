package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"redline/internal/edit"
	"redline/internal/patch"
)

// ErrScriptExhausted is returned by a ScriptedClient with no replies left.
var ErrScriptExhausted = errors.New("scripted client has no replies left")

// EchoClient answers every prompt with the original text unchanged. It backs
// the mock provider so the full edit flow can run without a model.
type EchoClient struct{}

// NewEchoClient creates an echo client.
func NewEchoClient() *EchoClient { return &EchoClient{} }

// Generate returns a reply whose edited_text is the prompt's original text.
func (EchoClient) Generate(ctx context.Context, prompt string, _ float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	original, ok := OriginalText(prompt)
	if !ok {
		return "", fmt.Errorf("echo: prompt has no %q block", edit.OriginalTextHeader)
	}
	out, err := json.Marshal(patch.Reply{
		EditedText:    original,
		Justification: "mock backend: text returned unchanged",
		Changes:       []string{},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Name returns the client name.
func (EchoClient) Name() string { return "mock:echo" }

// OriginalText extracts the text between the original-text and constraints
// headers of a prompt built by edit.BuildPrompt.
func OriginalText(prompt string) (string, bool) {
	start := strings.Index(prompt, edit.OriginalTextHeader+"\n")
	if start < 0 {
		return "", false
	}
	rest := prompt[start+len(edit.OriginalTextHeader)+1:]
	end := strings.LastIndex(rest, "\n\n"+edit.ConstraintsHeader+"\n")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// Call is one recorded ScriptedClient invocation.
type Call struct {
	Prompt      string
	Temperature float64
}

// ScriptedClient returns canned replies in order and records every call.
type ScriptedClient struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   []Call
}

// NewScriptedClient creates a client that returns replies in order.
func NewScriptedClient(replies ...string) *ScriptedClient {
	return &ScriptedClient{replies: replies}
}

// FailNext queues an error that the next call returns instead of a reply.
func (s *ScriptedClient) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Generate pops the next queued error or reply.
func (s *ScriptedClient) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Prompt: prompt, Temperature: temperature})

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	if len(s.replies) == 0 {
		return "", ErrScriptExhausted
	}
	out := s.replies[0]
	s.replies = s.replies[1:]
	return out, nil
}

// Calls returns a copy of the recorded calls.
func (s *ScriptedClient) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Name returns the client name.
func (s *ScriptedClient) Name() string { return "mock:scripted" }
