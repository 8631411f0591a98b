package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redline/internal/config"
	"redline/internal/edit"
	"redline/internal/patch"
)

func TestOllamaClient_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Model: got.Model, Response: `{"edited_text":"x"}`, Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", "", time.Second, nil)
	out, err := c.Generate(context.Background(), "hello", 0.3)
	require.NoError(t, err)

	assert.Equal(t, `{"edited_text":"x"}`, out)
	assert.Equal(t, DefaultOllamaModel, got.Model)
	assert.Equal(t, "hello", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.3, got.Options.Temperature)
	assert.Equal(t, "ollama:"+DefaultOllamaModel, c.Name())
}

func TestOllamaClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errMsg  string
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			},
			errMsg: "status 404: model not found",
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, "{not json")
			},
			errMsg: "failed to decode response",
		},
		{
			name: "error field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"error":"out of memory"}`)
			},
			errMsg: "ollama error: out of memory",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			_, err := NewOllamaClient(srv.URL, "m", time.Second, nil).Generate(context.Background(), "p", 0)
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestOllamaClient_Cancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewOllamaClient(srv.URL, "m", 5*time.Second, nil).Generate(ctx, "p", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "", 0, nil)
	assert.ErrorContains(t, err, "API key is required")
}

func TestGeminiClient_Generate(t *testing.T) {
	var path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"edited_text\":\"ok\"}"}]}}]}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), "key", "llama3.1:8b", time.Second, nil, WithGeminiBaseURL(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "gemini:"+DefaultGeminiModel, c.Name())

	out, err := c.Generate(context.Background(), "prompt", 0.3)
	require.NoError(t, err)
	assert.Equal(t, `{"edited_text":"ok"}`, out)
	assert.Contains(t, path, DefaultGeminiModel+":generateContent")
	assert.Contains(t, body, "generationConfig")
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(config.LLMConfig{Provider: config.ProviderOllama, Model: "qwen2.5:7b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama:qwen2.5:7b", c.Name())

	c, err = NewClient(config.LLMConfig{Provider: config.ProviderMock}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock:echo", c.Name())

	c, err = NewClient(config.LLMConfig{Provider: config.ProviderGemini, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini:"+DefaultGeminiModel, c.Name())

	_, err = NewClient(config.LLMConfig{Provider: "zai"}, nil)
	assert.ErrorContains(t, err, "unknown LLM provider")
}

func TestEchoClient_RoundTripsThroughEngine(t *testing.T) {
	e := edit.NewEngine()
	old := "Severity: High\nThe login form (CWE-89) accepts raw SQL."
	c := e.BuildContext("Findings", old, e.AnalyzeIntent("rewrite this", old))

	got, ok := OriginalText(edit.BuildPrompt(c))
	require.True(t, ok)
	assert.Equal(t, old, got)

	p, err := e.GeneratePatch(context.Background(), c, AsGenerator(NewEchoClient()))
	require.NoError(t, err)
	assert.Equal(t, old, p.NewText)
	assert.True(t, e.Validate(p).Passed())
}

func TestOriginalText_Missing(t *testing.T) {
	_, ok := OriginalText("no markers here")
	assert.False(t, ok)
	_, err := NewEchoClient().Generate(context.Background(), "no markers", 0)
	assert.Error(t, err)
}

func TestScriptedClient(t *testing.T) {
	boom := errors.New("boom")
	s := NewScriptedClient("first", "second")
	s.FailNext(boom)

	ctx := context.Background()
	_, err := s.Generate(ctx, "a", 0.1)
	assert.ErrorIs(t, err, boom)

	out, err := s.Generate(ctx, "b", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, err = s.Generate(ctx, "c", 0.3)
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	_, err = s.Generate(ctx, "d", 0.4)
	assert.ErrorIs(t, err, ErrScriptExhausted)

	calls := s.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, Call{Prompt: "c", Temperature: 0.3}, calls[2])
}

func TestAsGenerator_ErrorsClassify(t *testing.T) {
	e := edit.NewEngine()
	c := e.BuildContext("Summary", "text", e.AnalyzeIntent("shorten", "text"))

	s := NewScriptedClient()
	s.FailNext(errors.New("connection refused"))
	_, err := e.GeneratePatch(context.Background(), c, AsGenerator(s))
	assert.Equal(t, edit.CodeGenerationUnavailable, edit.Classify(err))

	_, err = e.GeneratePatch(context.Background(), c, AsGenerator(NewScriptedClient("   ")))
	assert.ErrorIs(t, err, patch.ErrEmptyResponse)

	_, err = AsGenerator(s)(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestOriginalText_KeepsBlankLines(t *testing.T) {
	old := "para one\n\npara two"
	c := edit.BuildContext("Summary", old, edit.AnalyzeIntent("polish", old))
	got, ok := OriginalText(edit.BuildPrompt(c))
	require.True(t, ok)
	assert.Equal(t, old, got)
	assert.False(t, strings.HasSuffix(got, "\n"))
}
