// Package llm provides the text generation backends used by the edit
// engine: a local Ollama server, Google Gemini, and offline clients for
// tests and dry runs.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"redline/internal/config"
	"redline/internal/edit"
	"redline/internal/logging"
)

// ErrEmptyPrompt is returned when asked to generate from nothing.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Client generates a completion for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
	Name() string
}

// NewClient builds the client named by the llm config section.
func NewClient(cfg config.LLMConfig, log *zap.Logger) (Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Provider {
	case config.ProviderOllama, "":
		return NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.GetTimeout(), log), nil
	case config.ProviderGemini:
		return NewGeminiClient(context.Background(), cfg.APIKey, cfg.Model, cfg.GetTimeout(), log)
	case config.ProviderMock:
		return NewEchoClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid: %v)", cfg.Provider, config.ValidProviders)
	}
}

// AsGenerator adapts a client to the edit engine's generation capability.
// Each call is timed under the llm log category.
func AsGenerator(c Client) edit.Generator {
	return func(ctx context.Context, prompt string, temperature float64) (string, error) {
		if prompt == "" {
			return "", ErrEmptyPrompt
		}
		timer := logging.StartTimer(logging.CategoryLLM, c.Name())
		out, err := c.Generate(ctx, prompt, temperature)
		elapsed := timer.Stop()
		if err != nil {
			logging.Get(logging.CategoryLLM).Warn("generation failed",
				zap.String("client", c.Name()),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			return "", err
		}
		logging.Get(logging.CategoryLLM).Debug("generation complete",
			zap.String("client", c.Name()),
			zap.Int("prompt_chars", len(prompt)),
			zap.Int("reply_chars", len(out)))
		return out, nil
	}
}
