package config

import (
	"fmt"
	"slices"
	"time"
)

// Supported generation backends.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{ProviderOllama, ProviderGemini, ProviderMock}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // ollama, gemini, mock
	APIKey      string  `yaml:"api_key,omitempty"`
	Model       string  `yaml:"model,omitempty"` // empty selects the provider default
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

// Validate checks the provider and its credentials.
func (c LLMConfig) Validate() error {
	if !slices.Contains(ValidProviders, c.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.Provider, ValidProviders)
	}
	if c.Provider == ProviderGemini && c.APIKey == "" {
		return fmt.Errorf("gemini provider needs an API key (set GEMINI_API_KEY)")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}

// GetTimeout returns the per-request timeout as a duration.
func (c LLMConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}
