package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where redline looks for its configuration.
const DefaultPath = ".redline/config.yaml"

// Config holds all redline configuration.
type Config struct {
	// LLM generation backend
	LLM LLMConfig `yaml:"llm"`

	// Snapshot history
	Versions VersionsConfig `yaml:"versions"`

	// Span relocation tuning
	Matcher MatcherConfig `yaml:"matcher"`

	// Safety validation vocabulary and policy
	Safety SafetyConfig `yaml:"safety"`

	// Durable history store
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOllama,
			Model:       "", // provider default
			BaseURL:     "http://localhost:11434",
			Temperature: 0.3,
			Timeout:     "120s",
		},

		Versions: VersionsConfig{
			MaxVersions: 50,
		},

		Matcher: MatcherConfig{
			FuzzyMinLength: 50,
			AnchorLength:   30,
			MaxSpanFactor:  1.5,
			TokenThreshold: 0.9,
		},

		Safety: SafetyConfig{
			BlockOnFailure: true,
		},

		Store: StoreConfig{
			DatabasePath: ".redline/history.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("REDLINE_LLM_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	if m := os.Getenv("REDLINE_MODEL"); m != "" {
		c.LLM.Model = m
	}

	// A Gemini key selects Gemini unless a provider was named explicitly.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if os.Getenv("REDLINE_LLM_PROVIDER") == "" {
			c.LLM.Provider = ProviderGemini
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.LLM.BaseURL = host
	}

	if path := os.Getenv("REDLINE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if c.Versions.MaxVersions < 1 {
		return fmt.Errorf("versions.max_versions must be at least 1, got %d", c.Versions.MaxVersions)
	}
	if err := c.Matcher.Validate(); err != nil {
		return err
	}
	if _, err := c.Safety.Patterns(); err != nil {
		return err
	}
	return nil
}
