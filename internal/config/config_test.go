package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redline/internal/matcher"
)

// clearEnv blanks every variable applyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"REDLINE_LLM_PROVIDER", "REDLINE_MODEL", "GEMINI_API_KEY", "OLLAMA_HOST", "REDLINE_DB"} {
		t.Setenv(k, "")
	}
}

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 50, cfg.Versions.MaxVersions)
	assert.Equal(t, matcher.DefaultOptions(), cfg.Matcher.Options())
	assert.True(t, cfg.Safety.BlockOnFailure)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "mistral:7b"
	cfg.Versions.MaxVersions = 12
	cfg.Safety.Severities = []string{"Severe", "Minor"}
	cfg.Logging.Categories = map[string]bool{"matcher": false}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("versions:\n  max_versions: 7\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Versions.MaxVersions)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, 30, cfg.Matcher.AnchorLength)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "zai" }, "invalid LLM provider"},
		{"gemini without key", func(c *Config) { c.LLM.Provider = ProviderGemini }, "GEMINI_API_KEY"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"max versions", func(c *Config) { c.Versions.MaxVersions = 0 }, "max_versions"},
		{"threshold", func(c *Config) { c.Matcher.TokenThreshold = 1.5 }, "token_threshold"},
		{"span factor", func(c *Config) { c.Matcher.MaxSpanFactor = 0.5 }, "max_span_factor"},
		{"bad regex", func(c *Config) { c.Safety.FindingPattern = "([" }, "invalid safety config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.errMsg)
		})
	}

	cfg := DefaultConfig()
	cfg.LLM.Provider = ProviderGemini
	cfg.LLM.APIKey = "k"
	assert.NoError(t, cfg.Validate())
}

func TestGetTimeout(t *testing.T) {
	assert.Equal(t, 120*time.Second, LLMConfig{}.GetTimeout())
	assert.Equal(t, 120*time.Second, LLMConfig{Timeout: "soon"}.GetTimeout())
	assert.Equal(t, 5*time.Second, LLMConfig{Timeout: "5s"}.GetTimeout())
}

func TestSafetyConfig_Patterns(t *testing.T) {
	p, err := SafetyConfig{Severities: []string{"Severe"}}.Patterns()
	require.NoError(t, err)
	assert.True(t, p.Severity.MatchString("severe"))
	assert.False(t, p.Severity.MatchString("High"))
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	assert.False(t, c.IsCategoryEnabled("edit"))

	c.DebugMode = true
	assert.True(t, c.IsCategoryEnabled("edit"))

	c.Categories = map[string]bool{"edit": false}
	assert.False(t, c.IsCategoryEnabled("edit"))
	assert.True(t, c.IsCategoryEnabled("store"))
}
