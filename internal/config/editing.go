package config

import (
	"fmt"

	"redline/internal/matcher"
	"redline/internal/safety"
)

// VersionsConfig configures snapshot history.
type VersionsConfig struct {
	MaxVersions int `yaml:"max_versions"`
}

// MatcherConfig tunes span relocation.
type MatcherConfig struct {
	FuzzyMinLength int     `yaml:"fuzzy_min_length"`
	AnchorLength   int     `yaml:"anchor_length"`
	MaxSpanFactor  float64 `yaml:"max_span_factor"`
	TokenThreshold float64 `yaml:"token_threshold"`
}

// Validate rejects values the matcher cannot use.
func (c MatcherConfig) Validate() error {
	if c.TokenThreshold < 0 || c.TokenThreshold > 1 {
		return fmt.Errorf("matcher.token_threshold must be within [0, 1], got %v", c.TokenThreshold)
	}
	if c.MaxSpanFactor != 0 && c.MaxSpanFactor < 1 {
		return fmt.Errorf("matcher.max_span_factor must be at least 1, got %v", c.MaxSpanFactor)
	}
	if c.FuzzyMinLength < 0 || c.AnchorLength < 0 {
		return fmt.Errorf("matcher lengths must not be negative")
	}
	return nil
}

// Options converts the section into matcher options. Zero fields fall back
// to the matcher defaults.
func (c MatcherConfig) Options() matcher.Options {
	return matcher.Options{
		FuzzyMinLength: c.FuzzyMinLength,
		AnchorLength:   c.AnchorLength,
		MaxSpanFactor:  c.MaxSpanFactor,
		TokenThreshold: c.TokenThreshold,
	}
}

// SafetyConfig configures the safety checks. Empty fields use the built-in
// vocabulary.
type SafetyConfig struct {
	FindingPattern   string   `yaml:"finding_pattern,omitempty"`
	Severities       []string `yaml:"severities,omitempty"`
	EvidencePatterns []string `yaml:"evidence_patterns,omitempty"`

	// BlockOnFailure refuses unattended approval of a patch that failed a
	// check. A reviewer may still override interactively.
	BlockOnFailure bool `yaml:"block_on_failure"`
}

// Patterns compiles the configured vocabulary.
func (c SafetyConfig) Patterns() (safety.Patterns, error) {
	p, err := safety.NewPatterns(c.FindingPattern, c.Severities, c.EvidencePatterns)
	if err != nil {
		return safety.Patterns{}, fmt.Errorf("invalid safety config: %w", err)
	}
	return p, nil
}

// StoreConfig configures the durable history store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	Disabled     bool   `yaml:"disabled,omitempty"`
}
