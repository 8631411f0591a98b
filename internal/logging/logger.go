// Package logging provides config-driven categorized zap loggers for redline.
// Logging is controlled by logging.debug_mode in the config; when false
// every category gets a no-op logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"redline/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config loading
	CategoryEdit    Category = "edit"    // Intent, prompt, generation, session transitions
	CategoryMatcher Category = "matcher" // Span relocation
	CategorySafety  Category = "safety"  // Validation checks
	CategoryVersion Category = "version" // Snapshot history
	CategoryStore   Category = "store"   // SQLite persistence
	CategoryLLM     Category = "llm"     // Model backends
	CategoryCLI     Category = "cli"     // Command handling
	CategoryAudit   Category = "audit"   // Edit decisions
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryBoot, CategoryEdit, CategoryMatcher, CategorySafety,
	CategoryVersion, CategoryStore, CategoryLLM, CategoryCLI, CategoryAudit,
}

var (
	mu      sync.RWMutex
	root    *zap.Logger
	cfg     config.LoggingConfig
	loggers = make(map[Category]*zap.Logger)
)

// Initialize builds the root zap logger from the logging section.
// It is a silent no-op when debug_mode is false.
func Initialize(c config.LoggingConfig) error {
	if !c.DebugMode {
		install(nil, c)
		return nil
	}

	zc, err := buildConfig(c)
	if err != nil {
		return err
	}
	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	install(l, c)

	boot := Get(CategoryBoot)
	boot.Info("logging initialized",
		zap.String("level", zc.Level.String()),
		zap.String("format", zc.Encoding),
		zap.Strings("outputs", zc.OutputPaths))
	for _, cat := range AllCategories {
		boot.Debug("category", zap.String("name", string(cat)), zap.Bool("enabled", c.IsCategoryEnabled(string(cat))))
	}
	return nil
}

// InitializeWith installs an existing logger as the root, for tests and for
// embedding redline in a host that already owns a zap logger.
func InitializeWith(l *zap.Logger, c config.LoggingConfig) {
	install(l, c)
}

func install(l *zap.Logger, c config.LoggingConfig) {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		_ = root.Sync()
	}
	root = l
	cfg = c
	loggers = make(map[Category]*zap.Logger)
}

func buildConfig(c config.LoggingConfig) (zap.Config, error) {
	var zc zap.Config
	switch strings.ToLower(c.Format) {
	case "console", "text":
		zc = zap.NewDevelopmentConfig()
	default:
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Sampling = nil

	level, err := ParseLevel(c.Level)
	if err != nil {
		return zap.Config{}, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.OutputPaths = []string{"stderr"}
	if c.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.File), 0755); err != nil {
			return zap.Config{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = []string{c.File}
	}
	return zc, nil
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return root != nil && cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if logging is off or the category is disabled.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	enabled := root != nil && cfg.IsCategoryEnabled(string(category))
	mu.RUnlock()

	if !enabled {
		return zap.NewNop()
	}

	mu.Lock()
	defer mu.Unlock()
	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	if root == nil {
		return zap.NewNop()
	}
	l := root.Named(string(category))
	loggers[category] = l
	return l
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("operation slow",
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
	} else {
		Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
