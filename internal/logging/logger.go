// Package logging provides categorized logging for weightgen.
// Every subsystem logs through Get(Category); categories can be switched off
// individually in the logging section of .weightgen.yaml. Output goes through
// a single zap logger built by Initialize. Before Initialize is called, and
// for disabled categories, loggers are no-ops.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config resolution
	CategoryConfig   Category = "config"   // Config loading and overrides
	CategoryClassify Category = "classify" // Annotation classification
	CategorySynth    Category = "synth"    // Wrapper synthesis
	CategoryEmit     Category = "emit"     // Host rendering (Go, Rust)
	CategoryGenerate Category = "generate" // File driver, cache, writes
	CategoryWatch    Category = "watch"    // Filesystem watcher
	CategorySandbox  Category = "sandbox"  // Interpreted execution of generated code
	CategoryLint     Category = "lint"     // Static analyzer
)

// Options mirrors config.LoggingConfig so this package stays import-free of
// config.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	DebugMode  bool            // development encoder, caller info
	Categories map[string]bool // per-category toggles; missing means enabled
	Output     []string        // zap output paths, default stderr
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*Logger)
	nop     = zap.NewNop().Sugar()
)

// Initialize builds the process logger. Call once at startup.
func Initialize(o Options) error {
	level, err := ParseLevel(o.Level)
	if err != nil {
		return err
	}

	var cfg zap.Config
	if o.DebugMode || strings.EqualFold(o.Format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if strings.EqualFold(o.Format, "json") {
		cfg.Encoding = "json"
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	if len(o.Output) > 0 {
		cfg.OutputPaths = o.Output
	}

	z, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	Use(z, o)

	Boot("logging initialized (level=%s format=%s)", level, cfg.Encoding)
	return nil
}

// Use installs an already built zap logger. Tests use it with an observer core.
func Use(z *zap.Logger, o Options) {
	mu.Lock()
	defer mu.Unlock()
	if z == nil {
		z = zap.NewNop()
	}
	base = z
	opts = o
	loggers = make(map[Category]*Logger)
}

// Reset drops back to the no-op logger.
func Reset() {
	Use(nil, Options{})
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: nop}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying structured key/value fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Config(format string, args ...interface{})      { Get(CategoryConfig).Info(format, args...) }
func ConfigDebug(format string, args ...interface{}) { Get(CategoryConfig).Debug(format, args...) }
func ConfigWarn(format string, args ...interface{})  { Get(CategoryConfig).Warn(format, args...) }

func ClassifyDebug(format string, args ...interface{}) { Get(CategoryClassify).Debug(format, args...) }
func ClassifyWarn(format string, args ...interface{})  { Get(CategoryClassify).Warn(format, args...) }

func SynthDebug(format string, args ...interface{}) { Get(CategorySynth).Debug(format, args...) }
func SynthWarn(format string, args ...interface{})  { Get(CategorySynth).Warn(format, args...) }

func EmitDebug(format string, args ...interface{}) { Get(CategoryEmit).Debug(format, args...) }
func EmitError(format string, args ...interface{}) { Get(CategoryEmit).Error(format, args...) }

func Generate(format string, args ...interface{})      { Get(CategoryGenerate).Info(format, args...) }
func GenerateDebug(format string, args ...interface{}) { Get(CategoryGenerate).Debug(format, args...) }
func GenerateWarn(format string, args ...interface{})  { Get(CategoryGenerate).Warn(format, args...) }
func GenerateError(format string, args ...interface{}) { Get(CategoryGenerate).Error(format, args...) }

func Watch(format string, args ...interface{})      { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
func WatchError(format string, args ...interface{}) { Get(CategoryWatch).Error(format, args...) }

func Sandbox(format string, args ...interface{})      { Get(CategorySandbox).Info(format, args...) }
func SandboxDebug(format string, args ...interface{}) { Get(CategorySandbox).Debug(format, args...) }

func LintDebug(format string, args ...interface{}) { Get(CategoryLint).Debug(format, args...) }

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
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
