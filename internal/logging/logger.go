// Package logging provides config-driven categorized logging for the tutor.
// Logs are written to .tutor/logs/ under the workspace, one JSON line per entry,
// through a single zap core with one named child logger per category.
// When debug mode is off every logger is a no-op, so learner-facing output
// never mixes with diagnostics.
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
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config loading
	CategorySession   Category = "session"   // Learner session loop
	CategoryShell     Category = "shell"     // Subprocess execution
	CategoryVerify    Category = "verify"    // Sanitation, matching, predicates
	CategoryProgress  Category = "progress"  // Counter and checkpoint emission
	CategoryCohort    Category = "cohort"    // Group assignment, roster rebuilds
	CategoryAdmin     Category = "admin"     // Instructor commands
	CategoryAnswerKey Category = "answerkey" // Offline answer-key generation
	CategoryLesson    Category = "lesson"    // Catalog loading, workspace seeding
)

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports.
type Options struct {
	DebugMode  bool
	Level      string
	Categories map[string]bool
}

// Logger is a category-scoped wrapper around a zap logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	base     *zap.Logger
	opts     Options
	loggers  = make(map[Category]*Logger)
	logsDir  string
	nopSugar = zap.NewNop().Sugar()
)

// Initialize sets up the logs directory and the shared zap core.
// Should be called once at startup with the workspace path.
func Initialize(workspace string, o Options) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	mu.Lock()
	defer mu.Unlock()

	opts = o
	loggers = make(map[Category]*Logger)
	if !o.DebugMode {
		base = nil
		return nil
	}

	logsDir = filepath.Join(workspace, ".tutor", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(o.Level)),
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{filepath.Join(logsDir, date+"_tutor.log")},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	base = l
	return nil
}

// Use installs an already-built zap logger as the shared core.
// Tests use it with zaptest/observer; the CLI uses it to share its logger.
func Use(l *zap.Logger, o Options) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	opts = o
	loggers = make(map[Category]*Logger)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode && base != nil
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !opts.DebugMode || base == nil {
		return false
	}
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
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	enabled := categoryEnabledLocked(category)
	mu.RUnlock()

	if !enabled {
		return &Logger{category: category, sugar: nopSugar}
	}

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

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries (call at shutdown).
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

// Session logs to the session category
func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debug(format, args...)
}

// SessionWarn logs a warning to the session category
func SessionWarn(format string, args ...interface{}) {
	Get(CategorySession).Warn(format, args...)
}

// Shell logs to the shell category
func Shell(format string, args ...interface{}) {
	Get(CategoryShell).Info(format, args...)
}

// ShellDebug logs debug to the shell category
func ShellDebug(format string, args ...interface{}) {
	Get(CategoryShell).Debug(format, args...)
}

// ShellWarn logs a warning to the shell category
func ShellWarn(format string, args ...interface{}) {
	Get(CategoryShell).Warn(format, args...)
}

// ShellError logs an error to the shell category
func ShellError(format string, args ...interface{}) {
	Get(CategoryShell).Error(format, args...)
}

// Verify logs to the verify category
func Verify(format string, args ...interface{}) {
	Get(CategoryVerify).Info(format, args...)
}

// VerifyDebug logs debug to the verify category
func VerifyDebug(format string, args ...interface{}) {
	Get(CategoryVerify).Debug(format, args...)
}

// Progress logs to the progress category
func Progress(format string, args ...interface{}) {
	Get(CategoryProgress).Info(format, args...)
}

// ProgressWarn logs a warning to the progress category
func ProgressWarn(format string, args ...interface{}) {
	Get(CategoryProgress).Warn(format, args...)
}

// Cohort logs to the cohort category
func Cohort(format string, args ...interface{}) {
	Get(CategoryCohort).Info(format, args...)
}

// CohortDebug logs debug to the cohort category
func CohortDebug(format string, args ...interface{}) {
	Get(CategoryCohort).Debug(format, args...)
}

// CohortWarn logs a warning to the cohort category
func CohortWarn(format string, args ...interface{}) {
	Get(CategoryCohort).Warn(format, args...)
}

// Admin logs to the admin category
func Admin(format string, args ...interface{}) {
	Get(CategoryAdmin).Info(format, args...)
}

// AdminWarn logs a warning to the admin category
func AdminWarn(format string, args ...interface{}) {
	Get(CategoryAdmin).Warn(format, args...)
}

// AnswerKey logs to the answerkey category
func AnswerKey(format string, args ...interface{}) {
	Get(CategoryAnswerKey).Info(format, args...)
}

// AnswerKeyDebug logs debug to the answerkey category
func AnswerKeyDebug(format string, args ...interface{}) {
	Get(CategoryAnswerKey).Debug(format, args...)
}

// Lesson logs to the lesson category
func Lesson(format string, args ...interface{}) {
	Get(CategoryLesson).Info(format, args...)
}

// LessonWarn logs a warning to the lesson category
func LessonWarn(format string, args ...interface{}) {
	Get(CategoryLesson).Warn(format, args...)
}

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
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
