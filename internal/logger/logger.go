// Package logger provides the process-wide structured logger for Sercha Docs.
// It keeps a printf-style package API on top of zap so call sites stay terse,
// and exposes the underlying zap logger for structured fields.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr

	encoding = FormatConsole
	level    = zapcore.InfoLevel
	atom     = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	base  *zap.Logger
	sugar *zap.SugaredLogger
)

func init() {
	rebuild()
}

// rebuild recreates the zap core. Callers hold mu, except init.
func rebuild() {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if encoding == FormatJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	base = zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(output)), atom))
	sugar = base.Sugar()
}

// Init configures the level ("debug", "info", "warn", "error") and the
// output format ("console" or "json").
func Init(lvl, fmtName string) error {
	parsed := zapcore.InfoLevel
	if lvl != "" {
		var err error
		if parsed, err = zapcore.ParseLevel(lvl); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	switch fmtName {
	case "", FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("log format %q: must be console or json", fmtName)
	}

	mu.Lock()
	defer mu.Unlock()
	level = parsed
	if fmtName != "" {
		encoding = fmtName
	}
	applyLevel()
	rebuild()
	return nil
}

func applyLevel() {
	if verbose {
		atom.SetLevel(zapcore.DebugLevel)
		return
	}
	atom.SetLevel(level)
}

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	applyLevel()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a sugared logger carrying the given fields.
func With(fields ...zap.Field) *zap.SugaredLogger {
	return L().With(fields...).Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a message when verbose mode or debug level is enabled.
func Debug(format string, args ...any) {
	current().Debugf(format, args...)
}

// Section logs a section header at debug level.
func Section(name string) {
	current().Debugf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	current().Infof(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	current().Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	current().Errorf(format, args...)
}
