// Package logger provides verbose logging for printdesk.
//
// A Logger writes "[LEVEL] message" lines when verbose mode is enabled.
// Warnings are always written because they report skipped PDF pages and
// failed sync items that an operator should see. The package-level
// functions write to a default Logger that the CLI configures from the
// --verbose flag.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger is a level-prefixed writer gated by a verbose flag.
type Logger struct {
	mu      sync.RWMutex
	verbose bool
	output  io.Writer
}

// New creates a Logger writing to w.
func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{output: w, verbose: verbose}
}

// SetVerbose enables or disables debug and info output.
func (l *Logger) SetVerbose(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// Debug prints a message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...any) {
	l.printf(true, "[DEBUG] ", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func (l *Logger) Info(format string, args ...any) {
	l.printf(true, "[INFO] ", format, args...)
}

// Warn prints a warning regardless of verbose mode.
func (l *Logger) Warn(format string, args ...any) {
	l.printf(false, "[WARN] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func (l *Logger) Section(name string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.verbose {
		fmt.Fprintf(l.output, "\n=== %s ===\n", name)
	}
}

func (l *Logger) printf(gated bool, prefix, format string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if gated && !l.verbose {
		return
	}
	fmt.Fprintf(l.output, prefix+format+"\n", args...)
}

var std = New(os.Stderr, false)

// Default returns the package-level Logger.
func Default() *Logger { return std }

// SetVerbose enables or disables verbose logging on the default Logger.
func SetVerbose(v bool) { std.SetVerbose(v) }

// IsVerbose returns true if the default Logger is verbose.
func IsVerbose() bool { return std.IsVerbose() }

// SetOutput sets the output writer of the default Logger.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) { std.SetOutput(w) }

// Debug prints to the default Logger.
func Debug(format string, args ...any) { std.Debug(format, args...) }

// Info prints to the default Logger.
func Info(format string, args ...any) { std.Info(format, args...) }

// Warn prints to the default Logger.
func Warn(format string, args ...any) { std.Warn(format, args...) }

// Section prints a section header to the default Logger.
func Section(name string) { std.Section(name) }
