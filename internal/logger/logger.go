// Package logger provides leveled logging for regdocs.
// Debug, Info and Warn messages are printed only when verbose mode is
// enabled via the --verbose flag. Error messages are always printed so
// that ingestion failures and dropped chunks are never silent.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
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
}

func printf(always bool, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if always || verbose {
		fmt.Fprintf(output, prefix+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printf(false, "[DEBUG] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printf(false, "[INFO] ", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	printf(false, "[WARN] ", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	printf(true, "[ERROR] ", format, args...)
}

// Component returns a Logger that prefixes every message with name.
func Component(name string) Logger {
	return Logger{prefix: name + ": "}
}

// Logger is a prefixed view over the package-level logger.
// The zero value logs without a prefix.
type Logger struct {
	prefix string
}

// Debug prints a prefixed message if verbose mode is enabled.
func (l Logger) Debug(format string, args ...any) {
	printf(false, "[DEBUG] "+l.prefix, format, args...)
}

// Info prints a prefixed message if verbose mode is enabled.
func (l Logger) Info(format string, args ...any) {
	printf(false, "[INFO] "+l.prefix, format, args...)
}

// Warn prints a prefixed message if verbose mode is enabled.
func (l Logger) Warn(format string, args ...any) {
	printf(false, "[WARN] "+l.prefix, format, args...)
}

// Error prints a prefixed message regardless of verbose mode.
func (l Logger) Error(format string, args ...any) {
	printf(true, "[ERROR] "+l.prefix, format, args...)
}
