// Package logger provides leveled logging for mirrorlai.
//
// Warnings and errors are always written. Info lines can be silenced with
// SetQuiet, and debug lines appear only in verbose mode (--verbose), where
// they trace pipeline passes and upstream fetches.
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
	quiet   bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables debug logging.
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

// SetQuiet suppresses info lines. Warnings and errors are still written.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[DEBUG] "+format+"\n", args...)
	}
}

// Info prints an informational message unless quiet mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !quiet {
		fmt.Fprintf(output, "[INFO] "+format+"\n", args...)
	}
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "[WARN] "+format+"\n", args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "[ERROR] "+format+"\n", args...)
}

// Request returns a logger that prefixes every line with a request ID.
func Request(id string) *RequestLogger {
	return &RequestLogger{id: id}
}

// RequestLogger tags lines with the request they belong to.
type RequestLogger struct {
	id string
}

// Debug logs at debug level.
func (l *RequestLogger) Debug(format string, args ...any) {
	Debug("[%s] "+format, append([]any{l.id}, args...)...)
}

// Info logs at info level.
func (l *RequestLogger) Info(format string, args ...any) {
	Info("[%s] "+format, append([]any{l.id}, args...)...)
}

// Warn logs at warn level.
func (l *RequestLogger) Warn(format string, args ...any) {
	Warn("[%s] "+format, append([]any{l.id}, args...)...)
}

// Error logs at error level.
func (l *RequestLogger) Error(format string, args ...any) {
	Error("[%s] "+format, append([]any{l.id}, args...)...)
}
