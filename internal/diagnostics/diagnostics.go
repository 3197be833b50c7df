// Package diagnostics wraps the standard library's log package the way
// sivchari/gomu's pkg/gomu/engine.go gates every progress line behind
// config.Verbose, except factored into a reusable type so every package
// in this module can log without importing config directly.
package diagnostics

import (
	"io"
	"log"
	"os"
)

// Logger prints Infof lines only when Verbose is true, and Warnf lines
// unconditionally, mirroring engine.go's pattern of always surfacing
// "Warning: ..." lines while gating routine progress on -v.
type Logger struct {
	verbose bool
	out     *log.Logger
}

// New creates a Logger writing to w (os.Stderr if w is nil).
func New(verbose bool, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	return &Logger{verbose: verbose, out: log.New(w, "", log.LstdFlags)}
}

// Infof logs a progress line, only when verbose is enabled.
func (l *Logger) Infof(format string, args ...any) {
	if l == nil || !l.verbose {
		return
	}

	l.out.Printf(format, args...)
}

// Warnf logs a recoverable-error line unconditionally, prefixed the way
// engine.go prefixes its own warnings.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}

	l.out.Printf("Warning: "+format, args...)
}
