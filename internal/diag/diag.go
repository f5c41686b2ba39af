// Package diag writes human-readable lowering trace lines: which loop
// shape a forall chose, which merge lattice was built, which fallback
// fired. No example in the retrieved pack wires a structured-logging
// library (zerolog/zap/logrus) for this one-shot, in-process embedding
// style, so this stays a small io.Writer sink rather than importing
// one speculatively (see DESIGN.md).
package diag

import (
	"fmt"
	"io"
)

// Logger writes trace lines to an underlying io.Writer, or discards
// them when disabled.
type Logger struct {
	w       io.Writer
	enabled bool
}

// New returns a Logger writing to w when enabled is true, and
// discarding all output otherwise.
func New(w io.Writer, enabled bool) *Logger {
	return &Logger{w: w, enabled: enabled}
}

// Tracef writes one formatted trace line if the logger is enabled.
func (l *Logger) Tracef(format string, args ...any) {
	if l == nil || !l.enabled {
		return
	}
	fmt.Fprintf(l.w, format+"\n", args...)
}
