package utils

import (
	"io"
	"os"

	"github.com/pterm/pterm"
)

// NewLogger returns a leveled logger writing to w (stderr when w is nil).
// Debug records are only emitted in verbose mode.
func NewLogger(verbose bool, w io.Writer) *pterm.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := pterm.LogLevelInfo
	if verbose {
		level = pterm.LogLevelDebug
	}
	return pterm.DefaultLogger.WithLevel(level).WithWriter(w)
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)
}
