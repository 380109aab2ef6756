// Package logging builds the structured logger shared by the CLI and core.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger. It writes to stderr so command output on
// stdout stays machine readable.
var L = New(os.Stderr, clog.WarnLevel)

// New creates a logger writing to w at the given level
func New(w io.Writer, level clog.Level) *clog.Logger {
	return clog.NewWithOptions(w, clog.Options{
		Level:           level,
		Prefix:          "tdvault",
		ReportTimestamp: level <= clog.DebugLevel,
		TimeFormat:      time.TimeOnly,
	})
}

// Setup replaces L with a logger at the named level
func Setup(w io.Writer, level string) error {
	lvl, err := clog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	L = New(w, lvl)
	return nil
}
