// Package logging builds the leveled loggers used for diagnostics. User
// facing output goes through the display package instead.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/pion/logging"
)

// ParseLevel maps a level name to a pion log level. An empty name means warn.
func ParseLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn", "warning":
		return logging.LogLevelWarn, nil
	case "disabled", "off", "none":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	}
	return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
}

// NewFactory returns a logger factory writing to w at the named level.
// Per-scope levels from PION_LOG_* environment variables still apply.
func NewFactory(w io.Writer, level string) (*logging.DefaultLoggerFactory, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f := logging.NewDefaultLoggerFactory()
	f.Writer = w
	f.DefaultLogLevel = lvl
	return f, nil
}

// Discard returns a factory whose loggers drop everything.
func Discard() *logging.DefaultLoggerFactory {
	f := logging.NewDefaultLoggerFactory()
	f.Writer = io.Discard
	f.DefaultLogLevel = logging.LogLevelDisabled
	f.ScopeLevels = nil
	return f
}

// Logger returns a scoped logger from f, or a disabled one when f is nil.
func Logger(f logging.LoggerFactory, scope string) logging.LeveledLogger {
	if f == nil {
		f = Discard()
	}
	return f.NewLogger(scope)
}
