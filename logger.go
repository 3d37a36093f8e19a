package mapcompare

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// EnvLogLevel overrides the level picked by NewLogger.
const EnvLogLevel = "MAPCOMPARE_LOG_LEVEL"

// nopHandler discards every record. Enabled returns false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr is read from the settings watcher goroutine as well as the UI
// loop, hence the atomic.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by the coordinator and the reference
// host. By default mapcompare produces no log output. Pass nil to restore the
// silent default.
//
// Levels used:
//   - [slog.LevelDebug]: mode transitions, artifact creation and teardown
//   - [slog.LevelInfo]: settings reloads
//   - [slog.LevelWarn]: recovered activation failures, rollbacks
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// ParseLogLevel maps a level name to a slog level. ok is false for unknown
// names. "off" and its aliases report ok with disabled set.
func ParseLogLevel(raw string) (level slog.Level, disabled, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return slog.LevelDebug, false, true
	case "info":
		return slog.LevelInfo, false, true
	case "warn", "warning":
		return slog.LevelWarn, false, true
	case "error":
		return slog.LevelError, false, true
	case "off", "none", "disabled":
		return slog.LevelInfo, true, true
	}
	return slog.LevelInfo, false, false
}

// NewLogger builds a text logger on stderr at the named level. The
// MAPCOMPARE_LOG_LEVEL environment variable wins over name. Unknown names
// fall back to info; "off" returns the silent logger.
func NewLogger(name string) *slog.Logger {
	if env := os.Getenv(EnvLogLevel); env != "" {
		name = env
	}
	level, disabled, _ := ParseLogLevel(name)
	if disabled {
		return newNopLogger()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
