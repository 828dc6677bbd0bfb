// Package log provides leveled, structured logging for srcmeta on top of
// log/slog. Verbosity follows the -v=N convention used by kubectl/klog.
package log

import "log/slog"

// LevelTrace sits below slog.LevelDebug and is used for full data dumps
// (decoded documents, raw section bytes).
const LevelTrace = slog.Level(-8)

// Verbosity levels accepted by -v.
const (
	VerbosityError = 0 // Errors only (quiet)
	VerbosityWarn  = 1 // + Warnings (skipped binaries, checksum conflicts)
	VerbosityInfo  = 2 // + Info (binaries processed, backups written)
	VerbosityDebug = 3 // + Debug (tool invocations, match decisions)
	VerbosityTrace = 4 // + Trace (document dumps)
)

// VerbosityToLevel maps -v=N to a slog level.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	case v == 3:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// LevelName returns the display name for a level, including TRACE.
func LevelName(l slog.Level) string {
	if l <= LevelTrace {
		return "TRACE"
	}
	return l.String()
}
