package log

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	logger atomic.Pointer[slog.Logger]
	level  *slog.LevelVar
)

func init() {
	level = new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger.Store(slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: FormatText,
		Output: os.Stderr,
	})))
}

// InitWithOutput installs the process logger writing to out. It is called
// once by the CLI after flags and configuration have been resolved. At
// trace verbosity records carry their source location.
func InitWithOutput(v int, format string, out io.Writer) {
	level.Set(VerbosityToLevel(v))

	newLogger := slog.New(NewHandler(HandlerOptions{
		Level:     level,
		Format:    format,
		Output:    out,
		AddSource: v >= VerbosityTrace,
	}))
	logger.Store(newLogger)
	slog.SetDefault(newLogger)
}

// With returns a logger with additional context.
func With(args ...any) *slog.Logger {
	return logger.Load().With(args...)
}

