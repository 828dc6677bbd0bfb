package log

import (
	"io"
	"log/slog"
	"os"
)

// Encodings accepted by --log-format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// HandlerOptions selects how records are encoded and where they go.
type HandlerOptions struct {
	Level  slog.Leveler
	Format string

	// Output is stderr when nil; stdout carries command results.
	Output io.Writer

	// AddSource records the caller's file and line. The CLI enables it at
	// trace verbosity.
	AddSource bool
}

// NewHandler returns a JSON handler for FormatJSON and a text handler for
// anything else.
func NewHandler(opts HandlerOptions) slog.Handler {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	ho := &slog.HandlerOptions{
		Level:       opts.Level,
		AddSource:   opts.AddSource,
		ReplaceAttr: levelAttr,
	}
	if opts.Format == FormatJSON {
		return slog.NewJSONHandler(out, ho)
	}
	return slog.NewTextHandler(out, ho)
}

// levelAttr prints LevelTrace as TRACE rather than DEBUG-4.
func levelAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if l, ok := a.Value.Any().(slog.Level); ok {
		a.Value = slog.StringValue(LevelName(l))
	}
	return a
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or a discarding logger when l is nil. Library
// packages use it so callers may pass a nil logger.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
