package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// useBuffer points the package logger at buf with the given verbosity.
func useBuffer(t *testing.T, buf *bytes.Buffer, v int) {
	t.Helper()
	level = new(slog.LevelVar)
	level.Set(VerbosityToLevel(v))
	logger.Store(slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: "text",
		Output: buf,
	})))
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  slog.Level
	}{
		{0, slog.LevelError},
		{-1, slog.LevelError},
		{1, slog.LevelWarn},
		{2, slog.LevelInfo},
		{3, slog.LevelDebug},
		{4, LevelTrace},
		{9, LevelTrace},
	}

	for _, tt := range tests {
		got := VerbosityToLevel(tt.verbosity)
		if got != tt.expected {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.expected)
		}
	}
}

func TestLevelName(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{LevelTrace, "TRACE"},
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo, "INFO"},
		{slog.LevelWarn, "WARN"},
		{slog.LevelError, "ERROR"},
	}

	for _, tt := range tests {
		got := LevelName(tt.level)
		if got != tt.expected {
			t.Errorf("LevelName(%v) = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestInitWithOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(2, "text", &buf)

	With("binary", "/tmp/a.out").Info("processing")
	if !strings.Contains(buf.String(), "processing") {
		t.Errorf("Info should be written at v=2, got: %s", buf.String())
	}

	buf.Reset()
	With().Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Debug should be suppressed at v=2, got: %s", buf.String())
	}

	buf.Reset()
	slog.Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("InitWithOutput should install the default slog logger, got: %s", buf.String())
	}
}

func TestInitWithOutput_TraceAddsSource(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(VerbosityTrace, FormatText, &buf)

	With().Log(t.Context(), LevelTrace, "document dump")
	out := buf.String()
	if !strings.Contains(out, "level=TRACE") || !strings.Contains(out, "source=") {
		t.Errorf("trace output should carry level and source, got: %s", out)
	}
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	useBuffer(t, &buf, VerbosityTrace)

	With().Log(t.Context(), LevelTrace, "document dump")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace records should carry level=TRACE, got: %s", buf.String())
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	useBuffer(t, &buf, 2)

	With("run", "abc123").Info("test message")

	if !strings.Contains(buf.String(), "run=abc123") {
		t.Errorf("With should add context, got: %s", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	l := OrDiscard(nil)
	if l == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	if l.Enabled(t.Context(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}

	custom := slog.New(NewHandler(HandlerOptions{Level: slog.LevelInfo, Output: &bytes.Buffer{}}))
	if OrDiscard(custom) != custom {
		t.Error("OrDiscard should return a non-nil logger unchanged")
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer

	handler := NewHandler(HandlerOptions{
		Level:  slog.LevelInfo,
		Format: "json",
		Output: &buf,
	})

	slog.New(handler).Info("test", "key", "value")

	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("JSON handler should output JSON, got: %s", buf.String())
	}
}

func TestNewHandler_DefaultOutput(t *testing.T) {
	handler := NewHandler(HandlerOptions{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: nil,
	})

	if handler == nil {
		t.Error("NewHandler should not return nil")
	}
}
