package logging_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chime/internal/logging"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		" DEBUG ": slog.LevelDebug,
	}
	for input, want := range cases {
		if got := logging.ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleOutputIncludesComponentAndAttrs(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "chime.log")

	logger, err := logging.New(logging.Options{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "daemon")
	component.Info("bell rang", logging.Uint64("session_rings", 3))
	component.Debug("suppressed at info level")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "daemon: bell rang") {
		t.Fatalf("missing component prefix in output: %q", out)
	}
	if !strings.Contains(out, "session_rings=3") {
		t.Fatalf("missing attr in output: %q", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Fatalf("debug record leaked at info level: %q", out)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled at every level")
	}
}
