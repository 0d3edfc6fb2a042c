package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetup_CLIWritesToFileAndStderr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "commitlens.log")
	var stderr bytes.Buffer

	log, closeFn, err := Setup(path, "warn", false, &stderr)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	log.Info("hidden")
	log.Warn("visible", "page", 2)
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if strings.Contains(stderr.String(), "hidden") || !strings.Contains(stderr.String(), "visible") {
		t.Fatalf("unexpected stderr output: %q", stderr.String())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "visible") || !strings.Contains(string(b), "page=2") {
		t.Fatalf("unexpected file output: %q", string(b))
	}
}

func TestSetup_TUIKeepsStderrQuiet(t *testing.T) {
	var stderr bytes.Buffer
	log, _, err := Setup("", "debug", true, &stderr)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	log.Error("boom")
	if stderr.Len() != 0 {
		t.Fatalf("TUI logger must not write to stderr, got %q", stderr.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != slog.LevelDebug || ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unexpected level mapping")
	}
}
