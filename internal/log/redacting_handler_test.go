package log

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/pwasmoke/internal/checker"
	"github.com/nao1215/pwasmoke/internal/site"
)

// TestRedactingHandler_HomeDirectory tests path shortening.
func TestRedactingHandler_HomeDirectory(t *testing.T) {
	t.Parallel()

	home := filepath.Join(string(filepath.Separator), "home", "alice")

	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"home itself", home, "~"},
		{"path below home", filepath.Join(home, "site"), "~" + string(filepath.Separator) + "site"},
		{"sibling with same prefix", home + "x", home + "x"},
		{"path inside a message", "stat " + filepath.Join(home, "site") + ": denied", "stat ~" + string(filepath.Separator) + "site: denied"},
		{"unrelated path", filepath.Join(string(filepath.Separator), "srv", "www"), filepath.Join(string(filepath.Separator), "srv", "www")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newRedactingHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), home)
			got := h.redactAttr(slog.String("root", tt.value))
			if got.Value.String() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got.Value.String())
			}
		})
	}
}

// TestNewLogger_Levels tests that log levels are respected.
func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		verbose    bool
		level      slog.Level
		shouldShow bool
	}{
		{"debug shown in verbose mode", true, slog.LevelDebug, true},
		{"debug hidden in quiet mode", false, slog.LevelDebug, false},
		{"info hidden in quiet mode", false, slog.LevelInfo, false},
		{"warn shown in quiet mode", false, slog.LevelWarn, true},
		{"error shown in quiet mode", false, slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.verbose)

			testMsg := "test_unique_message_12345"
			logger.Log(t.Context(), tt.level, testMsg)

			hasMessage := strings.Contains(buf.String(), testMsg)
			if tt.shouldShow && !hasMessage {
				t.Errorf("expected message to be shown, but not found in output: %s", buf.String())
			}
			if !tt.shouldShow && hasMessage {
				t.Errorf("expected message to be hidden, but found in output: %s", buf.String())
			}
		})
	}
}

// TestRedactingHandler_WithAttrsAndGroup tests that derived handlers keep redacting.
func TestRedactingHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(newRedactingHandler(slog.NewTextHandler(&buf, nil), "/home/alice"))

	logger.With("dir", "/home/alice/.local/share/pwasmoke").
		WithGroup("run").
		Info("test message", "root", "/home/alice/site")

	output := buf.String()
	if strings.Contains(output, "/home/alice") {
		t.Errorf("expected home directory to be shortened, got: %s", output)
	}
	if !strings.Contains(output, "dir=~/.local/share/pwasmoke") {
		t.Errorf("expected derived attribute to be shortened, got: %s", output)
	}
	if !strings.Contains(output, "run.root=~/site") {
		t.Errorf("expected grouped root to be shortened, got: %s", output)
	}
}

// TestRedactingHandler_ErrorsAndRootLists tests the non-string values the
// CLI logs: wrapped errors that embed a path and the list of roots.
func TestRedactingHandler_ErrorsAndRootLists(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(newRedactingHandler(slog.NewTextHandler(&buf, nil), "/home/alice"))

	pathErr := &fs.PathError{Op: "open", Path: "/home/alice/site/manifest.json", Err: fs.ErrPermission}
	logger.Warn("history disabled",
		"error", fmt.Errorf("failed to save run: %w", pathErr),
		"roots", []string{"/home/alice/a", "/srv/b"},
	)

	output := buf.String()
	if strings.Contains(output, "/home/alice") {
		t.Errorf("expected home directory to be shortened, got: %s", output)
	}
	if !strings.Contains(output, "open ~/site/manifest.json") {
		t.Errorf("expected error path to be shortened, got: %s", output)
	}
	if !strings.Contains(output, "~/a") || !strings.Contains(output, "/srv/b") {
		t.Errorf("expected root list to be shortened element-wise, got: %s", output)
	}
}

// TestRedactingHandler_CheckerRecords runs a real check through a logger
// built on the redacting handler and inspects the records it emits.
func TestRedactingHandler_CheckerRecords(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	root := filepath.Join(home, "site")
	if err := os.MkdirAll(root, 0o750); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(newRedactingHandler(handler, home))

	if _, err := checker.Check(t.Context(), site.Open(root), checker.WithCheckLogger(logger)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "checking project root") {
		t.Fatalf("expected checker debug record, got: %s", output)
	}
	if !strings.Contains(output, "root=~"+string(filepath.Separator)+"site") {
		t.Errorf("expected root to be shortened, got: %s", output)
	}
	if strings.Contains(output, home) {
		t.Errorf("expected no record to contain the home directory, got: %s", output)
	}
}

// TestNewRedactingHandler_NilHandler tests that nil handler is handled gracefully.
func TestNewRedactingHandler_NilHandler(t *testing.T) {
	t.Parallel()

	handler := NewRedactingHandler(nil)
	if handler == nil {
		t.Fatal("expected non-nil handler")
	}
	slog.New(handler).Debug("test message")
}
