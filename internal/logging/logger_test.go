package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scraibe/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestConsoleHandlerHeader(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))
	logger = NewComponentLogger(logger, "runner")

	logger.Info("job admitted",
		String(FieldJobID, "3f2a9c1e-1111-2222-3333-444455556666"),
		String(FieldTask, "transcribe"),
		String("receiver", "a b"),
	)

	line := buf.String()
	if !strings.Contains(line, " INFO runner: job admitted [job=3f2a9c1e]") {
		t.Fatalf("unexpected header: %q", line)
	}
	if !strings.Contains(line, "task=transcribe") {
		t.Fatalf("expected task attr, got %q", line)
	}
	if !strings.Contains(line, `receiver="a b"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "WARN shown") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestJSONHandlerShape(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))
	logger.Info("hello", String(FieldJobID, "abc"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if payload["level"] != "info" {
		t.Fatalf("level = %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
	if payload[FieldJobID] != "abc" {
		t.Fatalf("job_id = %v", payload[FieldJobID])
	}
}

func TestWithContextStampsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newJSONHandler(&buf, lvl, false))

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithTask(ctx, "diarize")
	ctx = services.WithRequestID(ctx, "req-9")
	WithContext(ctx, base).Info("tagged")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[FieldJobID] != "job-1" || payload[FieldTask] != "diarize" || payload[FieldCorrelationID] != "req-9" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	WarnWithContext(logger, "cleanup incomplete", "artifact_cleanup_failed", Error(errors.New("boom")))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[FieldEventType] != "artifact_cleanup_failed" {
		t.Fatalf("event_type = %v", payload[FieldEventType])
	}
	if payload[FieldErrorHint] == nil || payload[FieldImpact] == nil {
		t.Fatalf("expected defaults in %v", payload)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "scraibe-old.log")
	fresh := filepath.Join(dir, "scraibe-new.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(other, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed := CleanupOldLogs(NewNop(), 3, RetentionTarget{Dir: dir, Pattern: "scraibe-*.log"})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh log kept: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("expected unmatched file kept: %v", err)
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	if got := CleanupOldLogs(NewNop(), 0, RetentionTarget{Dir: t.TempDir()}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
