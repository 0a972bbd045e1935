package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"datasetup/internal/services"
)

func TestTeeLoggerSendsDebugOnlyToRunLog(t *testing.T) {
	var console bytes.Buffer
	base, err := New(Options{Level: "info", Writer: &console, RunID: "run-7"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	runLog, err := OpenRunLog(filepath.Join(t.TempDir(), "logs"), "run-7", time.Now())
	if err != nil {
		t.Fatalf("OpenRunLog returned error: %v", err)
	}

	ctx := services.WithMethod(context.Background(), "lfs")
	logger := WithContext(ctx, NewComponentLogger(TeeLogger(base, runLog.Handler()), "gitlfs"))
	logger.Debug("git lfs output", String("line", "Downloading Music Info.csv"))
	logger.Warn("acquisition method unavailable")
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(runLog.Path())
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two run log lines, got %d: %s", len(lines), data)
	}
	for _, line := range lines {
		if n := strings.Count(line, `"run_id":"run-7"`); n != 1 {
			t.Fatalf("expected run_id once, got %d in %s", n, line)
		}
		if !strings.Contains(line, `"method":"lfs"`) || !strings.Contains(line, `"component":"gitlfs"`) {
			t.Fatalf("expected method and component in %s", line)
		}
	}
	if !strings.Contains(lines[0], `"level":"debug"`) {
		t.Fatalf("expected debug record first, got %s", lines[0])
	}

	out := console.String()
	if strings.Contains(out, "git lfs output") {
		t.Fatalf("debug record leaked to console: %q", out)
	}
	if !strings.Contains(out, "WARN gitlfs: acquisition method unavailable") {
		t.Fatalf("expected warning on console, got %q", out)
	}
	if n := strings.Count(out, "run_id=run-7"); n != 1 {
		t.Fatalf("expected run_id once on console, got %d in %q", n, out)
	}
}

type failingHandler struct{ err error }

func (h failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h failingHandler) Handle(context.Context, slog.Record) error { return h.err }

func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h failingHandler) WithGroup(string) slog.Handler { return h }

func TestTeeHandlerKeepsWritingAfterFailure(t *testing.T) {
	errDiskFull := errors.New("disk full")
	var buf bytes.Buffer
	tee := teeHandler{failingHandler{err: errDiskFull}, slog.NewJSONHandler(&buf, nil)}

	err := tee.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "attempt finished", 0))
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if !strings.Contains(buf.String(), "attempt finished") {
		t.Fatalf("expected second handler to receive the record, got %q", buf.String())
	}
}

func TestTeeLoggerSkipsNil(t *testing.T) {
	var buf bytes.Buffer
	only := slog.NewJSONHandler(&buf, nil)

	logger := TeeLogger(nil, nil, only)
	if logger.Handler() != only {
		t.Fatalf("expected the single handler unwrapped, got %T", logger.Handler())
	}
	logger.Info("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected output, got %q", buf.String())
	}

	if TeeLogger(nil).Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected a no-op logger when nothing is given")
	}
}
