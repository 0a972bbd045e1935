package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"datasetup/internal/config"
	"datasetup/internal/logging"
	"datasetup/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer

	logger, err := logging.NewFromConfig(&cfg, &buf, "")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message")
	logger.Info("info message", logging.String("file", "Music Info.csv"))

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Fatalf("expected debug to be filtered at info level, got %q", out)
	}
	if !strings.Contains(out, "INFO info message") {
		t.Fatalf("expected info line, got %q", out)
	}
	if !strings.Contains(out, `file="Music Info.csv"`) {
		t.Fatalf("expected quoted attribute value, got %q", out)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerRendersGroupsAndValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.WithGroup("kaggle").Info("downloaded",
		logging.Int64("bytes", 2048),
		logging.Bool("cached", false),
		logging.Any("files", []string{"a.csv", "b.csv"}),
		logging.String("note", ""),
	)

	out := buf.String()
	for _, want := range []string{"kaggle.bytes=2048", "kaggle.cached=false", `kaggle.files="a.csv, b.csv"`, `kaggle.note=""`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "verbose", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info level, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("message with caller")

	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "provisioner").Info("checking files")

	if !strings.Contains(buf.String(), "INFO provisioner: checking files") {
		t.Fatalf("expected component prefix, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "component=") {
		t.Fatalf("component should not be repeated as attribute, got %q", buf.String())
	}
}

func TestJSONLoggerStampsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf, RunID: "run-123"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("method unavailable", logging.Error(errors.New("no credentials")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", entry["level"])
	}
	if entry[logging.FieldRunID] != "run-123" {
		t.Fatalf("expected run_id, got %v", entry[logging.FieldRunID])
	}
	if entry["msg"] != "method unavailable" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "file missing from archive", "archive_member_missing",
		logging.String(logging.FieldImpact, "file must come from another method"))

	out := buf.String()
	for _, want := range []string{"event_type=archive_member_missing", "error_hint=", `impact="file must come from another method"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := logging.NewRunID(), logging.NewRunID()
	if a == "" || a == b {
		t.Fatalf("expected distinct run ids, got %q and %q", a, b)
	}
}

func TestWithContextAddsMethod(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithMethod(context.Background(), "lfs")
	logging.WithContext(ctx, logger).Info("pulling")

	if !strings.Contains(buf.String(), "method=lfs") {
		t.Fatalf("expected method attribute, got %q", buf.String())
	}
}
