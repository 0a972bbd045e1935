package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const runLogPattern = "run-*.log"

// RunLog is a JSON log file capturing every record of one provisioning run.
type RunLog struct {
	path    string
	file    *os.File
	handler slog.Handler
}

// OpenRunLog creates a debug-level JSON log file for runID inside dir.
func OpenRunLog(dir, runID string, now time.Time) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	path := filepath.Join(dir, runLogName(runID, now))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	handler := newJSONHandler(file, level, false)
	if strings.TrimSpace(runID) != "" {
		handler = newRunIDHandler(handler, runID)
	}
	return &RunLog{path: path, file: file, handler: handler}, nil
}

func runLogName(runID string, now time.Time) string {
	short := strings.ReplaceAll(strings.TrimSpace(runID), "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		short = "anon"
	}
	return fmt.Sprintf("run-%s-%s.log", now.UTC().Format("20060102T150405Z"), short)
}

// Path returns the log file location.
func (r *RunLog) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Handler returns the slog handler writing into the file.
func (r *RunLog) Handler() slog.Handler {
	if r == nil {
		return NoopHandler{}
	}
	return r.handler
}

// Close flushes and closes the file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// PruneRunLogs removes run logs in dir last modified more than retentionDays
// ago and returns how many were removed. keep is never removed. A
// retentionDays value of 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, keep string) int {
	if retentionDays <= 0 || strings.TrimSpace(dir) == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keepAbs := absOrSelf(keep)

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matched, _ := filepath.Match(runLogPattern, entry.Name()); !matched {
			continue
		}
		fullPath := absOrSelf(filepath.Join(dir, entry.Name()))
		if keepAbs != "" && fullPath == keepAbs {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "run log removal failed; file remains", "log_retention_failed",
				String("path", fullPath),
				Error(err),
				String(FieldErrorHint, "check permissions on the state directory"),
				String(FieldImpact, "old run log remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("run log pruned",
				String("path", fullPath),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}

func absOrSelf(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}
