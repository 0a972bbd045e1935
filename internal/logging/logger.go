package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"datasetup/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives the output. Nil means stderr.
	Writer io.Writer
	// RunID is stamped on every record as run_id when non-empty.
	RunID string
}

// New constructs a slog logger using the provided options. Debug level adds
// the caller to every record.
func New(opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	withSource := level.Level() <= slog.LevelDebug

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		handler = newConsoleHandler(w, level, withSource)
	case "json":
		handler = newJSONHandler(w, level, withSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if runID := strings.TrimSpace(opts.RunID); runID != "" {
		handler = newRunIDHandler(handler, runID)
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger using application config defaults, writing to w.
func NewFromConfig(cfg *config.Config, w io.Writer, runID string) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Writer: w, RunID: runID})
	}
	return New(Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: w,
		RunID:  runID,
	})
}

// parseLevel accepts slog level names in any case. Unknown values fall back
// to info.
func parseLevel(level string) slog.Level {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return parsed
}
