package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"datasetup/internal/provision"
	"datasetup/internal/services"
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one recorded provisioning run.
type Run struct {
	ID             int64
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	TargetDir      string
	Success        bool
	AlreadyPresent bool
	Interrupted    bool
	Method         string
	Missing        []string
	Attempts       []Attempt
}

// Attempt is one recorded method attempt within a run.
type Attempt struct {
	Method   string
	Result   string
	Error    string
	Duration time.Duration
	Missing  []string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = time.RFC3339Nano
)

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FromOutcome converts a provisioning outcome into a history row.
func FromOutcome(runID, targetDir string, started, finished time.Time, outcome provision.Outcome) Run {
	run := Run{
		RunID:          runID,
		StartedAt:      started,
		FinishedAt:     finished,
		TargetDir:      targetDir,
		Success:        outcome.Success,
		AlreadyPresent: outcome.AlreadyPresent,
		Interrupted:    outcome.Interrupted,
		Method:         outcome.Method,
		Missing:        outcome.Missing,
	}
	for _, attempt := range outcome.Attempts {
		rec := Attempt{
			Method:   attempt.Method,
			Result:   string(attempt.Result),
			Duration: attempt.Duration,
			Missing:  attempt.Missing,
		}
		if attempt.Err != nil {
			rec.Error = attempt.Err.Error()
		}
		run.Attempts = append(run.Attempts, rec)
	}
	return run
}

// Record stores a run with its attempts and returns the row id. When the run
// carries no run id, the one on ctx is used.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(run.RunID) == "" {
		if rid, ok := services.RunIDFromContext(ctx); ok {
			run.RunID = rid
		}
	}
	if strings.TrimSpace(run.RunID) == "" {
		return 0, errors.New("run id required")
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		var txErr error
		id, txErr = s.insertRun(ctx, run)
		return txErr
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) insertRun(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, started_at, finished_at, target_dir, success, already_present, interrupted, method, missing_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.TargetDir,
		boolToInt(run.Success),
		boolToInt(run.AlreadyPresent),
		boolToInt(run.Interrupted),
		run.Method,
		encodeList(run.Missing),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	for i, attempt := range run.Attempts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO attempts
			(run_pk, seq, method, result, error, duration_ms, missing_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, attempt.Method, attempt.Result, attempt.Error,
			attempt.Duration.Milliseconds(), encodeList(attempt.Missing),
		); err != nil {
			return 0, fmt.Errorf("insert attempt: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit history: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first, with their attempts.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, started_at, finished_at, target_dir,
		success, already_present, interrupted, method, missing_json
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                             Run
			started, finished, missing      string
			success, alreadyPresent, interr int
		)
		if err := rows.Scan(&run.ID, &run.RunID, &started, &finished, &run.TargetDir,
			&success, &alreadyPresent, &interr, &run.Method, &missing); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		run.Success = success != 0
		run.AlreadyPresent = alreadyPresent != 0
		run.Interrupted = interr != 0
		run.Missing = decodeList(missing)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		attempts, err := s.attempts(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Attempts = attempts
	}
	return runs, nil
}

func (s *Store) attempts(ctx context.Context, runPK int64) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT method, result, error, duration_ms, missing_json
		FROM attempts WHERE run_pk = ? ORDER BY seq`, runPK)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			attempt    Attempt
			durationMS int64
			missing    string
		)
		if err := rows.Scan(&attempt.Method, &attempt.Result, &attempt.Error, &durationMS, &missing); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempt.Duration = time.Duration(durationMS) * time.Millisecond
		attempt.Missing = decodeList(missing)
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
