package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"datasetup/internal/logging"
	"datasetup/internal/services"
)

// Method is one way of making the required files appear in the target
// directory. Returning an error wrapping ErrUnavailable means the method could
// not run here at all; any other error is an execution failure.
type Method interface {
	Name() string
	Attempt(ctx context.Context, targetDir string, required []string) error
}

// LoggerAware methods receive the per-attempt logger before they run.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Request names the target directory and the files it must hold.
type Request struct {
	TargetDir     string
	RequiredFiles []string
}

// Result classifies a single method attempt.
type Result string

const (
	ResultOK          Result = "ok"
	ResultUnavailable Result = "unavailable"
	ResultFailed      Result = "failed"
	ResultPartial     Result = "partial"
)

// Attempt records what one method did.
type Attempt struct {
	Method   string
	Result   Result
	Err      error
	Duration time.Duration
	Missing  []string
}

// Outcome is the terminal state of Ensure.
type Outcome struct {
	Success        bool
	Method         string
	AlreadyPresent bool
	Interrupted    bool
	Missing        []string
	Attempts       []Attempt
	Err            error
}

// Options tunes a Provisioner.
type Options struct {
	// PointersMissing treats Git LFS pointer files as absent.
	PointersMissing bool
}

// Provisioner drives acquisition methods until the required files exist.
type Provisioner struct {
	logger  *slog.Logger
	methods []Method
	opts    Options
}

// New constructs a Provisioner that tries methods in the given order.
func New(logger *slog.Logger, methods []Method, opts Options) *Provisioner {
	return &Provisioner{
		logger:  logging.NewComponentLogger(logger, "provisioner"),
		methods: append([]Method(nil), methods...),
		opts:    opts,
	}
}

// Ensure makes every required file present under req.TargetDir or reports
// which ones could not be obtained. It never returns an error and never
// panics because of a method.
func (p *Provisioner) Ensure(ctx context.Context, req Request) Outcome {
	required := dedupe(req.RequiredFiles)
	logger := p.logger.With(logging.String("target_dir", req.TargetDir))

	if err := os.MkdirAll(req.TargetDir, 0o755); err != nil {
		logging.ErrorWithContext(logger, "create target directory failed", "target_dir_create_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the parent directory"),
		)
		return Outcome{Missing: required, Err: fmt.Errorf("create target directory: %w", err)}
	}

	missing := Check(req.TargetDir, required, p.opts.PointersMissing)
	if len(missing) == 0 {
		logger.Info("data files already present",
			logging.String(logging.FieldEventType, "data_present"),
			logging.Int("file_count", len(required)),
		)
		return Outcome{Success: true, AlreadyPresent: true}
	}
	logger.Info("data files missing",
		logging.String(logging.FieldEventType, "data_missing"),
		logging.Any("missing", missing),
	)

	outcome := Outcome{Missing: missing}
	for _, method := range p.methods {
		if err := ctx.Err(); err != nil {
			outcome.Interrupted = true
			outcome.Err = err
			logger.Warn("provisioning interrupted",
				logging.String(logging.FieldEventType, "provision_interrupted"),
				logging.Error(err),
			)
			return outcome
		}
		attempt := p.attempt(ctx, method, req.TargetDir, required)
		outcome.Attempts = append(outcome.Attempts, attempt)
		outcome.Missing = attempt.Missing
		if len(attempt.Missing) == 0 {
			outcome.Success = true
			outcome.Method = attempt.Method
			logger.Info("data files acquired",
				logging.String(logging.FieldEventType, "data_acquired"),
				logging.String(logging.FieldMethod, attempt.Method),
			)
			return outcome
		}
	}
	if ctx.Err() != nil {
		outcome.Interrupted = true
		outcome.Err = ctx.Err()
	}

	logging.ErrorWithContext(logger, "data files unavailable after all methods", "data_unavailable",
		logging.Any("missing", outcome.Missing),
		logging.Int("attempts", len(outcome.Attempts)),
		logging.String(logging.FieldErrorHint, "follow the manual instructions printed below"),
	)
	return outcome
}

func (p *Provisioner) attempt(ctx context.Context, method Method, targetDir string, required []string) Attempt {
	name := methodName(method)
	methodCtx := services.WithMethod(ctx, name)
	logger := logging.WithContext(methodCtx, p.logger)
	if aware, ok := method.(LoggerAware); ok {
		aware.SetLogger(logger)
	}

	logger.Info("attempting acquisition", logging.String(logging.FieldEventType, "method_start"))
	start := time.Now()
	err := invoke(methodCtx, method, targetDir, required)
	attempt := Attempt{
		Method:   name,
		Err:      err,
		Duration: time.Since(start),
		Missing:  Check(targetDir, required, p.opts.PointersMissing),
	}

	switch {
	case len(attempt.Missing) == 0:
		attempt.Result = ResultOK
		if err != nil {
			logger.Warn("method reported an error but files are present",
				logging.String(logging.FieldEventType, "method_error_ignored"),
				logging.Error(err),
			)
		}
	case err != nil && errors.Is(err, ErrUnavailable):
		attempt.Result = ResultUnavailable
		logging.WarnWithContext(logger, "acquisition method unavailable", "method_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "trying the next method"),
		)
	case err != nil:
		attempt.Result = ResultFailed
		logging.ErrorWithContext(logger, "acquisition method failed", "method_failed",
			logging.Error(err),
			logging.Duration("duration", attempt.Duration),
		)
	default:
		attempt.Result = ResultPartial
		logging.WarnWithContext(logger, "method finished without all files", "method_partial",
			logging.Any("missing", attempt.Missing),
			logging.String(logging.FieldImpact, "missing files must come from another method"),
		)
	}
	return attempt
}

// invoke runs the method and converts a panic into an error.
func invoke(ctx context.Context, method Method, targetDir string, required []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("method panicked: %v", r)
		}
	}()
	return method.Attempt(ctx, targetDir, append([]string(nil), required...))
}

func methodName(method Method) (name string) {
	defer func() {
		if recover() != nil {
			name = "unknown"
		}
	}()
	name = strings.TrimSpace(method.Name())
	if name == "" {
		return "unknown"
	}
	return name
}

func dedupe(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, file := range files {
		if _, ok := seen[file]; ok {
			continue
		}
		seen[file] = struct{}{}
		out = append(out, file)
	}
	return out
}
