package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"datasetup/internal/config"
	"datasetup/internal/history"
	"datasetup/internal/logging"
	"datasetup/internal/provision"
	"datasetup/internal/services"
	"datasetup/internal/services/gitlfs"
	"datasetup/internal/services/kaggle"
)

type ensureOptions struct {
	methods       []string
	forceDownload bool
	noHistory     bool
}

func bindEnsureFlags(cmd *cobra.Command, opts *ensureOptions) {
	cmd.Flags().StringSliceVarP(&opts.methods, "method", "m", nil, "Only try these methods, in order (kaggle, lfs)")
	cmd.Flags().BoolVar(&opts.forceDownload, "force-download", false, "Ignore the cached Kaggle archive and download again")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in the history database")
}

func newEnsureCommand(ctx *commandContext) *cobra.Command {
	var opts ensureOptions
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Download the dataset files if they are missing",
		Long: "Ensure checks the data directory for the required dataset files and, when any are\n" +
			"missing, tries each configured acquisition method in order. Exits 2 when the files\n" +
			"could not be obtained.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsure(cmd, ctx, opts)
		},
	}
	bindEnsureFlags(cmd, &opts)
	return cmd
}

func runEnsure(cmd *cobra.Command, ctx *commandContext, opts ensureOptions) error {
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applyEnsureOptions(base, opts)
	if err != nil {
		return err
	}

	runID := logging.NewRunID()
	logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr(), runID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Only the data directory may decide the outcome. State and cache
	// problems degrade to warnings.
	lock, err := provision.AcquireLock(cfg.LockPath())
	switch {
	case errors.Is(err, provision.ErrLocked):
		return err
	case err != nil:
		logging.WarnWithContext(logger, "run lock unavailable; continuing without it", "lock_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "make paths.state_dir writable"),
			logging.String(logging.FieldImpact, "concurrent runs are not serialized"),
		)
	default:
		defer lock.Release()
	}
	logger, closeRunLog := attachRunLog(cfg, logger, runID)
	defer closeRunLog()

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx := services.WithRunID(sigCtx, runID)

	methods, err := buildMethods(cfg, logger)
	if err != nil {
		return err
	}
	provisioner := provision.New(logger, methods, provision.Options{
		PointersMissing: cfg.Provision.LFSPointersMissing,
	})
	req := provision.Request{
		TargetDir:     cfg.Paths.DataDir,
		RequiredFiles: cfg.Dataset.RequiredFiles,
	}

	started := time.Now()
	outcome := provisioner.Ensure(runCtx, req)
	finished := time.Now()

	if cfg.Provision.History && !opts.noHistory {
		recordRun(context.WithoutCancel(runCtx), cfg, logger, history.FromOutcome(runID, req.TargetDir, started, finished, outcome))
	}

	out := cmd.OutOrStdout()
	switch {
	case outcome.Success && outcome.AlreadyPresent:
		fmt.Fprintf(out, "All required data files are present in %s.\n", req.TargetDir)
		return nil
	case outcome.Success:
		fmt.Fprintf(out, "Data files obtained via %s into %s.\n", methodLabel(outcome.Method), req.TargetDir)
		return nil
	case outcome.Interrupted:
		return fmt.Errorf("provisioning interrupted: %w", context.Canceled)
	}

	if err := provision.WriteRemediation(out, req.TargetDir, req.RequiredFiles); err != nil {
		return fmt.Errorf("write instructions: %w", err)
	}
	return provision.ErrDataUnavailable
}

// applyEnsureOptions returns a copy of base with command-line overrides
// applied, so later commands in the same process see the loaded config.
func applyEnsureOptions(base *config.Config, opts ensureOptions) (*config.Config, error) {
	cfg := *base
	cfg.Provision.Methods = slices.Clone(base.Provision.Methods)
	if opts.forceDownload {
		cfg.Kaggle.ForceDownload = true
	}
	if len(opts.methods) > 0 {
		methods := make([]string, 0, len(opts.methods))
		for _, raw := range opts.methods {
			name := strings.ToLower(strings.TrimSpace(raw))
			if name != config.MethodKaggle && name != config.MethodLFS {
				return nil, fmt.Errorf("unknown method %q (want %s or %s)", raw, config.MethodKaggle, config.MethodLFS)
			}
			if !slices.Contains(methods, name) {
				methods = append(methods, name)
			}
		}
		cfg.Provision.Methods = methods
	}
	return &cfg, nil
}

func buildMethods(cfg *config.Config, logger *slog.Logger) ([]provision.Method, error) {
	methods := make([]provision.Method, 0, len(cfg.Provision.Methods))
	for _, name := range cfg.Provision.Methods {
		switch name {
		case config.MethodKaggle:
			methods = append(methods, kaggle.NewMethod(cfg, logger))
		case config.MethodLFS:
			methods = append(methods, gitlfs.NewMethod(cfg, logger))
		default:
			return nil, fmt.Errorf("unknown method %q", name)
		}
	}
	return methods, nil
}

// attachRunLog tees logger into a per-run JSON file under the state directory
// and prunes expired run logs. Failures only cost the file, never the run.
func attachRunLog(cfg *config.Config, logger *slog.Logger, runID string) (*slog.Logger, func()) {
	if !cfg.Logging.RunLogs {
		return logger, func() {}
	}
	runLog, err := logging.OpenRunLog(cfg.LogDir(), runID, time.Now())
	if err != nil {
		logging.WarnWithContext(logger, "run log unavailable", "run_log_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is only logged to the console"),
		)
		return logger, func() {}
	}
	logging.PruneRunLogs(logger, cfg.LogDir(), cfg.Logging.RetentionDays, runLog.Path())
	teed := logging.TeeLogger(logger, runLog.Handler())
	teed.Debug("run log opened", logging.String("path", runLog.Path()))
	return teed, func() { _ = runLog.Close() }
}

func recordRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, run history.Run) {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in `datasetup history`"),
		)
		return
	}
	defer store.Close()
	if _, err := store.Record(ctx, run); err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in `datasetup history`"),
		)
	}
}
