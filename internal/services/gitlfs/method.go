package gitlfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"datasetup/internal/config"
	"datasetup/internal/logging"
	"datasetup/internal/services"
)

// MethodName identifies the Git LFS acquisition method.
const MethodName = config.MethodLFS

const outputTailLines = 20

// Method acquires dataset files by pulling LFS objects in the repository.
type Method struct {
	cfg     config.LFS
	repoDir string
	timeout time.Duration
	logger  *slog.Logger
	opts    []Option
}

// NewMethod builds the Git LFS acquisition method from configuration.
func NewMethod(cfg *config.Config, logger *slog.Logger, opts ...Option) *Method {
	return &Method{
		cfg:     cfg.LFS,
		repoDir: cfg.Paths.RepoDir,
		timeout: cfg.LFSTimeout(),
		logger:  logging.NewComponentLogger(logger, "gitlfs"),
		opts:    opts,
	}
}

// Name returns the method identifier.
func (m *Method) Name() string { return MethodName }

// SetLogger swaps the logger used for the next attempt.
func (m *Method) SetLogger(logger *slog.Logger) {
	m.logger = logging.NewComponentLogger(logger, "gitlfs")
}

// Probe reports why the method cannot run, or nil when it can. On success it
// returns the repository root.
func (m *Method) Probe(ctx context.Context) (string, error) {
	if !m.cfg.Enabled {
		return "", services.Unavailable("gitlfs", "disabled in configuration", nil)
	}
	client, err := New(m.cfg.GitBinary, m.opts...)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "gitlfs", "init", "invalid git configuration", err)
	}
	return m.probe(ctx, client)
}

func (m *Method) probe(ctx context.Context, client *Client) (string, error) {
	version, err := client.Version(ctx)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", services.Unavailable("gitlfs", fmt.Sprintf("git binary %q not found", m.cfg.GitBinary), err)
		}
		return "", services.Unavailable("gitlfs", "git lfs not installed", err)
	}
	m.logger.Debug("git lfs detected", logging.String("version", version))

	root, err := client.RepoRoot(ctx, m.repoDir)
	if err != nil {
		return "", services.Unavailable("gitlfs", fmt.Sprintf("%s is not inside a git repository", m.repoDir), err)
	}
	return root, nil
}

// Attempt pulls LFS objects for the repository containing targetDir.
func (m *Method) Attempt(ctx context.Context, targetDir string, required []string) error {
	if !m.cfg.Enabled {
		return services.Unavailable("gitlfs", "disabled in configuration", nil)
	}
	client, err := New(m.cfg.GitBinary, m.opts...)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "gitlfs", "init", "invalid git configuration", err)
	}
	root, err := m.probe(ctx, client)
	if err != nil {
		return err
	}

	var include []string
	if m.cfg.IncludeOnlyRequired {
		include, err = includePatterns(root, targetDir, required)
		switch {
		case errors.Is(err, errCommaInPattern):
			logging.WarnWithContext(m.logger, "pulling all lfs objects instead of only required files", "lfs_include_dropped",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "avoid commas in the data directory path"),
				logging.String(logging.FieldImpact, "every LFS object in the repository is downloaded"),
			)
			include = nil
		case err != nil:
			return err
		}
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	m.logger.Info("pulling lfs objects",
		logging.String("repo_root", root),
		logging.Any("include", include),
	)
	tail := make([]string, 0, outputTailLines)
	start := time.Now()
	err = client.Pull(ctx, root, include, func(line string) {
		m.logger.Debug("git lfs output", logging.String("line", line))
		if len(tail) == outputTailLines {
			tail = tail[1:]
		}
		tail = append(tail, line)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "gitlfs", "pull", fmt.Sprintf("timed out after %s", m.timeout), err)
		}
		message := "git lfs pull failed"
		if len(tail) > 0 {
			message += ": " + strings.Join(tail, " | ")
		}
		return services.Wrap(services.ErrExternalTool, "gitlfs", "pull", message, err)
	}
	m.logger.Info("lfs pull finished", logging.Duration("duration", time.Since(start)))
	return nil
}

// includePatterns maps required files to repository-relative paths for
// `git lfs pull --include`.
func includePatterns(root, targetDir string, required []string) ([]string, error) {
	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, fmt.Errorf("resolve target directory: %w", err)
	}
	root = resolveLinks(root)
	absTarget = resolveLinks(absTarget)
	rel, err := filepath.Rel(root, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, services.Unavailable("gitlfs", fmt.Sprintf("target %s is outside repository %s", targetDir, root), err)
	}
	patterns := make([]string, 0, len(required))
	for _, name := range required {
		pattern := filepath.ToSlash(filepath.Join(rel, name))
		if strings.Contains(pattern, ",") {
			return nil, fmt.Errorf("%w: %q", errCommaInPattern, pattern)
		}
		patterns = append(patterns, escapePattern(pattern))
	}
	return patterns, nil
}

// errCommaInPattern marks a path that --include cannot express, since git lfs
// splits the flag on commas with no escape.
var errCommaInPattern = errors.New("path contains a comma")

// escapePattern makes wildcard characters in a literal path match themselves.
func escapePattern(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		switch r {
		case '\\', '*', '?', '[', ']':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func resolveLinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
