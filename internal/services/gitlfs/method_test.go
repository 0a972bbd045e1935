package gitlfs_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"datasetup/internal/config"
	"datasetup/internal/logging"
	"datasetup/internal/services"
	"datasetup/internal/services/gitlfs"
)

var required = []string{"Music Info.csv", "User Listening History.csv"}

type stubExecutor struct {
	root       string
	versionErr error
	rootErr    error
	pullErr    error
	pullLines  []string
	onPull     func()
	args       [][]string
}

func (s *stubExecutor) Run(_ context.Context, _ string, args []string, onOutput func(string)) error {
	s.args = append(s.args, append([]string(nil), args...))
	switch {
	case len(args) >= 2 && args[0] == "lfs" && args[1] == "version":
		if s.versionErr != nil {
			return s.versionErr
		}
		onOutput("git-lfs/3.4.1 (GitHub; linux amd64; go 1.21.5)")
	case len(args) >= 3 && args[2] == "rev-parse":
		if s.rootErr != nil {
			return s.rootErr
		}
		onOutput(s.root)
	case len(args) >= 4 && args[2] == "lfs" && args[3] == "pull":
		for _, line := range s.pullLines {
			onOutput(line)
		}
		if s.onPull != nil {
			s.onPull()
		}
		return s.pullErr
	default:
		return fmt.Errorf("unexpected args %v", args)
	}
	return nil
}

func (s *stubExecutor) pullArgs() []string {
	for _, args := range s.args {
		if len(args) >= 4 && args[3] == "pull" {
			return args
		}
	}
	return nil
}

func newConfig(t *testing.T, repo string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.RepoDir = repo
	return &cfg
}

func TestAttemptPullsRequiredFilesOnly(t *testing.T) {
	tests := []struct {
		name     string
		dataDir  string
		required []string
		want     string
	}{
		{
			name:     "plain names",
			dataDir:  "data",
			required: required,
			want:     "--include=data/Music Info.csv,data/User Listening History.csv",
		},
		{
			name:     "wildcard characters are literal",
			dataDir:  "data",
			required: []string{"plays[2024]*.csv", "what?.csv", `back\slash.csv`},
			want:     `--include=data/plays\[2024\]\*.csv,data/what\?.csv,data/back\\slash.csv`,
		},
		{
			name:     "comma in directory pulls everything",
			dataDir:  "songs,2024",
			required: required,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := t.TempDir()
			target := filepath.Join(repo, tc.dataDir)
			if err := os.MkdirAll(target, 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			stub := &stubExecutor{
				root: repo,
				onPull: func() {
					for _, name := range tc.required {
						_ = os.WriteFile(filepath.Join(target, name), []byte("csv"), 0o644)
					}
				},
			}

			method := gitlfs.NewMethod(newConfig(t, repo), logging.NewNop(), gitlfs.WithExecutor(stub))
			if err := method.Attempt(context.Background(), target, tc.required); err != nil {
				t.Fatalf("Attempt returned error: %v", err)
			}

			args := stub.pullArgs()
			if tc.want == "" {
				if len(args) != 4 || args[1] != repo {
					t.Fatalf("expected unrestricted pull, got %q", args)
				}
				return
			}
			if len(args) != 5 || args[1] != repo || args[4] != tc.want {
				t.Fatalf("unexpected pull args: %q", args)
			}
		})
	}
}

func TestAttemptPullsEverythingWhenNotRestricted(t *testing.T) {
	repo := t.TempDir()
	stub := &stubExecutor{root: repo}
	cfg := newConfig(t, repo)
	cfg.LFS.IncludeOnlyRequired = false

	if err := gitlfs.NewMethod(cfg, logging.NewNop(), gitlfs.WithExecutor(stub)).Attempt(context.Background(), repo, required); err != nil {
		t.Fatalf("Attempt returned error: %v", err)
	}
	if args := stub.pullArgs(); len(args) != 4 {
		t.Fatalf("expected unrestricted pull, got %q", args)
	}
}

func TestAttemptUnavailable(t *testing.T) {
	repo := t.TempDir()
	tests := []struct {
		name string
		stub *stubExecutor
		cfg  func(*config.Config)
		text string
	}{
		{
			name: "git missing",
			stub: &stubExecutor{versionErr: fmt.Errorf("start command: %w", exec.ErrNotFound)},
			text: "not found",
		},
		{
			name: "lfs missing",
			stub: &stubExecutor{versionErr: errors.New("git: 'lfs' is not a git command")},
			text: "git lfs not installed",
		},
		{
			name: "no repository",
			stub: &stubExecutor{rootErr: errors.New("fatal: not a git repository")},
			text: "not inside a git repository",
		},
		{
			name: "disabled",
			stub: &stubExecutor{root: repo},
			cfg:  func(c *config.Config) { c.LFS.Enabled = false },
			text: "disabled",
		},
		{
			name: "target outside repository",
			stub: &stubExecutor{root: filepath.Join(repo, "nested")},
			text: "outside repository",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newConfig(t, repo)
			if tc.cfg != nil {
				tc.cfg(cfg)
			}
			err := gitlfs.NewMethod(cfg, logging.NewNop(), gitlfs.WithExecutor(tc.stub)).Attempt(context.Background(), repo, required)
			if !services.IsUnavailable(err) {
				t.Fatalf("expected unavailable error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.text) {
				t.Fatalf("expected %q in %v", tc.text, err)
			}
			if tc.stub.pullArgs() != nil {
				t.Fatal("pull should not run when unavailable")
			}
		})
	}
}

func TestAttemptPullFailureCarriesOutputTail(t *testing.T) {
	repo := t.TempDir()
	stub := &stubExecutor{
		root:      repo,
		pullLines: []string{"batch response: Repository or object not found"},
		pullErr:   errors.New("wait command: exit status 2"),
	}

	err := gitlfs.NewMethod(newConfig(t, repo), logging.NewNop(), gitlfs.WithExecutor(stub)).Attempt(context.Background(), repo, required)
	if err == nil || services.IsUnavailable(err) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "object not found") {
		t.Fatalf("expected output tail in error, got %v", err)
	}
}

func TestProbeReturnsRepoRoot(t *testing.T) {
	repo := t.TempDir()
	stub := &stubExecutor{root: repo}

	root, err := gitlfs.NewMethod(newConfig(t, repo), logging.NewNop(), gitlfs.WithExecutor(stub)).Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if root != repo {
		t.Fatalf("unexpected root %q", root)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := gitlfs.New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
