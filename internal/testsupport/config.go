package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"datasetup/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Kaggle credentials are cleared and the Kaggle config directory points at an
// empty temp dir so a developer's real ~/.kaggle never leaks into tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "repo", "data")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.RepoDir = filepath.Join(base, "repo")
	cfgVal.Kaggle.Username = ""
	cfgVal.Kaggle.Key = ""
	cfgVal.Kaggle.ConfigDir = filepath.Join(base, "kaggle")
	cfgVal.Kaggle.TimeoutSeconds = 30
	cfgVal.LFS.TimeoutSeconds = 30

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithKaggleCredentials sets Kaggle credentials on the test config.
func WithKaggleCredentials(username, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Kaggle.Username = username
		b.cfg.Kaggle.Key = key
	}
}

// WithKaggleServer points the Kaggle method at a test server.
func WithKaggleServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Kaggle.BaseURL = baseURL
	}
}

// WithMethods overrides the acquisition method order.
func WithMethods(methods ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provision.Methods = append([]string(nil), methods...)
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, git is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"git"}
		}
		scripts := make(map[string]string, len(names))
		for _, name := range names {
			scripts[name] = "#!/bin/sh\nexit 0\n"
		}
		installStubs(b, scripts)
	}
}

// WithStubScript installs a single stub executable with the given shell body.
func WithStubScript(name, script string) ConfigOption {
	return func(b *configBuilder) {
		installStubs(b, map[string]string{name: script})
	}
}

func installStubs(b *configBuilder, scripts map[string]string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	for name, script := range scripts {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
