package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"datasetup/internal/config"
	"datasetup/internal/testsupport"
)

var requiredFiles = []string{"Music Info.csv", "User Listening History.csv"}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("KAGGLE_USERNAME", "")
	t.Setenv("KAGGLE_KEY", "")
	t.Setenv("KAGGLE_CONFIG_DIR", "")

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "datasetup", "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// gitStub returns a shell script standing in for git. It reports git-lfs as
// installed, names repo as the repository root, and on `lfs pull` writes the
// dataset files into dataDir when pullWrites is set.
func gitStub(repo, dataDir string, pullWrites bool) string {
	pull := "exit 1"
	if pullWrites {
		var b strings.Builder
		for _, name := range requiredFiles {
			fmt.Fprintf(&b, "echo 'id,name' > '%s/%s'; ", dataDir, name)
		}
		b.WriteString("exit 0")
		pull = b.String()
	}
	return fmt.Sprintf(`#!/bin/sh
case "$*" in
"lfs version") echo "git-lfs/3.4.1 (stub)"; exit 0 ;;
*"rev-parse --show-toplevel"*) echo '%s'; exit 0 ;;
*"lfs pull"*) %s ;;
esac
exit 1
`, repo, pull)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func installGitStub(t *testing.T, env *cliTestEnv, pullWrites bool) {
	t.Helper()
	binDir := filepath.Join(env.baseDir, "gitbin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	script := gitStub(env.cfg.Paths.RepoDir, env.cfg.Paths.DataDir, pullWrites)
	if err := os.WriteFile(filepath.Join(binDir, "git"), []byte(script), 0o755); err != nil {
		t.Fatalf("write git stub: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
