package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	CacheDir string `toml:"cache_dir"`
	StateDir string `toml:"state_dir"`
	RepoDir  string `toml:"repo_dir"`
}

// Dataset describes the files the downstream recommender expects.
type Dataset struct {
	RequiredFiles []string `toml:"required_files"`
}

// Kaggle contains configuration for the Kaggle dataset download method.
type Kaggle struct {
	Enabled        bool   `toml:"enabled"`
	Dataset        string `toml:"dataset"`
	BaseURL        string `toml:"base_url"`
	Username       string `toml:"username"`
	Key            string `toml:"key"`
	ConfigDir      string `toml:"config_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ForceDownload  bool   `toml:"force_download"`
}

// LFS contains configuration for the Git LFS pull method.
type LFS struct {
	Enabled             bool   `toml:"enabled"`
	GitBinary           string `toml:"git_binary"`
	IncludeOnlyRequired bool   `toml:"include_only_required"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
}

// Provision controls the provisioning run itself.
type Provision struct {
	// Methods lists acquisition methods in priority order ("kaggle", "lfs").
	Methods []string `toml:"methods"`
	// LFSPointersMissing treats un-pulled Git LFS pointer stubs as absent files.
	LFSPointersMissing bool `toml:"lfs_pointers_missing"`
	// History records each run in the SQLite history database under StateDir.
	History bool `toml:"history"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RunLogs writes a JSON log file per ensure run under StateDir/logs.
	RunLogs bool `toml:"run_logs"`
	// RetentionDays prunes run logs older than this many days. Zero keeps all.
	RetentionDays int `toml:"retention_days"`
}

// Config encapsulates all configuration values for datasetup.
//
// Configuration sections by subsystem:
//   - Paths: target data directory, download cache, state, repository root
//   - Dataset: required filenames
//   - Kaggle: dataset identifier, API endpoint and credentials
//   - LFS: git binary and pull options
//   - Provision: method order and presence rules
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Dataset   Dataset   `toml:"dataset"`
	Kaggle    Kaggle    `toml:"kaggle"`
	LFS       LFS       `toml:"lfs"`
	Provision Provision `toml:"provision"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/datasetup/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("datasetup.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories datasetup owns. The data directory
// is left to the provisioner, which creates it as part of every run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// KaggleTimeout returns the per-attempt timeout for the Kaggle method.
func (c *Config) KaggleTimeout() time.Duration {
	return time.Duration(c.Kaggle.TimeoutSeconds) * time.Second
}

// LFSTimeout returns the per-attempt timeout for the Git LFS method.
func (c *Config) LFSTimeout() time.Duration {
	return time.Duration(c.LFS.TimeoutSeconds) * time.Second
}

// KaggleCacheDir returns the directory holding downloaded and extracted Kaggle archives.
func (c *Config) KaggleCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "kaggle")
}

// HistoryPath returns the SQLite history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the lock file guarding concurrent provisioning runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "datasetup.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		if pathValue != "~" && pathValue[1] != '/' && pathValue[1] != '\\' {
			return "", fmt.Errorf("%q: ~user paths are not supported; use an absolute path", pathValue)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "datasetup")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/datasetup"
	}
	return filepath.Join(home, ".cache", "datasetup")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LogDir returns the directory holding per-run log files.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.StateDir, "logs")
}
