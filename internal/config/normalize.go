package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDataset()
	if err := c.normalizeKaggle(); err != nil {
		return err
	}
	c.normalizeLFS()
	c.normalizeProvision()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RepoDir) == "" {
		c.Paths.RepoDir = defaultRepoDir
	}
	if c.Paths.RepoDir, err = expandPath(c.Paths.RepoDir); err != nil {
		return fmt.Errorf("paths.repo_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDataset() {
	files := make([]string, 0, len(c.Dataset.RequiredFiles))
	seen := make(map[string]struct{}, len(c.Dataset.RequiredFiles))
	for _, name := range c.Dataset.RequiredFiles {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		files = append(files, trimmed)
	}
	c.Dataset.RequiredFiles = files
}

func (c *Config) normalizeKaggle() error {
	c.Kaggle.Dataset = strings.Trim(strings.TrimSpace(c.Kaggle.Dataset), "/")
	if c.Kaggle.Dataset == "" {
		c.Kaggle.Dataset = defaultKaggleDataset
	}
	c.Kaggle.BaseURL = strings.TrimRight(strings.TrimSpace(c.Kaggle.BaseURL), "/")
	if c.Kaggle.BaseURL == "" {
		c.Kaggle.BaseURL = defaultKaggleBaseURL
	}
	c.Kaggle.Username = strings.TrimSpace(c.Kaggle.Username)
	if c.Kaggle.Username == "" {
		if value, ok := os.LookupEnv("KAGGLE_USERNAME"); ok {
			c.Kaggle.Username = strings.TrimSpace(value)
		}
	}
	c.Kaggle.Key = strings.TrimSpace(c.Kaggle.Key)
	if c.Kaggle.Key == "" {
		if value, ok := os.LookupEnv("KAGGLE_KEY"); ok {
			c.Kaggle.Key = strings.TrimSpace(value)
		}
	}
	c.Kaggle.ConfigDir = strings.TrimSpace(c.Kaggle.ConfigDir)
	if c.Kaggle.ConfigDir == "" {
		if value, ok := os.LookupEnv("KAGGLE_CONFIG_DIR"); ok {
			c.Kaggle.ConfigDir = strings.TrimSpace(value)
		}
		if c.Kaggle.ConfigDir == "" {
			c.Kaggle.ConfigDir = defaultKaggleConfigDir
		}
	}
	var err error
	if c.Kaggle.ConfigDir, err = expandPath(c.Kaggle.ConfigDir); err != nil {
		return fmt.Errorf("kaggle.config_dir: %w", err)
	}
	if c.Kaggle.TimeoutSeconds <= 0 {
		c.Kaggle.TimeoutSeconds = defaultKaggleTimeout
	}
	return nil
}

func (c *Config) normalizeLFS() {
	c.LFS.GitBinary = strings.TrimSpace(c.LFS.GitBinary)
	if c.LFS.GitBinary == "" {
		c.LFS.GitBinary = defaultGitBinary
	}
	if c.LFS.TimeoutSeconds <= 0 {
		c.LFS.TimeoutSeconds = defaultLFSTimeout
	}
}

func (c *Config) normalizeProvision() {
	if len(c.Provision.Methods) == 0 {
		c.Provision.Methods = DefaultMethods()
		return
	}
	methods := make([]string, 0, len(c.Provision.Methods))
	for _, method := range c.Provision.Methods {
		normalized := strings.ToLower(strings.TrimSpace(method))
		if normalized == "" {
			continue
		}
		methods = append(methods, normalized)
	}
	c.Provision.Methods = methods
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
