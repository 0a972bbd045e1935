package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateKaggle(); err != nil {
		return err
	}
	if err := c.validateLFS(); err != nil {
		return err
	}
	if err := c.validateProvision(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDataset() error {
	if len(c.Dataset.RequiredFiles) == 0 {
		return errors.New("dataset.required_files must include at least one filename")
	}
	for _, name := range c.Dataset.RequiredFiles {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("dataset.required_files: %q must be a plain filename", name)
		}
		if strings.Contains(name, ",") {
			return fmt.Errorf("dataset.required_files: %q must not contain a comma", name)
		}
	}
	return nil
}

func (c *Config) validateKaggle() error {
	owner, slug, ok := strings.Cut(c.Kaggle.Dataset, "/")
	if !ok || owner == "" || slug == "" || strings.Contains(slug, "/") {
		return fmt.Errorf("kaggle.dataset must be in owner/slug form, got %q", c.Kaggle.Dataset)
	}
	if c.Kaggle.TimeoutSeconds <= 0 {
		return errors.New("kaggle.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLFS() error {
	if c.LFS.TimeoutSeconds <= 0 {
		return errors.New("lfs.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateProvision() error {
	if len(c.Provision.Methods) == 0 {
		return errors.New("provision.methods must list at least one method")
	}
	seen := make(map[string]struct{}, len(c.Provision.Methods))
	for _, method := range c.Provision.Methods {
		switch method {
		case MethodKaggle, MethodLFS:
		default:
			return fmt.Errorf("provision.methods: unknown method %q (expected %q or %q)", method, MethodKaggle, MethodLFS)
		}
		if _, dup := seen[method]; dup {
			return fmt.Errorf("provision.methods: %q listed more than once", method)
		}
		seen[method] = struct{}{}
	}
	return nil
}
