package preflight

import (
	"context"

	"datasetup/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string

	// Optional failures leave another acquisition route open.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
// Kaggle checks run only when the Kaggle method is enabled, and the API check
// only once credentials resolve.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCreatableDirectory("Data directory", cfg.Paths.DataDir),
		CheckCreatableDirectory("Cache directory", cfg.Paths.CacheDir),
		CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
	}

	if cfg.Kaggle.Enabled {
		creds := CheckKaggleCredentials(cfg.Kaggle)
		results = append(results, creds)
		if creds.Passed {
			results = append(results, CheckKaggleAPI(ctx, cfg.Kaggle))
		}
	}

	return results
}
