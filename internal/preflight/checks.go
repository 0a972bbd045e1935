package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"datasetup/internal/config"
	"datasetup/internal/deps"
	"datasetup/internal/services/kaggle"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is an accessible directory, or when
// it does not exist yet but its nearest existing ancestor would let a run
// create it.
func CheckCreatableDirectory(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := existingAncestor(path)
	check := CheckDirectoryAccess(name, ancestor)
	if !check.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s)", path, ancestor)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

func existingAncestor(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		if parent := filepath.Dir(dir); parent == dir {
			return dir
		}
	}
}

// CheckKaggleCredentials reports whether Kaggle credentials can be resolved.
func CheckKaggleCredentials(cfg config.Kaggle) Result {
	const name = "Kaggle credentials"
	_, source, err := kaggle.ResolveCredentials(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error(), Optional: true}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("found (%s)", source), Optional: true}
}

// CheckKaggleAPI verifies that the Kaggle API accepts the credentials and
// knows the configured dataset.
func CheckKaggleAPI(ctx context.Context, cfg config.Kaggle) Result {
	result := checkKaggleAPI(ctx, cfg)
	result.Optional = true
	return result
}

func checkKaggleAPI(ctx context.Context, cfg config.Kaggle) Result {
	const name = "Kaggle API"

	creds, _, err := kaggle.ResolveCredentials(cfg)
	if err != nil {
		return Result{Name: name, Detail: "credentials missing"}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/datasets/view/"+strings.Trim(cfg.Dataset, "/"), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	req.SetBasicAuth(creds.Username, creds.Key)

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("dataset %s reachable", cfg.Dataset)}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid username or key)"}
	case http.StatusNotFound:
		return Result{Name: name, Detail: fmt.Sprintf("dataset %s not found", cfg.Dataset)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

// CheckSystemDeps evaluates the external binaries the LFS method needs.
// Both are optional: a run can still succeed through Kaggle.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "git",
			Command:     cfg.LFS.GitBinary,
			Description: "Required for the Git LFS method",
			Optional:    true,
		},
	})
	return append(statuses, deps.CheckGitLFS(ctx, cfg.LFS.GitBinary))
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (Kaggle API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (Kaggle API unreachable)"
	}
	return err.Error()
}
