package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Requirement defines an external dependency datasetup relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckGitLFS reports whether the git-lfs extension is usable through gitBinary.
// git-lfs is a git subcommand, so it cannot be found with a plain PATH lookup
// of the git binary alone.
func CheckGitLFS(ctx context.Context, gitBinary string) Status {
	status := Status{
		Name:        "git-lfs",
		Command:     strings.TrimSpace(gitBinary) + " lfs",
		Description: "Fetches LFS-tracked dataset files",
		Optional:    true,
	}
	gitPath, err := exec.LookPath(strings.TrimSpace(gitBinary))
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", gitBinary)
		return status
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(checkCtx, gitPath, "lfs", "version").CombinedOutput() //nolint:gosec
	if err != nil {
		status.Detail = "git lfs not installed"
		return status
	}
	status.Available = true
	status.Detail = strings.TrimSpace(firstLine(string(out)))
	return status
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
