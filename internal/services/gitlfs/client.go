package gitlfs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the git commands the LFS method needs.
type Client struct {
	binary string
	exec   Executor
}

// New constructs a git client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("git binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Version returns the first line of `git lfs version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	lines, err := c.output(ctx, []string{"lfs", "version"})
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", errors.New("git lfs version produced no output")
	}
	return strings.TrimSpace(lines[0]), nil
}

// RepoRoot returns the top-level directory of the repository containing dir.
func (c *Client) RepoRoot(ctx context.Context, dir string) (string, error) {
	lines, err := c.output(ctx, []string{"-C", dir, "rev-parse", "--show-toplevel"})
	if err != nil {
		return "", err
	}
	for _, line := range lines {
		if root := strings.TrimSpace(line); root != "" {
			return root, nil
		}
	}
	return "", fmt.Errorf("no repository root reported for %s", dir)
}

// Pull runs `git lfs pull` in root, optionally limited to include patterns.
// onOutput receives each line git prints.
func (c *Client) Pull(ctx context.Context, root string, include []string, onOutput func(string)) error {
	args := []string{"-C", root, "lfs", "pull"}
	if len(include) > 0 {
		args = append(args, "--include="+strings.Join(include, ","))
	}
	return c.exec.Run(ctx, c.binary, args, onOutput)
}

func (c *Client) output(ctx context.Context, args []string) ([]string, error) {
	var lines []string
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		lines = append(lines, line)
	})
	return lines, err
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		scanErr error
		once    sync.Once
	)
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onOutput == nil {
				continue
			}
			mu.Lock()
			onOutput(scanner.Text())
			mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
