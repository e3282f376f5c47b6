// Package gitutil prepares the disposable working copy of a merge request and
// computes its diff.
package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sevigo/rate-my-mr/internal/config"
)

const defaultBaseDelay = 2 * time.Second

// Client runs git commands for one working copy at a time.
type Client struct {
	Logger    *slog.Logger
	binary    string
	workDir   string
	minDepth  int
	retries   int
	baseDelay time.Duration
}

// NewClient returns a new Client instance.
func NewClient(cfg config.GitConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		Logger:    logger,
		binary:    cfg.Binary,
		workDir:   cfg.WorkDir,
		minDepth:  cfg.MinDepth,
		retries:   cfg.Retries,
		baseDelay: defaultBaseDelay,
	}
	if c.binary == "" {
		c.binary = "git"
	}
	if c.minDepth <= 0 {
		c.minDepth = 100
	}
	return c
}

// FetchDepth returns the shallow fetch depth for an MR with n commits.
func (c *Client) FetchDepth(n int) int {
	return max(n, c.minDepth)
}

func (c *Client) git(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, c.binary, append([]string{"-c", "core.longpaths=true"}, args...)...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s failed: %s: %w", args[0], redact(string(out)), err)
	}
	return nil
}

// Init creates an empty repository at path.
func (c *Client) Init(ctx context.Context, path string) error {
	return c.git(ctx, path, "init", "-q")
}

// Fetch fetches refSpecs from remoteURL with the given depth, retrying
// transient failures with exponential backoff.
func (c *Client) Fetch(ctx context.Context, path, remoteURL string, depth int, refSpecs ...string) error {
	c.Logger.InfoContext(ctx, "fetching refs", "refs", refSpecs, "depth", depth)

	args := []string{"fetch", "-q", "--force", "--update-head-ok"}
	if depth > 0 {
		args = append(args, fmt.Sprintf("--depth=%d", depth))
	}
	args = append(args, remoteURL)
	args = append(args, refSpecs...)

	var err error
	for i := 0; i <= c.retries; i++ {
		if i > 0 {
			delay := c.baseDelay * time.Duration(1<<(i-1))
			c.Logger.WarnContext(ctx, "git fetch failed, retrying",
				"attempt", i,
				"max_retries", c.retries,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err = c.git(ctx, path, args...); err == nil {
			c.Logger.InfoContext(ctx, "fetch complete")
			return nil
		}
	}
	return err
}

// Checkout switches the worktree to ref.
func (c *Client) Checkout(ctx context.Context, path, ref string) error {
	c.Logger.DebugContext(ctx, "checking out", "ref", ref)
	return c.git(ctx, path, "checkout", "-q", "--force", ref)
}

// PrepareMergeRequest creates a temporary working copy holding the MR head
// (checked out) and the target branch. The returned cleanup removes it.
func (c *Client) PrepareMergeRequest(ctx context.Context, remoteURL, headRef, targetBranch string, commits int) (string, func(), error) {
	path, err := os.MkdirTemp(c.workDir, "rate-my-mr-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup := func() {
		if removeErr := os.RemoveAll(path); removeErr != nil {
			c.Logger.Error("failed to remove working copy", "path", path, "error", removeErr)
		}
	}

	if err := c.Init(ctx, path); err != nil {
		cleanup()
		return "", nil, err
	}
	depth := c.FetchDepth(commits)
	if err := c.Fetch(ctx, path, remoteURL, depth, headRef, targetBranch+":"+targetBranch); err != nil {
		cleanup()
		return "", nil, err
	}
	if err := c.Checkout(ctx, path, "FETCH_HEAD"); err != nil {
		cleanup()
		return "", nil, err
	}
	c.Logger.InfoContext(ctx, "working copy ready", "path", path, "depth", depth)
	return path, cleanup, nil
}

// redact hides credentials embedded in remote URLs of git output.
func redact(s string) string {
	for {
		scheme := strings.Index(s, "://")
		if scheme < 0 {
			return s
		}
		rest := s[scheme+3:]
		at := strings.IndexByte(rest, '@')
		end := strings.IndexAny(rest, " /\n")
		if at < 0 || (end >= 0 && end < at) {
			return s[:scheme+3] + redact(rest)
		}
		return s[:scheme+3] + "***" + redact(rest[at:])
	}
}
