package gitutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoCommits is returned when no diff base can be found and there are no
// commits to fall back on.
var ErrNoCommits = errors.New("merge request has no commits")

// DiffStrategy names how a diff was produced.
type DiffStrategy string

const (
	StrategyMergeBase    DiffStrategy = "merge-base"
	StrategyCommitRange  DiffStrategy = "commit-range"
	StrategySingleCommit DiffStrategy = "single-commit"
)

// MergeRequestDiff returns the unified diff of HEAD against its merge base
// with targetBranch. When no merge base is reachable in the shallow history
// it falls back to the MR commits, ordered oldest first.
func (c *Client) MergeRequestDiff(ctx context.Context, path, targetBranch string, commits []string) (string, DiffStrategy, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	text, err := c.mergeBaseDiff(ctx, repo, targetBranch)
	if err == nil {
		return text, StrategyMergeBase, nil
	}
	c.Logger.WarnContext(ctx, "merge-base diff failed, falling back to commit list", "error", err, "commits", len(commits))

	if len(commits) == 0 {
		return "", "", fmt.Errorf("%w: %w", ErrNoCommits, err)
	}
	last, err := commitObject(repo, commits[len(commits)-1])
	if err != nil {
		return "", "", err
	}
	first := last
	strategy := StrategySingleCommit
	if len(commits) > 1 {
		if first, err = commitObject(repo, commits[0]); err != nil {
			return "", "", err
		}
		strategy = StrategyCommitRange
	}

	from, err := first.Parent(0)
	switch {
	case err == nil:
	case strategy == StrategyCommitRange:
		// The parent is outside the shallow history: diff first..last.
		from = first
	default:
		from = nil
	}

	text, err = patch(ctx, from, last)
	if err != nil {
		return "", "", err
	}
	return text, strategy, nil
}

func (c *Client) mergeBaseDiff(ctx context.Context, repo *git.Repository, targetBranch string) (string, error) {
	head, err := resolveCommit(repo, plumbing.Revision("HEAD"))
	if err != nil {
		return "", err
	}
	target, err := resolveCommit(repo, plumbing.Revision(plumbing.NewBranchReferenceName(targetBranch)))
	if err != nil {
		return "", err
	}
	bases, err := head.MergeBase(target)
	if err != nil {
		return "", fmt.Errorf("failed to compute merge base: %w", err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("no merge base between HEAD and %s", targetBranch)
	}
	c.Logger.DebugContext(ctx, "diffing against merge base", "base", bases[0].Hash.String(), "head", head.Hash.String())
	return patch(ctx, bases[0], head)
}

func resolveCommit(repo *git.Repository, rev plumbing.Revision) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(rev)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	return commit, nil
}

func commitObject(repo *git.Repository, sha string) (*object.Commit, error) {
	commit, err := repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object for %s: %w", sha, err)
	}
	return commit, nil
}

// patch renders the unified diff from -> to. A nil from diffs against the empty tree.
func patch(ctx context.Context, from, to *object.Commit) (string, error) {
	var fromTree *object.Tree
	if from != nil {
		t, err := from.Tree()
		if err != nil {
			return "", fmt.Errorf("failed to get tree for %s: %w", from.Hash, err)
		}
		fromTree = t
	}
	toTree, err := to.Tree()
	if err != nil {
		return "", fmt.Errorf("failed to get tree for %s: %w", to.Hash, err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return "", fmt.Errorf("failed to diff trees: %w", err)
	}
	p, err := changes.PatchContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to build patch: %w", err)
	}
	return p.String(), nil
}
