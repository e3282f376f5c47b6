// Package github implements the review platform on top of the GitHub API.
// A pull request plays the merge request, issue comments play discussion
// threads and a check run on the head commit mirrors the resolved flag.
package github

import (
	"context"
	"log/slog"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
)

// Client defines the GitHub API operations the platform adapter needs.
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	ListCommits(ctx context.Context, owner, repo string, number int) ([]*github.RepositoryCommit, error)
	ListComments(ctx context.Context, owner, repo string, number int) ([]*github.IssueComment, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
	EditComment(ctx context.Context, owner, repo string, commentID int64, body string) error
	LatestCheckRun(ctx context.Context, owner, repo, ref, name string) (*github.CheckRun, error)
	CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error)
	ListReactions(ctx context.Context, owner, repo string, number int, content string) ([]*github.Reaction, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewPATClient creates a client authenticated with a personal access token.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return &gitHubClient{client: github.NewClient(tc), logger: logger}
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	return pr, nil
}

// ListCommits returns all commits of a pull request, oldest first.
func (g *gitHubClient) ListCommits(ctx context.Context, owner, repo string, number int) ([]*github.RepositoryCommit, error) {
	var all []*github.RepositoryCommit
	opts := &github.ListOptions{PerPage: 100}
	for {
		commits, resp, err := g.client.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list commits", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		all = append(all, commits...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListComments returns all issue comments of a pull request.
func (g *gitHubClient) ListComments(ctx context.Context, owner, repo string, number int) ([]*github.IssueComment, error) {
	var all []*github.IssueComment
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list comments", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		all = append(all, comments...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateComment creates a new comment on a pull request.
func (g *gitHubClient) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	comment := &github.IssueComment{Body: &body}
	_, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		g.logger.Error("failed to create comment", "owner", owner, "repo", repo, "pr", number, "error", err)
	}
	return err
}

// EditComment replaces the body of an existing comment.
func (g *gitHubClient) EditComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	comment := &github.IssueComment{Body: &body}
	_, _, err := g.client.Issues.EditComment(ctx, owner, repo, commentID, comment)
	if err != nil {
		g.logger.Error("failed to edit comment", "owner", owner, "repo", repo, "comment_id", commentID, "error", err)
	}
	return err
}

// LatestCheckRun returns the most recent check run called name on ref, or nil.
func (g *gitHubClient) LatestCheckRun(ctx context.Context, owner, repo, ref, name string) (*github.CheckRun, error) {
	opts := &github.ListCheckRunsOptions{
		CheckName:   github.Ptr(name),
		Filter:      github.Ptr("latest"),
		ListOptions: github.ListOptions{PerPage: 1},
	}
	res, _, err := g.client.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, opts)
	if err != nil {
		g.logger.Error("failed to list check runs", "owner", owner, "repo", repo, "ref", ref, "error", err)
		return nil, err
	}
	if res == nil || len(res.CheckRuns) == 0 {
		return nil, nil
	}
	return res.CheckRuns[0], nil
}

// CreateCheckRun creates a new check run.
func (g *gitHubClient) CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error) {
	checkRun, _, err := g.client.Checks.CreateCheckRun(ctx, owner, repo, opts)
	if err != nil {
		g.logger.Error("failed to create check run", "owner", owner, "repo", repo, "error", err)
		return nil, err
	}
	return checkRun, nil
}

// ListReactions returns the reactions with the given content on a pull request.
func (g *gitHubClient) ListReactions(ctx context.Context, owner, repo string, number int, content string) ([]*github.Reaction, error) {
	var all []*github.Reaction
	opts := &github.ListReactionOptions{Content: content, ListOptions: github.ListOptions{PerPage: 100}}
	for {
		reactions, resp, err := g.client.Reactions.ListIssueReactions(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list reactions", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		all = append(all, reactions...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}
