// Package gitlab implements the review platform on top of the GitLab API.
package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
)

const perPage = 100

type gitLabClient struct {
	client  *gitlab.Client
	baseURL *url.URL
	token   string
	logger  *slog.Logger
}

// NewClient returns a core.Platform backed by the GitLab REST API.
func NewClient(cfg config.GitLabConfig, logger *slog.Logger) (core.Platform, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("gitlab token is not configured")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid gitlab url %q: %w", cfg.URL, err)
	}
	client, err := gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}
	return &gitLabClient{client: client, baseURL: base, token: cfg.Token, logger: logger}, nil
}

func (g *gitLabClient) GetMergeRequest(ctx context.Context, project string, iid int) (*core.MergeRequest, error) {
	mr, _, err := g.client.MergeRequests.GetMergeRequest(project, iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get merge request %s!%d: %w", project, iid, err)
	}

	out := &core.MergeRequest{
		Project:      project,
		IID:          mr.IID,
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		SHA:          mr.SHA,
		WebURL:       mr.WebURL,
		HeadRef:      fmt.Sprintf("merge-requests/%d/head", iid),
	}
	if mr.Author != nil {
		out.AuthorUsername = mr.Author.Username
	}
	if out.WebURL == "" {
		out.WebURL = g.baseURL.JoinPath(project, "-", "merge_requests", fmt.Sprint(iid)).String()
	}
	return out, nil
}

// ListCommits returns the MR commits oldest first. The API lists them newest first.
func (g *gitLabClient) ListCommits(ctx context.Context, project string, iid int) ([]core.Commit, error) {
	var out []core.Commit
	opt := &gitlab.GetMergeRequestCommitsOptions{PerPage: perPage, Page: 1}
	for {
		commits, resp, err := g.client.MergeRequests.GetMergeRequestCommits(project, iid, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list commits of %s!%d: %w", project, iid, err)
		}
		for _, c := range commits {
			out = append(out, core.Commit{ID: c.ID, Title: c.Title, AuthorEmail: c.AuthorEmail})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	slices.Reverse(out)
	return out, nil
}

func (g *gitLabClient) ListThreads(ctx context.Context, project string, iid int) ([]core.Thread, error) {
	var out []core.Thread
	opt := &gitlab.ListMergeRequestDiscussionsOptions{PerPage: perPage, Page: 1}
	for {
		discussions, resp, err := g.client.Discussions.ListMergeRequestDiscussions(project, iid, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list discussions of %s!%d: %w", project, iid, err)
		}
		for _, d := range discussions {
			t := core.Thread{ID: d.ID}
			for _, n := range d.Notes {
				if n == nil {
					continue
				}
				t.Notes = append(t.Notes, core.Note{ID: int64(n.ID), Body: n.Body, Resolved: n.Resolved})
			}
			out = append(out, t)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return out, nil
}

func (g *gitLabClient) CreateThread(ctx context.Context, project string, iid int, body string) error {
	opt := &gitlab.CreateMergeRequestDiscussionOptions{Body: gitlab.Ptr(body)}
	if _, _, err := g.client.Discussions.CreateMergeRequestDiscussion(project, iid, opt, gitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to create discussion on %s!%d: %w", project, iid, err)
	}
	return nil
}

func (g *gitLabClient) UpdateNote(ctx context.Context, project string, iid int, threadID string, noteID int64, body string) error {
	opt := &gitlab.UpdateMergeRequestDiscussionNoteOptions{Body: gitlab.Ptr(body)}
	if _, _, err := g.client.Discussions.UpdateMergeRequestDiscussionNote(project, iid, threadID, int(noteID), opt, gitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to update note %d: %w", noteID, err)
	}
	return nil
}

func (g *gitLabClient) SetNoteResolved(ctx context.Context, project string, iid int, threadID string, noteID int64, resolved bool) error {
	opt := &gitlab.UpdateMergeRequestDiscussionNoteOptions{Resolved: gitlab.Ptr(resolved)}
	if _, _, err := g.client.Discussions.UpdateMergeRequestDiscussionNote(project, iid, threadID, int(noteID), opt, gitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to set resolved=%t on note %d: %w", resolved, noteID, err)
	}
	return nil
}

// ListEndorsers returns the usernames that awarded a thumbsup, sorted.
func (g *gitLabClient) ListEndorsers(ctx context.Context, project string, iid int) ([]string, error) {
	seen := make(map[string]bool)
	opt := &gitlab.ListAwardEmojiOptions{PerPage: perPage, Page: 1}
	for {
		awards, resp, err := g.client.AwardEmoji.ListMergeRequestAwardEmoji(project, iid, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list award emoji of %s!%d: %w", project, iid, err)
		}
		for _, a := range awards {
			if a == nil {
				continue
			}
			if a.Name != "thumbsup" {
				g.logger.DebugContext(ctx, "ignoring award", "name", a.Name, "user", a.User.Username)
				continue
			}
			seen[a.User.Username] = true
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

// CloneURL returns an HTTPS remote carrying the API token as oauth2 credentials.
func (g *gitLabClient) CloneURL(project string) (string, error) {
	project = strings.Trim(project, "/")
	if project == "" {
		return "", fmt.Errorf("project must not be empty")
	}
	u := *g.baseURL
	u.User = url.UserPassword("oauth2", g.token)
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + project + ".git"
	u.RawQuery, u.Fragment = "", ""
	return u.String(), nil
}
