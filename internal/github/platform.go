package github

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/rate-my-mr/internal/core"
)

const (
	conclusionSuccess = "success"
	conclusionFailure = "failure"
)

// Platform adapts a Client to core.Platform. Projects are "owner/repo" and
// merge request IIDs are pull request numbers.
type Platform struct {
	client       Client
	token        string
	checkName    string
	cloneBaseURL string
	logger       *slog.Logger
}

var _ core.Platform = (*Platform)(nil)

func NewPlatform(client Client, token, checkName string, logger *slog.Logger) *Platform {
	if checkName == "" {
		checkName = "rate-my-mr"
	}
	return &Platform{
		client:       client,
		token:        token,
		checkName:    checkName,
		cloneBaseURL: "https://github.com",
		logger:       logger,
	}
}

func splitProject(project string) (string, string, error) {
	owner, repo, ok := strings.Cut(strings.Trim(project, "/"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid github project %q, expected owner/repo", project)
	}
	return owner, repo, nil
}

func (p *Platform) GetMergeRequest(ctx context.Context, project string, iid int) (*core.MergeRequest, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}
	pr, err := p.client.GetPullRequest(ctx, owner, repo, iid)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request %s#%d: %w", project, iid, err)
	}
	return &core.MergeRequest{
		Project:        project,
		IID:            pr.GetNumber(),
		Title:          pr.GetTitle(),
		SourceBranch:   pr.GetHead().GetRef(),
		TargetBranch:   pr.GetBase().GetRef(),
		SHA:            pr.GetHead().GetSHA(),
		WebURL:         pr.GetHTMLURL(),
		AuthorUsername: pr.GetUser().GetLogin(),
		AuthorEmail:    pr.GetUser().GetEmail(),
		HeadRef:        fmt.Sprintf("pull/%d/head", iid),
	}, nil
}

func (p *Platform) ListCommits(ctx context.Context, project string, iid int) ([]core.Commit, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}
	commits, err := p.client.ListCommits(ctx, owner, repo, iid)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits of %s#%d: %w", project, iid, err)
	}
	out := make([]core.Commit, 0, len(commits))
	for _, c := range commits {
		title, _, _ := strings.Cut(c.GetCommit().GetMessage(), "\n")
		out = append(out, core.Commit{
			ID:          c.GetSHA(),
			Title:       title,
			AuthorEmail: c.GetCommit().GetAuthor().GetEmail(),
		})
	}
	return out, nil
}

// ListThreads returns one single-note thread per issue comment. Every note
// carries the resolved state of the latest check run on the head commit.
func (p *Platform) ListThreads(ctx context.Context, project string, iid int) ([]core.Thread, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}
	comments, err := p.client.ListComments(ctx, owner, repo, iid)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of %s#%d: %w", project, iid, err)
	}
	resolved, err := p.resolved(ctx, owner, repo, iid)
	if err != nil {
		return nil, err
	}

	out := make([]core.Thread, 0, len(comments))
	for _, c := range comments {
		id := c.GetID()
		out = append(out, core.Thread{
			ID:    strconv.FormatInt(id, 10),
			Notes: []core.Note{{ID: id, Body: c.GetBody(), Resolved: resolved}},
		})
	}
	return out, nil
}

func (p *Platform) resolved(ctx context.Context, owner, repo string, number int) (bool, error) {
	pr, err := p.client.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return false, fmt.Errorf("failed to get pull request: %w", err)
	}
	run, err := p.client.LatestCheckRun(ctx, owner, repo, pr.GetHead().GetSHA(), p.checkName)
	if err != nil {
		return false, fmt.Errorf("failed to read check run: %w", err)
	}
	return run != nil && run.GetConclusion() == conclusionSuccess, nil
}

func (p *Platform) CreateThread(ctx context.Context, project string, iid int, body string) error {
	owner, repo, err := splitProject(project)
	if err != nil {
		return err
	}
	return p.client.CreateComment(ctx, owner, repo, iid, body)
}

func (p *Platform) UpdateNote(ctx context.Context, project string, _ int, _ string, noteID int64, body string) error {
	owner, repo, err := splitProject(project)
	if err != nil {
		return err
	}
	return p.client.EditComment(ctx, owner, repo, noteID, body)
}

// SetNoteResolved completes a check run on the head commit: success when
// resolved, failure when the report must stay open.
func (p *Platform) SetNoteResolved(ctx context.Context, project string, iid int, _ string, _ int64, resolved bool) error {
	owner, repo, err := splitProject(project)
	if err != nil {
		return err
	}
	pr, err := p.client.GetPullRequest(ctx, owner, repo, iid)
	if err != nil {
		return fmt.Errorf("failed to get pull request: %w", err)
	}

	conclusion, title := conclusionFailure, "Quality issues identified"
	if resolved {
		conclusion, title = conclusionSuccess, "Quality assessment passed"
	}
	summary := "See the MR Quality Rating Report comment on the pull request."
	_, err = p.client.CreateCheckRun(ctx, owner, repo, github.CreateCheckRunOptions{
		Name:       p.checkName,
		HeadSHA:    pr.GetHead().GetSHA(),
		Status:     github.Ptr("completed"),
		Conclusion: github.Ptr(conclusion),
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create check run: %w", err)
	}
	return nil
}

func (p *Platform) ListEndorsers(ctx context.Context, project string, iid int) ([]string, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}
	reactions, err := p.client.ListReactions(ctx, owner, repo, iid, "+1")
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions of %s#%d: %w", project, iid, err)
	}
	var out []string
	for _, r := range reactions {
		if login := r.GetUser().GetLogin(); login != "" && !slices.Contains(out, login) {
			out = append(out, login)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (p *Platform) CloneURL(project string) (string, error) {
	if _, _, err := splitProject(project); err != nil {
		return "", err
	}
	base := strings.TrimPrefix(p.cloneBaseURL, "https://")
	if p.token == "" {
		return fmt.Sprintf("https://%s/%s.git", base, strings.Trim(project, "/")), nil
	}
	return fmt.Sprintf("https://x-access-token:%s@%s/%s.git", p.token, base, strings.Trim(project, "/")), nil
}
