package core

import "context"

// MergeRequest holds the merge request fields a run needs.
type MergeRequest struct {
	Project        string
	IID            int
	Title          string
	SourceBranch   string
	TargetBranch   string
	SHA            string
	WebURL         string
	AuthorUsername string
	AuthorEmail    string
	// HeadRef is the ref the platform publishes the MR head under,
	// e.g. "merge-requests/12/head".
	HeadRef string
}

// Commit is one commit of a merge request.
type Commit struct {
	ID          string
	Title       string
	AuthorEmail string
}

// Note is a single comment inside a discussion thread.
type Note struct {
	ID       int64
	Body     string
	Resolved bool
}

// Thread is a discussion thread attached to a merge request.
type Thread struct {
	ID    string
	Notes []Note
}

// DiscussionClient is the part of the review platform that manages MR threads.
type DiscussionClient interface {
	ListThreads(ctx context.Context, project string, iid int) ([]Thread, error)
	CreateThread(ctx context.Context, project string, iid int, body string) error
	UpdateNote(ctx context.Context, project string, iid int, threadID string, noteID int64, body string) error
	SetNoteResolved(ctx context.Context, project string, iid int, threadID string, noteID int64, resolved bool) error
}

// Platform abstracts the code review platform hosting the merge request.
//
//go:generate mockgen -destination=../../mocks/mock_platform.go -package=mocks . Platform
type Platform interface {
	DiscussionClient

	GetMergeRequest(ctx context.Context, project string, iid int) (*MergeRequest, error)
	// ListCommits returns the MR commits ordered oldest first.
	ListCommits(ctx context.Context, project string, iid int) ([]Commit, error)
	// ListEndorsers returns the names of users who gave the MR a thumbs up.
	ListEndorsers(ctx context.Context, project string, iid int) ([]string, error)
	// CloneURL returns an authenticated URL the working copy can be fetched from.
	CloneURL(project string) (string, error)
}
