package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIgnoredEvent marks webhook payloads that are valid but must not trigger a run.
var ErrIgnoredEvent = errors.New("event ignored")

// MergeRequestEvent is the internal view of a request to rate one merge request.
// It is produced by the webhook handler or the CLI and consumed by a Job.
type MergeRequestEvent struct {
	// Project is the URL-decoded project path, e.g. "group/sub/repo".
	Project string
	// MRIID is the project-scoped merge request number.
	MRIID int
	// RequestID correlates every log line of a single run.
	RequestID string
	// TriggeredBy is the user whose action produced the event, if known.
	TriggeredBy string
	// DryRun renders the report without touching the discussion thread.
	DryRun bool
}

// Validate checks the fields every job relies on.
func (e *MergeRequestEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}
	if strings.TrimSpace(e.Project) == "" {
		return fmt.Errorf("project must not be empty")
	}
	if e.MRIID <= 0 {
		return fmt.Errorf("invalid merge request iid: %d", e.MRIID)
	}
	return nil
}

// String returns "project!iid", the way GitLab references merge requests.
func (e *MergeRequestEvent) String() string {
	return fmt.Sprintf("%s!%d", e.Project, e.MRIID)
}
