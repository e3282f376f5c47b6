// Package discussion keeps the single report thread of a merge request in
// sync with the latest report.
package discussion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/rate-my-mr/internal/core"
)

// ErrMissingHeader is returned for a body that does not start with the sentinel.
var ErrMissingHeader = errors.New("report body does not start with the header sentinel")

// Outcome describes the mutations one reconciliation performed.
type Outcome struct {
	ThreadID   string
	NoteID     int64
	Created    bool
	Updated    bool
	Resolved   bool
	Unresolved bool
}

// Mutations returns the number of write calls made.
func (o Outcome) Mutations() int {
	n := 0
	for _, done := range []bool{o.Created, o.Updated, o.Resolved, o.Unresolved} {
		if done {
			n++
		}
	}
	return n
}

// Reconciler publishes report bodies identified by a header sentinel.
type Reconciler struct {
	client core.DiscussionClient
	header string
	logger *slog.Logger
}

func NewReconciler(client core.DiscussionClient, header string, logger *slog.Logger) *Reconciler {
	return &Reconciler{client: client, header: header, logger: logger}
}

// Reconcile makes the owned thread carry body. A thread is owned when its
// first note starts with the header; the first owned thread wins.
//
//   - owned, resolved and mustRemainOpen: the note is unresolved
//   - owned with a different body: the body is replaced, and the note is
//     resolved when it was open and the report passes
//   - owned with an identical body: nothing else changes
//   - no owned thread: a new thread is created
//
// Any failed platform call aborts the reconciliation.
func (r *Reconciler) Reconcile(ctx context.Context, project string, iid int, body string, mustRemainOpen bool) (Outcome, error) {
	var out Outcome
	if !strings.HasPrefix(body, r.header) {
		return out, ErrMissingHeader
	}

	threads, err := r.client.ListThreads(ctx, project, iid)
	if err != nil {
		return out, fmt.Errorf("failed to list discussions: %w", err)
	}

	thread, note, found := r.findOwned(threads)
	if !found {
		if err := r.client.CreateThread(ctx, project, iid, body); err != nil {
			return out, fmt.Errorf("failed to create discussion: %w", err)
		}
		out.Created = true
		r.logger.InfoContext(ctx, "created report discussion", "project", project, "mr_iid", iid)
		return out, nil
	}

	out.ThreadID, out.NoteID = thread.ID, note.ID
	log := r.logger.With("project", project, "mr_iid", iid, "discussion_id", thread.ID, "note_id", note.ID)

	if note.Resolved && mustRemainOpen {
		if err := r.client.SetNoteResolved(ctx, project, iid, thread.ID, note.ID, false); err != nil {
			return out, fmt.Errorf("failed to unresolve discussion %s: %w", thread.ID, err)
		}
		out.Unresolved = true
		log.InfoContext(ctx, "unresolved report discussion")
	}

	if note.Body == body {
		log.DebugContext(ctx, "report discussion already up to date")
		return out, nil
	}

	if err := r.client.UpdateNote(ctx, project, iid, thread.ID, note.ID, body); err != nil {
		return out, fmt.Errorf("failed to update discussion %s: %w", thread.ID, err)
	}
	out.Updated = true
	log.InfoContext(ctx, "updated report discussion")

	if !note.Resolved && !mustRemainOpen {
		if err := r.client.SetNoteResolved(ctx, project, iid, thread.ID, note.ID, true); err != nil {
			return out, fmt.Errorf("failed to resolve discussion %s: %w", thread.ID, err)
		}
		out.Resolved = true
		log.InfoContext(ctx, "resolved report discussion")
	}
	return out, nil
}

func (r *Reconciler) findOwned(threads []core.Thread) (core.Thread, core.Note, bool) {
	for _, t := range threads {
		if len(t.Notes) == 0 {
			continue
		}
		if first := t.Notes[0]; strings.HasPrefix(first.Body, r.header) {
			return t, first, true
		}
	}
	return core.Thread{}, core.Note{}, false
}
