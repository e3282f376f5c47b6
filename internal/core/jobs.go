// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
)

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. It decouples the webhook
// handler from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a MergeRequestEvent and queues it for processing.
	// It returns an error if the job cannot be queued, for example when the
	// queue is full.
	Dispatch(ctx context.Context, event *MergeRequestEvent) error
}

// Job represents a single, executable unit of work triggered by a
// MergeRequestEvent, such as rating a merge request.
type Job interface {
	Run(ctx context.Context, event *MergeRequestEvent) error
}
