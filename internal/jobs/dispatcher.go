// Package jobs runs merge request ratings, either queued from webhooks or
// directly from the command line.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/telemetry"
)

var (
	// ErrQueueFull is returned by Dispatch when no slot is left in the queue.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Dispatch once Stop has been called.
	ErrStopped = errors.New("dispatcher is stopped")
)

// Dispatcher implements core.JobDispatcher with a fixed pool of workers
// draining a bounded queue of merge request events.
type Dispatcher struct {
	job        core.Job
	jobQueue   chan *core.MergeRequestEvent
	maxWorkers int
	wg         sync.WaitGroup
	stopOnce   sync.Once
	// mu guards stopped and the close of jobQueue.
	mu      sync.RWMutex
	stopped bool
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewDispatcher starts maxWorkers workers. Non-positive sizes default to one
// worker and a queue of 100 events.
func NewDispatcher(job core.Job, maxWorkers, queueSize int, metrics *telemetry.Metrics, logger *slog.Logger) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	d := &Dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.MergeRequestEvent, queueSize),
		metrics:    metrics,
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *Dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

func (d *Dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting rating worker", "id", workerID)

	for event := range d.jobQueue {
		d.metrics.QueueAdd(-1)
		d.processEvent(workerID, event)
	}

	d.logger.Info("shutting down rating worker", "id", workerID)
}

// processEvent runs one job. Each job gets its own context so a shutdown
// lets queued runs finish.
func (d *Dispatcher) processEvent(workerID int, event *core.MergeRequestEvent) {
	d.logger.Info("worker processing job", "worker_id", workerID, "mr", event.String(), "request_id", event.RequestID)

	if err := d.job.Run(context.Background(), event); err != nil {
		d.logger.Error("rating job failed",
			"mr", event.String(),
			"request_id", event.RequestID,
			"error", err,
		)
	}
}

// Dispatch queues an event without blocking.
func (d *Dispatcher) Dispatch(_ context.Context, event *core.MergeRequestEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("refusing to queue event: %w", err)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return fmt.Errorf("%w: cannot accept %s", ErrStopped, event)
	}
	d.logger.Info("queuing rating job", "mr", event.String(), "request_id", event.RequestID)

	select {
	case d.jobQueue <- event:
		d.metrics.QueueAdd(1)
		return nil
	default:
		return fmt.Errorf("%w: cannot accept %s", ErrQueueFull, event)
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("stopping dispatcher and waiting for jobs to finish")
		d.mu.Lock()
		d.stopped = true
		close(d.jobQueue)
		d.mu.Unlock()
		d.wg.Wait()
		d.logger.Info("all rating jobs have finished")
	})
}
