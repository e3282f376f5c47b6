// Package telemetry exposes the Prometheus collectors of the rating service.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rate_my_mr"

// Run outcomes used as the "outcome" label.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing,
// which keeps the CLI free of a registry.
type Metrics struct {
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	score       prometheus.Histogram
	aiRequests  *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	webhooks    *prometheus.CounterVec
}

// New registers the collectors with reg, falling back to the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed rating runs by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a rating run from fetch to reconciliation",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		score: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Final score of rated merge requests",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		aiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "AI summary and review requests by kind and result",
		}, []string{"kind", "result"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Merge request events waiting for a worker",
		}),
		webhooks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Received webhook deliveries by disposition",
		}, []string{"disposition"}),
	}
}

// RecordRun records the outcome, duration and, unless the run errored, the score.
func (m *Metrics) RecordRun(outcome string, d time.Duration, score int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(d.Seconds())
	if outcome != OutcomeError {
		m.score.Observe(float64(score))
	}
}

// RecordAIRequest counts one summary or review request.
func (m *Metrics) RecordAIRequest(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.aiRequests.WithLabelValues(kind, result).Inc()
}

// RecordWebhook counts a webhook delivery, e.g. "accepted", "ignored", "rejected".
func (m *Metrics) RecordWebhook(disposition string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(disposition).Inc()
}

// QueueAdd moves the queue depth gauge by delta.
func (m *Metrics) QueueAdd(delta float64) {
	if m == nil {
		return
	}
	m.queueDepth.Add(delta)
}
