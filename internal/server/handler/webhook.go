// Package handler provides the HTTP handlers of the rating service.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/jobs"
	"github.com/sevigo/rate-my-mr/internal/telemetry"
)

// RateChecker is the checker name that triggers a rating.
const RateChecker = "rate-my-mr"

const maxPayloadBytes = 5 << 20

// WebhookHandler turns GitLab merge request hooks into queued rating jobs.
type WebhookHandler struct {
	cfg        config.WebhookConfig
	dispatcher core.JobDispatcher
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg config.WebhookConfig, dispatcher core.JobDispatcher, metrics *telemetry.Metrics, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handle serves POST /mr-proper/{checkers}, where checkers is a
// "+"-separated list that must only name allowed checkers.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	checkers := strings.Split(chi.URLParam(r, "checkers"), "+")
	for _, c := range checkers {
		if !slices.Contains(h.cfg.AllowedCheckers, c) {
			h.logger.Warn("rejecting webhook for unknown checker", "checker", c)
			h.metrics.RecordWebhook("rejected")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	if h.cfg.Secret != "" && r.Header.Get("X-Gitlab-Token") != h.cfg.Secret {
		h.logger.Warn("rejecting webhook with invalid token")
		h.metrics.RecordWebhook("rejected")
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "Could not read body", http.StatusBadRequest)
		return
	}

	event, err := h.parse(r, payload)
	if err != nil {
		if errors.Is(err, core.ErrIgnoredEvent) {
			h.ignore(w, err.Error())
			return
		}
		h.logger.Error("could not parse webhook", "error", err)
		h.metrics.RecordWebhook("rejected")
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	if !slices.Contains(checkers, RateChecker) {
		h.ignore(w, fmt.Sprintf("no rating requested for %s (checkers: %s)", event, strings.Join(checkers, ",")))
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		h.logger.Error("failed to dispatch rating job", "error", err, "mr", event.String())
		h.metrics.RecordWebhook("dropped")
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "Failed to start rating job", status)
		return
	}

	h.logger.Info("rating job dispatched", "mr", event.String(), "request_id", event.RequestID, "user", event.TriggeredBy)
	h.metrics.RecordWebhook("accepted")
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "OK!")
}

func (h *WebhookHandler) ignore(w http.ResponseWriter, reason string) {
	h.logger.Info("ignoring webhook", "reason", reason)
	h.metrics.RecordWebhook("ignored")
	_, _ = fmt.Fprint(w, "OK!")
}

// parse decodes a merge request hook. Hooks without the event header are
// recognized by their object_kind.
func (h *WebhookHandler) parse(r *http.Request, payload []byte) (*core.MergeRequestEvent, error) {
	eventType := gitlab.HookEventType(r)
	if eventType == "" {
		var probe struct {
			ObjectKind string `json:"object_kind"`
		}
		if err := json.Unmarshal(payload, &probe); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		if probe.ObjectKind != "merge_request" {
			return nil, fmt.Errorf("%w: object kind %q", core.ErrIgnoredEvent, probe.ObjectKind)
		}
		eventType = gitlab.EventTypeMergeRequest
	}
	if eventType != gitlab.EventTypeMergeRequest {
		return nil, fmt.Errorf("%w: event type %q", core.ErrIgnoredEvent, eventType)
	}

	parsed, err := gitlab.ParseWebhook(eventType, payload)
	if err != nil {
		return nil, err
	}
	mergeEvent, ok := parsed.(*gitlab.MergeEvent)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected payload %T", core.ErrIgnoredEvent, parsed)
	}
	return h.toEvent(mergeEvent)
}

func (h *WebhookHandler) toEvent(e *gitlab.MergeEvent) (*core.MergeRequestEvent, error) {
	var user string
	if e.User != nil {
		user = e.User.Username
	}
	if slices.Contains(h.cfg.IgnoredUsers, user) {
		return nil, fmt.Errorf("%w: update by %s", core.ErrIgnoredEvent, user)
	}

	event := &core.MergeRequestEvent{
		Project:     e.Project.PathWithNamespace,
		MRIID:       int(e.ObjectAttributes.IID),
		RequestID:   uuid.NewString(),
		TriggeredBy: user,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}
