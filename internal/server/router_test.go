package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/jobs"
	"github.com/sevigo/rate-my-mr/internal/telemetry"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	events []*core.MergeRequestEvent
	err    error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, e *core.MergeRequestEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, e)
	return nil
}

func mergePayload(user string, iid int) string {
	return fmt.Sprintf(`{
  "object_kind": "merge_request",
  "event_type": "merge_request",
  "user": {"username": %q, "name": "Dev"},
  "project": {"id": 42, "path_with_namespace": "group/sub/app"},
  "object_attributes": {"iid": %d, "action": "update", "source_branch": "feature", "target_branch": "main"}
}`, user, iid)
}

func newTestRouter(t *testing.T, d core.JobDispatcher, secret string) http.Handler {
	t.Helper()
	cfg := &config.Config{Webhook: config.WebhookConfig{
		Secret:          secret,
		IgnoredUsers:    []string{"jenkins"},
		AllowedCheckers: []string{"mrproper-clang-format", "mrproper-message", "rate-my-mr"},
	}}
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(cfg, d, telemetry.New(reg), reg, logger)
}

func post(t *testing.T, h http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var mrHook = map[string]string{"X-Gitlab-Event": "Merge Request Hook"}

func TestWebhook_DispatchesMergeRequest(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestRouter(t, d, "")

	rec := post(t, h, "/mr-proper/mrproper-message+rate-my-mr", mergePayload("alice", 12), mrHook)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, d.events, 1)
	assert.Equal(t, "group/sub/app", d.events[0].Project)
	assert.Equal(t, 12, d.events[0].MRIID)
	assert.Equal(t, "alice", d.events[0].TriggeredBy)
	assert.NotEmpty(t, d.events[0].RequestID)
}

func TestWebhook_WithoutEventHeaderUsesObjectKind(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestRouter(t, d, "")

	rec := post(t, h, "/mr-proper/rate-my-mr", mergePayload("alice", 3), nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, d.events, 1)
}

func TestWebhook_UnknownCheckerIsForbidden(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestRouter(t, d, "")

	rec := post(t, h, "/mr-proper/rate-my-mr+rm-rf", mergePayload("alice", 1), mrHook)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, d.events)
}

func TestWebhook_IgnoredCases(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		headers map[string]string
	}{
		{"ignored user", "/mr-proper/rate-my-mr", mergePayload("jenkins", 1), mrHook},
		{"push event", "/mr-proper/rate-my-mr", `{"object_kind": "push"}`, nil},
		{"other event header", "/mr-proper/rate-my-mr", `{"object_kind": "note"}`, map[string]string{"X-Gitlab-Event": "Note Hook"}},
		{"rating not requested", "/mr-proper/mrproper-message", mergePayload("alice", 1), mrHook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			rec := post(t, newTestRouter(t, d, ""), tt.path, tt.body, tt.headers)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "OK!", rec.Body.String())
			assert.Empty(t, d.events)
		})
	}
}

func TestWebhook_Secret(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestRouter(t, d, "s3cret")

	rec := post(t, h, "/mr-proper/rate-my-mr", mergePayload("alice", 1), mrHook)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, h, "/mr-proper/rate-my-mr", mergePayload("alice", 1),
		map[string]string{"X-Gitlab-Event": "Merge Request Hook", "X-Gitlab-Token": "s3cret"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, d.events, 1)
}

func TestWebhook_MalformedPayload(t *testing.T) {
	rec := post(t, newTestRouter(t, &fakeDispatcher{}, ""), "/mr-proper/rate-my-mr", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_DispatcherUnavailable(t *testing.T) {
	for _, sentinel := range []error{jobs.ErrQueueFull, jobs.ErrStopped} {
		d := &fakeDispatcher{err: fmt.Errorf("%w: busy", sentinel)}
		rec := post(t, newTestRouter(t, d, ""), "/mr-proper/rate-my-mr", mergePayload("alice", 1), mrHook)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, sentinel.Error())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, &fakeDispatcher{}, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	post(t, h, "/mr-proper/rate-my-mr", mergePayload("jenkins", 1), mrHook)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rate_my_mr_webhooks_total{disposition="ignored"} 1`)
}
