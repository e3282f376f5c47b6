package llm

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/rate-my-mr/internal/aiclient"
	"github.com/sevigo/rate-my-mr/mocks"
)

var testData = PromptData{Project: "group/app", Title: "Add parser", SourceBranch: "feature", TargetBranch: "main"}

func newTestReviewer(t *testing.T, backend string) *Reviewer {
	t.Helper()
	pm, err := NewPromptManager()
	require.NoError(t, err)
	return NewReviewer(pm, backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPromptManager_FallsBackToDefault(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	summary, err := pm.Render(SummaryPrompt, "gateway", testData)
	require.NoError(t, err)
	assert.Contains(t, summary, "You are a summarizer")
	assert.Contains(t, summary, `"Add parser" in group/app (feature into main)`)

	review, err := pm.Render(ReviewPrompt, "ollama", testData)
	require.NoError(t, err)
	assert.Contains(t, review, "List concrete findings only")

	_, err = pm.Render("unknown", DefaultProvider, testData)
	require.Error(t, err)
}

func TestReviewer_Summarize(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req aiclient.Request) (*aiclient.Envelope, error) {
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "+added line\n", req.Messages[1].Content)
			return &aiclient.Envelope{Content: []aiclient.ContentBlock{{Type: "text", Text: "  A summary.\n"}}}, nil
		})

	res := newTestReviewer(t, "legacy").Summarize(context.Background(), sender, "+added line\n", testData)
	require.True(t, res.OK)
	assert.Equal(t, "A summary.", res.Value)
}

func TestReviewer_FailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	reqErr := &aiclient.RequestError{Status: 503, Attempts: 3, Err: aiclient.ErrAttemptsExhausted}
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil, reqErr)

	res := newTestReviewer(t, "").Review(context.Background(), sender, "+x\n", testData)
	assert.False(t, res.OK)
	assert.Empty(t, res.Value)
	assert.Equal(t, reqErr.Error(), res.Reason)
}

func TestReviewer_EmptyResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(&aiclient.Envelope{}, nil)

	res := newTestReviewer(t, "").Review(context.Background(), sender, "+x\n", testData)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "content")
}

func TestReviewer_EmptyDiffSkipsRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	res := newTestReviewer(t, "").Summarize(context.Background(), sender, "  \n", testData)
	assert.False(t, res.OK)
	assert.Equal(t, "diff is empty", res.Reason)
}
