package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/rate-my-mr/internal/aiclient"
	"github.com/sevigo/rate-my-mr/internal/core"
)

// Reviewer produces the AI summary and initial review of a diff.
type Reviewer struct {
	prompts  *PromptManager
	provider ModelProvider
	logger   *slog.Logger
}

// NewReviewer creates a Reviewer. backend picks provider specific prompts
// when they exist.
func NewReviewer(prompts *PromptManager, backend string, logger *slog.Logger) *Reviewer {
	provider := ModelProvider(backend)
	if provider == "" {
		provider = DefaultProvider
	}
	return &Reviewer{prompts: prompts, provider: provider, logger: logger}
}

// Summarize asks the AI service for a concise summary of the diff.
func (r *Reviewer) Summarize(ctx context.Context, sender aiclient.Sender, diff string, data PromptData) core.Result[string] {
	return r.generate(ctx, sender, SummaryPrompt, diff, data)
}

// Review asks the AI service for an initial code review of the diff.
func (r *Reviewer) Review(ctx context.Context, sender aiclient.Sender, diff string, data PromptData) core.Result[string] {
	return r.generate(ctx, sender, ReviewPrompt, diff, data)
}

func (r *Reviewer) generate(ctx context.Context, sender aiclient.Sender, key PromptKey, diff string, data PromptData) core.Result[string] {
	if strings.TrimSpace(diff) == "" {
		return core.Failed[string]("diff is empty")
	}

	system, err := r.prompts.Render(key, r.provider, data)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to render prompt", "prompt", key, "error", err)
		return core.Failed[string](fmt.Sprintf("failed to render %s prompt: %v", key, err))
	}

	env, err := sender.Send(ctx, aiclient.NewRequest(system, diff))
	if err != nil {
		r.logger.WarnContext(ctx, "ai request failed", "prompt", key, "error", err)
		return core.Failed[string](err.Error())
	}

	text, err := env.Text()
	if err != nil {
		r.logger.WarnContext(ctx, "ai response has no text", "prompt", key, "error", err)
		return core.Failed[string](err.Error())
	}
	return core.Succeeded(strings.TrimSpace(text))
}
