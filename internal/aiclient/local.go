package aiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/rate-my-mr/internal/config"
)

// LocalSender runs prompts against a goframe model. It makes a single
// attempt; the model client owns its own transport retries.
type LocalSender struct {
	model   llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// NewLocalSender wraps an existing model.
func NewLocalSender(model llms.Model, timeout time.Duration, logger *slog.Logger) *LocalSender {
	return &LocalSender{model: model, timeout: timeout, logger: logger}
}

func (l *LocalSender) Send(ctx context.Context, req Request) (*Envelope, error) {
	text, err := l.generateWithTimeout(ctx, req.Prompt())
	if err != nil {
		return nil, &RequestError{Attempts: 1, Err: err}
	}
	return &Envelope{Content: []ContentBlock{{Type: "text", Text: text}}}, nil
}

// generateWithTimeout wraps generation with a hard timeout.
func (l *LocalSender) generateWithTimeout(ctx context.Context, prompt string) (string, error) {
	if l.timeout <= 0 {
		return l.model.Call(ctx, prompt)
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		resp string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := l.model.Call(ctx, prompt)
		select {
		case resultCh <- result{resp, err}:
		case <-ctx.Done():
		}
	}()

	select {
	case res := <-resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newLocalModel(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (llms.Model, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		logger.Info("using gemini ai backend", "model", cfg.Model)
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini backend requires ai.gemini_api_key")
		}
		return gemini.New(ctx,
			gemini.WithModel(cfg.Model),
			gemini.WithAPIKey(cfg.GeminiAPIKey),
		)
	case config.BackendOllama:
		logger.Info("using ollama ai backend", "model", cfg.Model, "host", cfg.OllamaHost)
		return ollama.New(
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported local backend: %s", cfg.Backend)
	}
}
