package aiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sevigo/rate-my-mr/internal/config"
)

// New returns the sender for the configured backend. Gateway senders get a
// fresh session bound to subject, so every run owns its token.
func New(ctx context.Context, cfg config.AIConfig, meta RunMetadata, subject string, logger *slog.Logger) (Sender, error) {
	switch cfg.Backend {
	case config.BackendLegacy:
		return NewLegacyClient(cfg, logger), nil
	case config.BackendGateway:
		session := NewSession(subject, cfg.TokenURL, cfg.Token, &http.Client{Timeout: cfg.TokenTimeout}, logger)
		return NewGatewayClient(cfg, meta, session, logger), nil
	case config.BackendOllama, config.BackendGemini:
		model, err := newLocalModel(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create local model: %w", err)
		}
		return NewLocalSender(model, cfg.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unsupported ai backend: %q", cfg.Backend)
	}
}
