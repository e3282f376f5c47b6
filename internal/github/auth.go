package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/rate-my-mr/internal/config"
)

// CreateInstallationClient creates a client authenticated as the configured
// app installation. It returns the client and the raw installation token.
func CreateInstallationClient(ctx context.Context, cfg config.GitHubConfig, logger *slog.Logger) (Client, string, error) {
	logger.Info("Creating GitHub installation client", "installation_id", cfg.InstallationID)

	privateKey, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read private key from %s: %w", cfg.PrivateKeyPath, err)
	}

	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.AppID, privateKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, cfg.InstallationID, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create installation token for installation ID %d: %w", cfg.InstallationID, err)
	}
	if token.GetToken() == "" {
		return nil, "", fmt.Errorf("received an empty installation token")
	}
	logger.Info("Successfully created installation token", "installation_id", cfg.InstallationID, "expires_at", token.GetExpiresAt())

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.GetToken()})
	tc := oauth2.NewClient(ctx, ts)

	return NewGitHubClient(github.NewClient(tc), logger), token.GetToken(), nil
}

// NewPlatformFromConfig authenticates with a token when one is configured and
// as an app installation otherwise.
func NewPlatformFromConfig(ctx context.Context, cfg config.GitHubConfig, logger *slog.Logger) (*Platform, error) {
	if cfg.Token != "" {
		return NewPlatform(NewPATClient(ctx, cfg.Token, logger), cfg.Token, cfg.StatusContext, logger), nil
	}
	client, token, err := CreateInstallationClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewPlatform(client, token, cfg.StatusContext, logger), nil
}
