package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAIConfig() AIConfig {
	return AIConfig{
		Backend:    BackendLegacy,
		ServiceURL: "http://localhost:6006/generate",
		Timeout:    time.Minute,
		MaxRetries: 3,
	}
}

func TestAIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AIConfig)
		wantErr bool
	}{
		{name: "Valid legacy config", mutate: func(*AIConfig) {}},
		{
			name: "Gateway without token source",
			mutate: func(c *AIConfig) {
				c.Backend = BackendGateway
				c.GatewayURL = "http://bfa:8000/api/rate-my-mr"
			},
			wantErr: true,
		},
		{
			name: "Gateway with preconfigured token",
			mutate: func(c *AIConfig) {
				c.Backend = BackendGateway
				c.GatewayURL = "http://bfa:8000/api/rate-my-mr"
				c.Token = "secret"
			},
		},
		{name: "Unknown backend", mutate: func(c *AIConfig) { c.Backend = "openai" }, wantErr: true},
		{name: "Zero retries", mutate: func(c *AIConfig) { c.MaxRetries = 0 }, wantErr: true},
		{name: "Too many retries", mutate: func(c *AIConfig) { c.MaxRetries = 11 }, wantErr: true},
		{name: "Gemini without key", mutate: func(c *AIConfig) { c.Backend = BackendGemini }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAIConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRatingConfig_Validate(t *testing.T) {
	assert.NoError(t, RatingConfig{TotalWeight: 5, MaxLOCWeight: 1, LintDisableWeight: 1, ComplexityWeight: 2, SecurityWeight: 1}.Validate())
	assert.Error(t, RatingConfig{TotalWeight: 0}.Validate())
	assert.Error(t, RatingConfig{TotalWeight: 5, SecurityWeight: -1}.Validate())
}

func TestApplyDerived(t *testing.T) {
	cfg := &Config{AI: AIConfig{GatewayHost: "bfa.internal"}}
	cfg.applyDerived()

	assert.Equal(t, "http://bfa.internal:8000/api/rate-my-mr", cfg.AI.GatewayURL)
	assert.Equal(t, "http://bfa.internal:8000/api/token", cfg.AI.TokenURL)
	assert.Equal(t, BackendGateway, cfg.AI.Backend)

	legacy := &Config{}
	legacy.applyDerived()
	assert.Equal(t, BackendLegacy, legacy.AI.Backend)
}

func TestLoadRepoConfig(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadRepoConfig(t.TempDir())
		require.ErrorIs(t, err, ErrConfigNotFound)
		require.NotNil(t, cfg)
		assert.Equal(t, 500, cfg.LOC.MaxLines)
		assert.True(t, cfg.Features.SecurityScan)
	})

	t.Run("partial file is merged over defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := "features:\n  security_scan: false\nloc:\n  max_lines: 800\nrating:\n  pass_score: 4\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFile), []byte(content), 0o600))

		cfg, err := LoadRepoConfig(dir)
		require.NoError(t, err)
		assert.False(t, cfg.Features.SecurityScan)
		assert.True(t, cfg.Features.AISummary)
		assert.Equal(t, 800, cfg.LOC.MaxLines)
		assert.Equal(t, 300, cfg.LOC.WarningThreshold)
		assert.Equal(t, 4, cfg.Rating.PassScore)
		assert.Equal(t, 10, cfg.Complexity.MaxAverage)
	})

	t.Run("invalid yaml falls back to defaults", func(t *testing.T) {
		cfg, err := ParseRepoConfig([]byte("features: [unclosed"))
		require.ErrorIs(t, err, ErrConfigParsing)
		require.NotNil(t, cfg)
		assert.Equal(t, 3, cfg.Rating.PassScore)
	})
}
