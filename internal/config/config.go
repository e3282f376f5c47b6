package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/rate-my-mr/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Platform string        `mapstructure:"platform"`
	Server   ServerConfig  `mapstructure:"server"`
	Logging  logger.Config `mapstructure:"logging"`
	GitLab   GitLabConfig  `mapstructure:"gitlab"`
	GitHub   GitHubConfig  `mapstructure:"github"`
	AI       AIConfig      `mapstructure:"ai"`
	Scanner  ScannerConfig `mapstructure:"scanner"`
	Git      GitConfig     `mapstructure:"git"`
	Database DBConfig      `mapstructure:"database"`
	Rating   RatingConfig  `mapstructure:"rating"`
	Webhook  WebhookConfig `mapstructure:"webhook"`
}

type ServerConfig struct {
	Port       string `mapstructure:"port"`
	MaxWorkers int    `mapstructure:"max_workers"`
	QueueSize  int    `mapstructure:"queue_size"`
}

type GitLabConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
	// AuthorDomain builds an author address when the API hides the email.
	AuthorDomain string `mapstructure:"author_domain"`
}

type GitHubConfig struct {
	// Token is a personal or fine-grained token. When empty the app
	// credentials below are used.
	Token          string `mapstructure:"token"`
	AppID          int64  `mapstructure:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	StatusContext  string `mapstructure:"status_context"`
}

// AIConfig selects and tunes the external AI service.
type AIConfig struct {
	// Backend is one of legacy, gateway, ollama or gemini. Empty selects
	// gateway when GatewayHost is set and legacy otherwise.
	Backend      string        `mapstructure:"backend"`
	ServiceURL   string        `mapstructure:"service_url"`
	GatewayHost  string        `mapstructure:"gateway_host"`
	GatewayURL   string        `mapstructure:"gateway_url"`
	TokenURL     string        `mapstructure:"token_url"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	TokenTimeout time.Duration `mapstructure:"token_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	BaseDelay    time.Duration `mapstructure:"base_delay"`
	Model        string        `mapstructure:"model"`
	OllamaHost   string        `mapstructure:"ollama_host"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
}

type ScannerConfig struct {
	Binary  string        `mapstructure:"binary"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GitConfig struct {
	Binary   string `mapstructure:"binary"`
	WorkDir  string `mapstructure:"work_dir"`
	MinDepth int    `mapstructure:"min_depth"`
	Retries  int    `mapstructure:"retries"`
}

type DBConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RatingConfig holds the weights deducted per failing check.
type RatingConfig struct {
	TotalWeight       int `mapstructure:"total_weight"`
	MaxLOCWeight      int `mapstructure:"max_loc_weight"`
	LintDisableWeight int `mapstructure:"lint_disable_weight"`
	ComplexityWeight  int `mapstructure:"complexity_weight"`
	SecurityWeight    int `mapstructure:"security_weight"`
}

type WebhookConfig struct {
	Secret          string   `mapstructure:"secret"`
	IgnoredUsers    []string `mapstructure:"ignored_users"`
	AllowedCheckers []string `mapstructure:"allowed_checkers"`
}

// LoadConfig reads config.yaml and RMM_ prefixed environment variables, sets
// defaults and validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/rate-my-mr")

	v.SetEnvPrefix("RMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("platform", "gitlab")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_workers", 2)
	v.SetDefault("server.queue_size", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("gitlab.url", "https://gitlab.com")
	v.SetDefault("gitlab.token", "")
	v.SetDefault("gitlab.author_domain", "example.com")

	v.SetDefault("github.token", "")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.installation_id", 0)
	v.SetDefault("github.private_key_path", "keys/rate-my-mr.private-key.pem")
	v.SetDefault("github.status_context", "rate-my-mr")

	v.SetDefault("ai.backend", "")
	v.SetDefault("ai.service_url", "http://10.31.88.29:6006/generate")
	v.SetDefault("ai.gateway_host", "")
	v.SetDefault("ai.gateway_url", "")
	v.SetDefault("ai.token_url", "")
	v.SetDefault("ai.token", "")
	v.SetDefault("ai.timeout", 120*time.Second)
	v.SetDefault("ai.token_timeout", 30*time.Second)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.base_delay", 2*time.Second)
	v.SetDefault("ai.model", "gemma3:latest")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.gemini_api_key", "")

	v.SetDefault("scanner.binary", "bandit")
	v.SetDefault("scanner.timeout", 2*time.Minute)

	v.SetDefault("git.binary", "git")
	v.SetDefault("git.work_dir", "")
	v.SetDefault("git.min_depth", 100)
	v.SetDefault("git.retries", 3)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "rate_my_mr")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "rate_my_mr")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("rating.total_weight", 5)
	v.SetDefault("rating.max_loc_weight", 1)
	v.SetDefault("rating.lint_disable_weight", 1)
	v.SetDefault("rating.complexity_weight", 2)
	v.SetDefault("rating.security_weight", 1)

	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.ignored_users", []string{"jenkins"})
	v.SetDefault("webhook.allowed_checkers", []string{"mrproper-clang-format", "mrproper-message", "rate-my-mr"})
}

// applyDerived fills the gateway endpoints from the gateway host and picks
// the backend when none was configured.
func (c *Config) applyDerived() {
	if c.AI.GatewayHost != "" {
		if c.AI.GatewayURL == "" {
			c.AI.GatewayURL = fmt.Sprintf("http://%s:8000/api/rate-my-mr", c.AI.GatewayHost)
		}
		if c.AI.TokenURL == "" {
			c.AI.TokenURL = fmt.Sprintf("http://%s:8000/api/token", c.AI.GatewayHost)
		}
	}
	if c.AI.Backend == "" {
		if c.AI.GatewayURL != "" {
			c.AI.Backend = BackendGateway
		} else {
			c.AI.Backend = BackendLegacy
		}
	}
}

const (
	PlatformGitLab = "gitlab"
	PlatformGitHub = "github"
)

const (
	BackendLegacy  = "legacy"
	BackendGateway = "gateway"
	BackendOllama  = "ollama"
	BackendGemini  = "gemini"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformGitLab:
		if c.GitLab.URL == "" {
			return fmt.Errorf("gitlab.url must be set")
		}
	case PlatformGitHub:
		if c.GitHub.Token == "" && (c.GitHub.AppID == 0 || c.GitHub.InstallationID == 0) {
			return fmt.Errorf("github.token or github.app_id and github.installation_id must be set")
		}
	default:
		return fmt.Errorf("unsupported platform %q", c.Platform)
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if err := c.Rating.Validate(); err != nil {
		return err
	}
	if c.Server.MaxWorkers < 1 {
		return fmt.Errorf("server.max_workers must be at least 1, got %d", c.Server.MaxWorkers)
	}
	return nil
}

// Validate checks the AI backend settings.
func (c AIConfig) Validate() error {
	switch c.Backend {
	case BackendLegacy:
		if c.ServiceURL == "" {
			return fmt.Errorf("ai.service_url must be set for the legacy backend")
		}
	case BackendGateway:
		if c.GatewayURL == "" {
			return fmt.Errorf("ai.gateway_url or ai.gateway_host must be set for the gateway backend")
		}
		if c.Token == "" && c.TokenURL == "" {
			return fmt.Errorf("ai.token or ai.token_url must be set for the gateway backend")
		}
	case BackendOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("ai.ollama_host must be set for the ollama backend")
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("ai.gemini_api_key must be set for the gemini backend")
		}
	default:
		return fmt.Errorf("unsupported ai.backend %q", c.Backend)
	}
	if c.MaxRetries < 1 || c.MaxRetries > 10 {
		return fmt.Errorf("ai.max_retries must be between 1 and 10, got %d", c.MaxRetries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}
	return nil
}

// Validate checks the rating weights.
func (c RatingConfig) Validate() error {
	if c.TotalWeight <= 0 {
		return fmt.Errorf("rating.total_weight must be positive, got %d", c.TotalWeight)
	}
	for name, w := range map[string]int{
		"max_loc_weight":      c.MaxLOCWeight,
		"lint_disable_weight": c.LintDisableWeight,
		"complexity_weight":   c.ComplexityWeight,
		"security_weight":     c.SecurityWeight,
	} {
		if w < 0 {
			return fmt.Errorf("rating.%s must not be negative, got %d", name, w)
		}
	}
	return nil
}
