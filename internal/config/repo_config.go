package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/rate-my-mr/internal/core"
)

// RepoConfigFile is the name of the per-repository settings file.
const RepoConfigFile = ".rate-my-mr.yaml"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

// LoadRepoConfig loads .rate-my-mr.yaml from a repository path and merges it
// over the defaults. Keys missing from the file keep their default values.
// The returned config is always usable, even together with an error.
func LoadRepoConfig(repoPath string) (*core.RepoConfig, error) {
	configPath := filepath.Join(repoPath, RepoConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return core.DefaultRepoConfig(), ErrConfigNotFound
		}
		return core.DefaultRepoConfig(), fmt.Errorf("failed to read %s: %w", RepoConfigFile, err)
	}

	return ParseRepoConfig(data)
}

// ParseRepoConfig merges raw YAML over the default repository config.
func ParseRepoConfig(data []byte) (*core.RepoConfig, error) {
	cfg := core.DefaultRepoConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return core.DefaultRepoConfig(), fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	return cfg, nil
}
