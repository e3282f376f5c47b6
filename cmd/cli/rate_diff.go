package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/report"
	"github.com/sevigo/rate-my-mr/internal/wire"
)

var (
	repoConfigPath string
	printReport    bool
)

var rateDiffCmd = &cobra.Command{
	Use:   "rate-diff <file|->",
	Short: "Rate a unified diff file offline",
	Long: `Compute the metrics, the security scan and the rating of a unified diff
without contacting the review platform or the AI service.

Examples:
  git diff main...HEAD > change.diff && rate-my-mr rate-diff change.diff
  git diff main...HEAD | rate-my-mr rate-diff --report -`,
	Args: cobra.ExactArgs(1),
	RunE: runRateDiff,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rateDiffCmd.Flags().StringVar(&repoConfigPath, "repo-config", "", "Path to a "+config.RepoConfigFile+" file")
	rateDiffCmd.Flags().BoolVar(&printReport, "report", false, "Print the full Markdown report")
	rootCmd.AddCommand(rateDiffCmd)
}

func readDiff(name string, stdin io.Reader) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read diff: %w", err)
	}
	return string(data), nil
}

// loadRepoSettings reads the optional settings file. AI sections are skipped
// because the offline mode never calls the AI service.
func loadRepoSettings(path string) (*core.RepoConfig, error) {
	repo := core.DefaultRepoConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read repository config: %w", err)
		}
		if repo, err = config.ParseRepoConfig(data); err != nil {
			return nil, err
		}
	}
	repo.Features.AISummary = false
	repo.Features.AICodeReview = false
	return repo, nil
}

func runRateDiff(cmd *cobra.Command, args []string) error {
	raw, err := readDiff(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	repo, err := loadRepoSettings(repoConfigPath)
	if err != nil {
		return err
	}

	analyzer, err := wire.InitializeAnalyzer()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	analysis := analyzer.Analyze(cmd.Context(), raw, repo)

	for name, reason := range map[string]string{
		"lines of code": analysis.Metrics.LOC.Reason,
		"complexity":    analysis.Metrics.Complexity.Reason,
		"lint":          analysis.Metrics.Lint.Reason,
	} {
		if reason != "" {
			warnColor.Printf("%s: %s\n", name, reason)
		}
	}
	if repo.Features.SecurityScan && !analysis.Security.OK {
		warnColor.Printf("security scan: %s\n", analysis.Security.Reason)
	}

	if printReport {
		fmt.Print(renderMarkdown(report.Render(report.Input{
			LOC:        analysis.Metrics.LOC,
			Lint:       analysis.Metrics.Lint,
			Complexity: analysis.Metrics.Complexity,
			Security:   analysis.Security,
			Rating:     analysis.Rating,
			Settings:   repo,
		})))
	}
	printRating(analysis.Rating)
	return nil
}
