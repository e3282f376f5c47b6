package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/gitutil"
	"github.com/sevigo/rate-my-mr/internal/wire"
)

var dryRun bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <project> <mr-iid> | analyze <mr-url>",
	Short: "Rate one merge request and update its report thread",
	Long: `Rate one merge request end to end, the same way the webhook service does.

With --dry-run the report is rendered in the terminal and the merge request
is left untouched.

Examples:
  rate-my-mr analyze group/app 42
  rate-my-mr analyze --dry-run https://gitlab.example.com/group/app/-/merge_requests/42`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	analyzeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the report instead of posting it")
	rootCmd.AddCommand(analyzeCmd)
}

// parseTarget accepts either a merge request URL or a project and an iid.
func parseTarget(args []string) (string, int, error) {
	if len(args) == 1 {
		return gitutil.ParseMergeRequestURL(args[0])
	}
	iid, err := strconv.Atoi(args[1])
	if err != nil || iid <= 0 {
		return "", 0, fmt.Errorf("invalid merge request iid %q", args[1])
	}
	return args[0], iid, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	project, iid, err := parseTarget(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	titleColor.Printf("rate-my-mr: %s!%d\n", project, iid)

	job, cleanup, err := wire.InitializeRateJob(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w\n\nTip: check config.yaml and the RMM_ environment variables", err)
	}
	defer cleanup()

	res, err := job.Rate(ctx, &core.MergeRequestEvent{
		Project:     project,
		MRIID:       iid,
		TriggeredBy: "cli",
		DryRun:      dryRun,
	})
	if err != nil {
		errorColor.Println("Rating failed")
		return err
	}

	if dryRun {
		fmt.Print(renderMarkdown(res.Body))
	}

	verdict := successColor
	if !res.Passed {
		verdict = warnColor
	}
	verdict.Printf("Score %d/%d (passed: %t)\n", res.Score, res.Total, res.Passed)
	switch {
	case dryRun:
		dimColor.Println("Dry run: the merge request was not modified")
	case res.Outcome.Mutations() == 0:
		dimColor.Println("Report thread already up to date")
	default:
		dimColor.Printf("Report thread updated (created: %t, updated: %t, resolved: %t, unresolved: %t)\n",
			res.Outcome.Created, res.Outcome.Updated, res.Outcome.Resolved, res.Outcome.Unresolved)
	}
	if verbose {
		dimColor.Printf("request %s, diff strategy %s, took %s\n", res.RequestID, res.Strategy, time.Since(start).Round(time.Millisecond))
	}
	return nil
}
