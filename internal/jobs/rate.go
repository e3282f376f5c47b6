package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/rate-my-mr/internal/aiclient"
	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/discussion"
	"github.com/sevigo/rate-my-mr/internal/gitutil"
	"github.com/sevigo/rate-my-mr/internal/llm"
	"github.com/sevigo/rate-my-mr/internal/logger"
	"github.com/sevigo/rate-my-mr/internal/report"
	"github.com/sevigo/rate-my-mr/internal/storage"
	"github.com/sevigo/rate-my-mr/internal/telemetry"
)

// ErrDiffUnavailable is returned when no diff could be produced for the MR.
// A failure report has been posted in that case.
var ErrDiffUnavailable = errors.New("diff unavailable")

var errReconcile = errors.New("failed to reconcile report thread")

const unknownValue = "unknown"

// WorkingCopy prepares the local checkout of a merge request and diffs it.
type WorkingCopy interface {
	PrepareMergeRequest(ctx context.Context, remoteURL, headRef, targetBranch string, commits int) (string, func(), error)
	MergeRequestDiff(ctx context.Context, path, targetBranch string, commits []string) (string, gitutil.DiffStrategy, error)
}

// SenderFactory builds the AI sender of one run.
type SenderFactory func(ctx context.Context, meta aiclient.RunMetadata, subject string) (aiclient.Sender, error)

// NewSenderFactory returns a factory creating senders for the configured backend.
func NewSenderFactory(cfg config.AIConfig, logger *slog.Logger) SenderFactory {
	return func(ctx context.Context, meta aiclient.RunMetadata, subject string) (aiclient.Sender, error) {
		return aiclient.New(ctx, cfg, meta, subject, logger)
	}
}

// RunResult describes a finished run.
type RunResult struct {
	RequestID string
	Body      string
	Score     int
	Total     int
	Passed    bool
	Strategy  gitutil.DiffStrategy
	Outcome   discussion.Outcome
}

// RateJob rates one merge request end to end: fetch, analyze, ask the AI
// service, render and reconcile the report thread.
type RateJob struct {
	cfg        *config.Config
	platform   core.Platform
	git        WorkingCopy
	analyzer   *Analyzer
	reviewer   *llm.Reviewer
	senders    SenderFactory
	store      storage.RunStore
	reconciler *discussion.Reconciler
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// NewRateJob creates a RateJob. store and metrics may be nil.
func NewRateJob(
	cfg *config.Config,
	platform core.Platform,
	git WorkingCopy,
	analyzer *Analyzer,
	reviewer *llm.Reviewer,
	senders SenderFactory,
	store storage.RunStore,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *RateJob {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if platform == nil {
		panic("platform cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if store == nil {
		store = storage.NewNoopStore()
	}
	return &RateJob{
		cfg:        cfg,
		platform:   platform,
		git:        git,
		analyzer:   analyzer,
		reviewer:   reviewer,
		senders:    senders,
		store:      store,
		reconciler: discussion.NewReconciler(platform, report.Header, logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// Run implements core.Job.
func (j *RateJob) Run(ctx context.Context, event *core.MergeRequestEvent) error {
	_, err := j.Rate(ctx, event)
	return err
}

// Rate executes the pipeline. In dry-run mode the rendered body is returned
// and neither the thread nor the run history is touched.
func (j *RateJob) Rate(ctx context.Context, event *core.MergeRequestEvent) (*RunResult, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	if event.RequestID == "" {
		event.RequestID = uuid.NewString()
	}
	runLog := logger.ForRun(j.logger, event.RequestID, event.Project, event.MRIID)
	start := time.Now()

	res, err := j.rate(ctx, runLog, event)
	if err != nil {
		if !errors.Is(err, ErrDiffUnavailable) && !errors.Is(err, errReconcile) {
			j.postFailure(ctx, runLog, event, "Unexpected error during the assessment: "+err.Error())
		}
		j.metrics.RecordRun(telemetry.OutcomeError, time.Since(start), 0)
		runLog.ErrorContext(ctx, "rating failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	outcome := telemetry.OutcomeFailed
	if res.Passed {
		outcome = telemetry.OutcomePassed
	}
	j.metrics.RecordRun(outcome, time.Since(start), res.Score)
	runLog.InfoContext(ctx, "rating completed",
		"score", res.Score,
		"total", res.Total,
		"passed", res.Passed,
		"mutations", res.Outcome.Mutations(),
		"duration", time.Since(start),
	)
	return res, nil
}

func (j *RateJob) rate(ctx context.Context, logger *slog.Logger, event *core.MergeRequestEvent) (*RunResult, error) {
	logger.InfoContext(ctx, "starting rating job", "dry_run", event.DryRun, "triggered_by", event.TriggeredBy)

	mr, err := j.platform.GetMergeRequest(ctx, event.Project, event.MRIID)
	if err != nil {
		return nil, fmt.Errorf("failed to get merge request: %w", err)
	}
	commits, err := j.platform.ListCommits(ctx, event.Project, event.MRIID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	logger.InfoContext(ctx, "merge request fetched",
		"title", mr.Title,
		"source_branch", mr.SourceBranch,
		"target_branch", mr.TargetBranch,
		"commits", len(commits),
	)

	raw, strategy, wc, err := j.fetchDiff(ctx, mr, commits)
	if wc != nil {
		defer wc.run()
	}
	if err != nil {
		logger.ErrorContext(ctx, "could not produce diff", "error", err)
		j.postFailure(ctx, logger, event, "Unable to generate a diff for analysis. The MR may be empty or the repository could not be fetched.")
		return nil, fmt.Errorf("%w: %w", ErrDiffUnavailable, err)
	}
	logger.InfoContext(ctx, "diff ready", "strategy", strategy, "bytes", len(raw))

	repoCfg, err := config.LoadRepoConfig(wc.path)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "repository config loaded", "file", config.RepoConfigFile)
	case errors.Is(err, config.ErrConfigNotFound):
		logger.DebugContext(ctx, "no repository config, using defaults")
	default:
		logger.WarnContext(ctx, "invalid repository config, using defaults", "error", err)
	}

	analysis := j.analyzer.Analyze(ctx, raw, repoCfg)

	data := llm.PromptData{
		Project:      mr.Project,
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
	}
	summary, review := j.generateAI(ctx, logger, event, mr, commits, raw, data, repoCfg)

	endorsers, err := j.platform.ListEndorsers(ctx, event.Project, event.MRIID)
	if err != nil {
		logger.WarnContext(ctx, "failed to list endorsers", "error", err)
	} else if len(endorsers) > 0 {
		logger.InfoContext(ctx, "merge request endorsed", "endorsers", strings.Join(endorsers, ","))
	}

	body := report.Render(report.Input{
		Summary:       summary,
		Review:        review,
		LOC:           analysis.Metrics.LOC,
		Lint:          analysis.Metrics.Lint,
		Complexity:    analysis.Metrics.Complexity,
		Security:      analysis.Security,
		Rating:        analysis.Rating,
		Settings:      repoCfg,
		Endorsers:     endorsers,
		PreviousScore: j.previousScore(ctx, logger, event),
		RequestID:     event.RequestID,
	})

	res := &RunResult{
		RequestID: event.RequestID,
		Body:      body,
		Score:     analysis.Rating.Score,
		Total:     analysis.Rating.Total,
		Passed:    analysis.Rating.Passed(),
		Strategy:  strategy,
	}
	if event.DryRun {
		return res, nil
	}

	res.Outcome, err = j.reconciler.Reconcile(ctx, event.Project, event.MRIID, body, analysis.Rating.MustRemainOpen())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errReconcile, err)
	}

	run := &core.Run{
		Project: event.Project,
		MRIID:   event.MRIID,
		HeadSHA: mr.SHA,
		Score:   res.Score,
		Total:   res.Total,
		Passed:  res.Passed,
		Report:  body,
	}
	if err := j.store.SaveRun(ctx, run); err != nil {
		logger.WarnContext(ctx, "failed to store run", "error", err)
	}
	return res, nil
}

type workingCopy struct {
	path    string
	cleanup func()
}

func (w *workingCopy) run() {
	if w.cleanup != nil {
		w.cleanup()
	}
}

// fetchDiff prepares the working copy and diffs it. The returned working copy
// is non-nil whenever a checkout exists and must be cleaned up.
func (j *RateJob) fetchDiff(ctx context.Context, mr *core.MergeRequest, commits []core.Commit) (string, gitutil.DiffStrategy, *workingCopy, error) {
	remote, err := j.platform.CloneURL(mr.Project)
	if err != nil {
		return "", "", nil, err
	}
	path, cleanup, err := j.git.PrepareMergeRequest(ctx, remote, mr.HeadRef, mr.TargetBranch, len(commits))
	if err != nil {
		return "", "", nil, err
	}
	wc := &workingCopy{path: path, cleanup: cleanup}

	ids := make([]string, 0, len(commits))
	for _, c := range commits {
		ids = append(ids, c.ID)
	}
	raw, strategy, err := j.git.MergeRequestDiff(ctx, path, mr.TargetBranch, ids)
	if err != nil {
		return "", "", wc, err
	}
	if strings.TrimSpace(raw) == "" {
		return "", "", wc, errors.New("merge request has no changes")
	}
	return raw, strategy, wc, nil
}

func (j *RateJob) generateAI(
	ctx context.Context,
	logger *slog.Logger,
	event *core.MergeRequestEvent,
	mr *core.MergeRequest,
	commits []core.Commit,
	raw string,
	data llm.PromptData,
	repoCfg *core.RepoConfig,
) (core.Result[string], core.Result[string]) {
	summary := core.Failed[string]("AI summary disabled")
	review := core.Failed[string]("AI code review disabled")
	if !repoCfg.Features.AISummary && !repoCfg.Features.AICodeReview {
		return summary, review
	}

	meta := RunMetadata(mr, commits, j.cfg.GitLab.AuthorDomain)
	logger.InfoContext(ctx, "run metadata", "repo", meta.Repo, "branch", meta.Branch, "author", meta.Author, "commit", meta.Commit)

	sender, err := j.senders(ctx, meta, aiclient.SubjectKey(event.Project, event.MRIID))
	if err != nil {
		logger.WarnContext(ctx, "ai service unavailable", "error", err)
		reason := fmt.Sprintf("AI service unavailable: %v", err)
		return core.Failed[string](reason), core.Failed[string](reason)
	}

	if repoCfg.Features.AISummary {
		summary = j.reviewer.Summarize(ctx, sender, raw, data)
		j.metrics.RecordAIRequest("summary", summary.OK)
	}
	if repoCfg.Features.AICodeReview {
		review = j.reviewer.Review(ctx, sender, raw, data)
		j.metrics.RecordAIRequest("review", review.OK)
	}
	return summary, review
}

func (j *RateJob) previousScore(ctx context.Context, logger *slog.Logger, event *core.MergeRequestEvent) *int {
	run, err := j.store.LatestRun(ctx, event.Project, event.MRIID)
	if err != nil {
		if !errors.Is(err, storage.ErrNoRun) {
			logger.WarnContext(ctx, "failed to load previous run", "error", err)
		}
		return nil
	}
	return &run.Score
}

// postFailure posts the failure report unless the run is a dry run. Errors
// are only logged.
func (j *RateJob) postFailure(ctx context.Context, logger *slog.Logger, event *core.MergeRequestEvent, reason string) {
	if event.DryRun {
		return
	}
	body := report.RenderFailure(reason, event.RequestID)
	if _, err := j.reconciler.Reconcile(ctx, event.Project, event.MRIID, body, false); err != nil {
		logger.ErrorContext(ctx, "failed to post failure report", "error", err)
	}
}

// RunMetadata derives the gateway run metadata of a merge request. The author
// is the MR author email, then the last commit author email, then the
// username at authorDomain.
func RunMetadata(mr *core.MergeRequest, commits []core.Commit, authorDomain string) aiclient.RunMetadata {
	author := mr.AuthorEmail
	if author == "" && len(commits) > 0 {
		author = commits[len(commits)-1].AuthorEmail
	}
	if author == "" {
		name := mr.AuthorUsername
		if name == "" {
			name = unknownValue
		}
		author = name + "@" + authorDomain
	}
	commit := unknownValue
	if len(commits) > 0 {
		commit = commits[len(commits)-1].ID
	}
	return aiclient.RunMetadata{
		Repo:   mr.Project,
		Branch: mr.SourceBranch,
		Author: author,
		Commit: commit,
		MRURL:  mr.WebURL,
	}
}
