// internal/syncer/syncer.go
package syncer

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github-ai-attribution/internal/classifier"
	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
)

// Status tells apart a window with data, a genuinely empty repository and a
// fetch that failed.
type Status string

const (
	StatusData   Status = "data"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// CommitSource is the slice of the GitHub client the engine needs.
type CommitSource interface {
	ListCommits(ctx context.Context, owner, repo, branch string, limit int) ([]model.Commit, error)
	GetCommitStats(ctx context.Context, owner, repo, sha string) (model.LineStats, error)
}

// Result is the outcome of one sync pass over a commit window.
type Result struct {
	Status  Status
	Totals  model.Totals
	Commits []model.Commit
	// Skipped counts commits dropped because their detail fetch failed.
	Skipped int
}

// AIPercentage of the commits in the window.
func (r *Result) AIPercentage() float64 {
	return r.Totals.AIPercentage()
}

// Engine retrieves and classifies commit windows.
type Engine struct {
	logger      *slog.Logger
	concurrency int
}

// NewEngine creates an Engine fetching at most concurrency commit details at once.
func NewEngine(logger *slog.Logger, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{logger: logger, concurrency: concurrency}
}

// Sync fetches up to limit recent commits on branch, enriches each with its
// line stats and classifies it. A failed list call returns StatusFailed with
// the error; a failed detail fetch only skips that commit.
func (e *Engine) Sync(ctx context.Context, src CommitSource, owner, repo, branch string, limit int) (*Result, error) {
	logger := e.logger.With("owner", owner, "repo", repo, "branch", branch)
	logger.Info("Syncing repository", "limit", limit)

	listed, err := src.ListCommits(ctx, owner, repo, branch, limit)
	if err != nil {
		logger.Error("Failed to list commits", "error", err)
		return &Result{Status: StatusFailed}, upstream("sync: list commits", err)
	}
	if len(listed) == 0 {
		logger.Info("No commits found")
		return &Result{Status: StatusEmpty}, nil
	}

	stats, fetched := e.fetchStats(ctx, src, owner, repo, listed)
	if err := ctx.Err(); err != nil {
		return &Result{Status: StatusFailed}, err
	}

	res := &Result{Status: StatusData, Commits: make([]model.Commit, 0, len(listed))}
	for i, c := range listed {
		if !fetched[i] {
			res.Skipped++
			continue
		}
		c.LinesAdded, c.LinesRemoved = stats[i].Added, stats[i].Removed
		c = Classify(c)
		res.Commits = append(res.Commits, c)
		res.Totals.Add(c)
	}

	if len(res.Commits) == 0 {
		logger.Error("Every commit detail fetch failed", "skipped", res.Skipped)
		return &Result{Status: StatusFailed, Skipped: res.Skipped},
			custom_errors.Ef(custom_errors.UpstreamFailure, "sync: get commit", "all %d detail fetches failed", res.Skipped)
	}
	if res.Skipped > 0 {
		logger.Warn("Sync degraded, some commits skipped", "skipped", res.Skipped, "kept", len(res.Commits))
	}
	logger.Info("Sync finished",
		"total_commits", res.Totals.TotalCommits,
		"ai_commits", res.Totals.AICommits,
		"ai_lines_added", res.Totals.AILinesAdded,
		"ai_lines_removed", res.Totals.AILinesRemoved)
	return res, nil
}

// Annotate classifies commits that arrived in a push payload. When fetchStats
// is set each commit is enriched with its line stats; a failed fetch keeps the
// commit with zero stats.
func (e *Engine) Annotate(ctx context.Context, src CommitSource, owner, repo string, commits []model.Commit, fetchStats bool) []model.Commit {
	out := make([]model.Commit, len(commits))
	copy(out, commits)

	if fetchStats && src != nil && len(out) > 0 {
		stats, fetched := e.fetchStats(ctx, src, owner, repo, out)
		for i := range out {
			if fetched[i] {
				out[i].LinesAdded, out[i].LinesRemoved = stats[i].Added, stats[i].Removed
			}
		}
	}
	for i := range out {
		out[i] = Classify(out[i])
	}
	return out
}

// fetchStats runs the detail fetches on a bounded pool. Results are indexed by
// position so accumulation order does not depend on scheduling.
func (e *Engine) fetchStats(ctx context.Context, src CommitSource, owner, repo string, commits []model.Commit) ([]model.LineStats, []bool) {
	stats := make([]model.LineStats, len(commits))
	fetched := make([]bool, len(commits))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, c := range commits {
		i, c := i, c
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			s, err := src.GetCommitStats(ctx, owner, repo, c.SHA)
			if err != nil {
				e.logger.Warn("Skipping commit, detail fetch failed", "owner", owner, "repo", repo, "sha", c.SHA, "error", err)
				return nil
			}
			stats[i], fetched[i] = s, true
			return nil
		})
	}
	_ = g.Wait()
	return stats, fetched
}

// Classify tags c with the AI tool named in its message and truncates the
// message for storage.
func Classify(c model.Commit) model.Commit {
	tag, ok := classifier.Classify(c.Message)
	c.IsAI = ok
	c.AITool = string(tag)
	c.Message = model.TruncateMessage(c.Message)
	return c
}

func upstream(op string, err error) error {
	if custom_errors.KindOf(err) != custom_errors.Internal {
		return err
	}
	return custom_errors.E(custom_errors.UpstreamFailure, op, err)
}
