// internal/analysis/writer.go
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github-ai-attribution/internal/database"
	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
	"github-ai-attribution/internal/syncer"
)

// ErrSyncFailed is returned when asked to persist a failed sync; prior
// aggregates are left untouched.
var ErrSyncFailed = errors.New("sync failed, refusing to overwrite analysis")

// Writer persists sync results and keeps the per-repository rollup current.
type Writer struct {
	store  database.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a new Writer instance.
func NewWriter(store database.Store, logger *slog.Logger) *Writer {
	return &Writer{store: store, logger: logger, now: time.Now}
}

// WriteFull upserts the repository and its commits, then overwrites the
// rollup with the totals of res. The rollup write comes last so an aborted
// run leaves the previous totals in place.
func (w *Writer) WriteFull(ctx context.Context, owner model.InstallationRef, repo model.RemoteRepository, res *syncer.Result) (database.TrackedRepository, error) {
	logger := w.logger.With("repo", repo.FullName, "github_repo_id", repo.GithubRepoID)
	if res == nil || res.Status == syncer.StatusFailed {
		logger.Warn("Not persisting failed sync")
		return database.TrackedRepository{}, custom_errors.E(custom_errors.UpstreamFailure, "analysis: write full", ErrSyncFailed)
	}

	tracked, err := w.store.UpsertTrackedRepository(ctx, upsertRepoParams(owner, repo))
	if err != nil {
		return database.TrackedRepository{}, database.Classify("analysis: upsert repository", err)
	}
	logger = logger.With("repo_id", tracked.ID)

	n, err := w.store.UpsertCommits(ctx, prepareCommitUpserts(tracked.ID, res.Commits))
	if err != nil {
		logger.Error("Failed to upsert commits", "error", err)
		return tracked, database.Classify("analysis: upsert commits", err)
	}
	logger.Info("Upserted commits", "count", len(res.Commits), "new", n)

	analyzedAt := w.now().UTC()
	if _, err := w.store.ReplaceRepoAnalysis(ctx, database.RepoAnalysisParams{
		RepositoryID:   tracked.ID,
		TotalCommits:   int64(res.Totals.TotalCommits),
		AICommits:      int64(res.Totals.AICommits),
		AILinesAdded:   res.Totals.AILinesAdded,
		AILinesRemoved: res.Totals.AILinesRemoved,
		AnalyzedAt:     analyzedAt,
	}); err != nil {
		logger.Error("Failed to replace repository analysis", "error", err)
		return tracked, database.Classify("analysis: replace analysis", err)
	}

	updated, err := w.store.UpdateRepositorySyncData(ctx, database.UpdateRepositorySyncDataParams{
		ID:             tracked.ID,
		AIPercentage:   res.AIPercentage(),
		LastAnalyzedAt: analyzedAt,
		LastPushAt:     repo.PushedAt,
	})
	if err != nil {
		logger.Error("Failed to update repository sync data", "error", err)
		return tracked, database.Classify("analysis: update repository", err)
	}
	return updated, nil
}

// WriteIncremental records the commits of one push and adds the newly seen
// ones to the rollup, all in one transaction. Commits already stored do not
// count again, so a redelivered push is harmless.
func (w *Writer) WriteIncremental(ctx context.Context, repo database.TrackedRepository, commits []model.Commit, pushedAt time.Time) (database.RepoAnalysis, error) {
	logger := w.logger.With("repo", repo.FullName, "repo_id", repo.ID)
	analyzedAt := w.now().UTC()

	var result database.RepoAnalysis
	err := w.store.InTx(ctx, func(q database.Querier) error {
		var delta model.Totals
		for _, p := range prepareCommitUpserts(repo.ID, commits) {
			inserted, err := q.UpsertCommit(ctx, p)
			if err != nil {
				return database.Classify("analysis: upsert commit", err)
			}
			if !inserted {
				logger.Debug("Commit already recorded", "sha", p.Sha)
				continue
			}
			delta.Add(model.Commit{IsAI: p.IsAIGenerated, LinesAdded: int(p.LinesAdded), LinesRemoved: int(p.LinesRemoved)})
		}

		analysis, err := q.IncrementRepoAnalysis(ctx, database.RepoAnalysisParams{
			RepositoryID:   repo.ID,
			TotalCommits:   int64(delta.TotalCommits),
			AICommits:      int64(delta.AICommits),
			AILinesAdded:   delta.AILinesAdded,
			AILinesRemoved: delta.AILinesRemoved,
			AnalyzedAt:     analyzedAt,
		})
		if err != nil {
			return database.Classify("analysis: increment analysis", err)
		}

		pushed := pushedAt.UTC()
		if _, err := q.UpdateRepositorySyncData(ctx, database.UpdateRepositorySyncDataParams{
			ID:             repo.ID,
			AIPercentage:   model.AIPercentage(int(analysis.TotalCommits), int(analysis.AICommits)),
			LastAnalyzedAt: analyzedAt,
			LastPushAt:     &pushed,
		}); err != nil {
			return database.Classify("analysis: update repository", err)
		}

		logger.Info("Applied push delta",
			"new_commits", delta.TotalCommits,
			"new_ai_commits", delta.AICommits,
			"total_commits", analysis.TotalCommits,
			"ai_commits", analysis.AICommits)
		result = analysis
		return nil
	})
	if err != nil {
		logger.Error("Incremental write failed", "error", err)
		return database.RepoAnalysis{}, err
	}
	return result, nil
}

func upsertRepoParams(owner model.InstallationRef, repo model.RemoteRepository) database.UpsertTrackedRepositoryParams {
	return database.UpsertTrackedRepositoryParams{
		Owner:         database.OwnerOf(owner),
		GithubRepoID:  repo.GithubRepoID,
		FullName:      repo.FullName,
		DefaultBranch: repo.DefaultBranch,
		LastPushAt:    repo.PushedAt,
	}
}

// UpsertRepository records repo as tracked by owner without touching its commits.
func (w *Writer) UpsertRepository(ctx context.Context, owner model.InstallationRef, repo model.RemoteRepository) (database.TrackedRepository, error) {
	tracked, err := w.store.UpsertTrackedRepository(ctx, upsertRepoParams(owner, repo))
	if err != nil {
		return database.TrackedRepository{}, database.Classify("analysis: upsert repository", err)
	}
	return tracked, nil
}

func prepareCommitUpserts(repoID int64, commits []model.Commit) []database.UpsertCommitParams {
	params := make([]database.UpsertCommitParams, len(commits))
	for i, c := range commits {
		params[i] = database.UpsertCommitParams{
			RepositoryID:  repoID,
			Sha:           c.SHA,
			Message:       model.TruncateMessage(c.Message),
			AuthorName:    c.AuthorName,
			AuthorEmail:   c.AuthorEmail,
			IsAIGenerated: c.IsAI,
			AITool:        toNullString(c.AITool),
			LinesAdded:    int64(c.LinesAdded),
			LinesRemoved:  int64(c.LinesRemoved),
			CommittedAt:   c.CommittedAt,
		}
	}
	return params
}

func toNullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
