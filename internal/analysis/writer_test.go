// internal/analysis/writer_test.go
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-ai-attribution/internal/database"
	"github-ai-attribution/internal/database/mocks"
	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
	"github-ai-attribution/internal/syncer"
)

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestWriter(store database.Store) *Writer {
	w := NewWriter(store, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	w.now = func() time.Time { return fixedNow }
	return w
}

func scenarioResult() *syncer.Result {
	res := &syncer.Result{Status: syncer.StatusData}
	ai := []model.LineStats{{Added: 50, Removed: 5}, {Added: 20, Removed: 2}, {Added: 8, Removed: 1}}
	for i := 0; i < 10; i++ {
		c := model.Commit{SHA: fmt.Sprintf("sha%02d", i), Message: "chore", CommittedAt: fixedNow.Add(-time.Duration(i) * time.Hour)}
		if i < len(ai) {
			c.IsAI, c.AITool = true, "claude-code"
			c.LinesAdded, c.LinesRemoved = ai[i].Added, ai[i].Removed
		} else {
			c.LinesAdded, c.LinesRemoved = 40, 40
		}
		res.Commits = append(res.Commits, c)
		res.Totals.Add(c)
	}
	return res
}

func TestWriter_WriteFull(t *testing.T) {
	ctx := context.Background()
	owner := model.InstallationRef{Kind: model.OwnerPersonal, ID: 3}
	remote := model.RemoteRepository{GithubRepoID: 900, FullName: "acme/widgets", DefaultBranch: "main"}
	tracked := database.TrackedRepository{ID: 11, FullName: "acme/widgets"}

	wantAnalysis := database.RepoAnalysisParams{
		RepositoryID: 11, TotalCommits: 10, AICommits: 3, AILinesAdded: 78, AILinesRemoved: 8, AnalyzedAt: fixedNow,
	}
	wantSyncData := database.UpdateRepositorySyncDataParams{ID: 11, AIPercentage: 30, LastAnalyzedAt: fixedNow}

	t.Run("overwrites analysis with the window totals", func(t *testing.T) {
		store := new(mocks.Store)
		store.On("UpsertTrackedRepository", ctx, mock.MatchedBy(func(p database.UpsertTrackedRepositoryParams) bool {
			return p.GithubRepoID == 900 && p.Owner.InstallationID != nil && *p.Owner.InstallationID == 3 && p.Owner.OrgInstallationID == nil
		})).Return(tracked, nil).Once()
		store.On("UpsertCommits", ctx, mock.MatchedBy(func(p []database.UpsertCommitParams) bool {
			return len(p) == 10 && p[0].RepositoryID == 11 && *p[0].AITool == "claude-code" && p[9].AITool == nil
		})).Return(int64(10), nil).Once()
		store.On("ReplaceRepoAnalysis", ctx, wantAnalysis).Return(database.RepoAnalysis{RepositoryID: 11, TotalCommits: 10}, nil).Once()
		store.On("UpdateRepositorySyncData", ctx, wantSyncData).Return(database.TrackedRepository{ID: 11, AIPercentage: 30}, nil).Once()

		got, err := newTestWriter(store).WriteFull(ctx, owner, remote, scenarioResult())

		require.NoError(t, err)
		assert.Equal(t, 30.0, got.AIPercentage)
		store.AssertExpectations(t)
	})

	t.Run("running twice writes identical totals", func(t *testing.T) {
		store := new(mocks.Store)
		store.On("UpsertTrackedRepository", ctx, mock.Anything).Return(tracked, nil).Twice()
		store.On("UpsertCommits", ctx, mock.Anything).Return(int64(10), nil).Once()
		store.On("UpsertCommits", ctx, mock.Anything).Return(int64(0), nil).Once()
		store.On("ReplaceRepoAnalysis", ctx, wantAnalysis).Return(database.RepoAnalysis{}, nil).Twice()
		store.On("UpdateRepositorySyncData", ctx, wantSyncData).Return(tracked, nil).Twice()

		w := newTestWriter(store)
		_, err := w.WriteFull(ctx, owner, remote, scenarioResult())
		require.NoError(t, err)
		_, err = w.WriteFull(ctx, owner, remote, scenarioResult())
		require.NoError(t, err)

		store.AssertExpectations(t)
		store.AssertNotCalled(t, "IncrementRepoAnalysis", mock.Anything, mock.Anything)
	})

	t.Run("failed sync leaves everything untouched", func(t *testing.T) {
		store := new(mocks.Store)

		_, err := newTestWriter(store).WriteFull(ctx, owner, remote, &syncer.Result{Status: syncer.StatusFailed})

		require.ErrorIs(t, err, ErrSyncFailed)
		assert.True(t, custom_errors.IsKind(err, custom_errors.UpstreamFailure))
		store.AssertNotCalled(t, "UpsertTrackedRepository", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "ReplaceRepoAnalysis", mock.Anything, mock.Anything)
	})

	t.Run("empty repository writes zero totals", func(t *testing.T) {
		store := new(mocks.Store)
		store.On("UpsertTrackedRepository", ctx, mock.Anything).Return(tracked, nil).Once()
		store.On("UpsertCommits", ctx, []database.UpsertCommitParams{}).Return(int64(0), nil).Once()
		store.On("ReplaceRepoAnalysis", ctx, database.RepoAnalysisParams{RepositoryID: 11, AnalyzedAt: fixedNow}).
			Return(database.RepoAnalysis{}, nil).Once()
		store.On("UpdateRepositorySyncData", ctx, database.UpdateRepositorySyncDataParams{ID: 11, LastAnalyzedAt: fixedNow}).
			Return(tracked, nil).Once()

		_, err := newTestWriter(store).WriteFull(ctx, owner, remote, &syncer.Result{Status: syncer.StatusEmpty})

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("commit write failure stops before analysis", func(t *testing.T) {
		store := new(mocks.Store)
		store.On("UpsertTrackedRepository", ctx, mock.Anything).Return(tracked, nil).Once()
		store.On("UpsertCommits", ctx, mock.Anything).Return(int64(0), errors.New("disk full")).Once()

		_, err := newTestWriter(store).WriteFull(ctx, owner, remote, scenarioResult())

		require.Error(t, err)
		assert.True(t, custom_errors.IsKind(err, custom_errors.PersistenceFailure))
		store.AssertNotCalled(t, "ReplaceRepoAnalysis", mock.Anything, mock.Anything)
	})
}

func TestWriter_WriteIncremental(t *testing.T) {
	ctx := context.Background()
	repo := database.TrackedRepository{ID: 11, FullName: "acme/widgets"}
	pushedAt := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	push := []model.Commit{
		{SHA: "new1", Message: "feat", IsAI: true, AITool: "claude-code", LinesAdded: 12},
		{SHA: "new2", Message: "docs", LinesAdded: 3, LinesRemoved: 1},
	}

	t.Run("adds the push delta to stored totals", func(t *testing.T) {
		store := new(mocks.Store)
		store.On("UpsertCommit", ctx, mock.MatchedBy(func(p database.UpsertCommitParams) bool { return p.Sha == "new1" })).Return(true, nil).Once()
		store.On("UpsertCommit", ctx, mock.MatchedBy(func(p database.UpsertCommitParams) bool { return p.Sha == "new2" })).Return(true, nil).Once()
		store.On("IncrementRepoAnalysis", ctx, database.RepoAnalysisParams{
			RepositoryID: 11, TotalCommits: 2, AICommits: 1, AILinesAdded: 12, AILinesRemoved: 0, AnalyzedAt: fixedNow,
		}).Return(database.RepoAnalysis{RepositoryID: 11, TotalCommits: 12, AICommits: 4, AILinesAdded: 90, AILinesRemoved: 8}, nil).Once()
		store.On("UpdateRepositorySyncData", ctx, database.UpdateRepositorySyncDataParams{
			ID: 11, AIPercentage: 33.33, LastAnalyzedAt: fixedNow, LastPushAt: &pushedAt,
		}).Return(repo, nil).Once()

		got, err := newTestWriter(store).WriteIncremental(ctx, repo, push, pushedAt)

		require.NoError(t, err)
		assert.Equal(t, int64(12), got.TotalCommits)
		assert.Equal(t, int64(4), got.AICommits)
		assert.Equal(t, int64(90), got.AILinesAdded)
		assert.Equal(t, int64(8), got.AILinesRemoved)
		assert.Equal(t, 1, store.TxCalls)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "ReplaceRepoAnalysis", mock.Anything, mock.Anything)
	})

	t.Run("redelivered commits add nothing", func(t *testing.T) {
		store := new(mocks.Store)
		store.On("UpsertCommit", ctx, mock.Anything).Return(false, nil).Twice()
		store.On("IncrementRepoAnalysis", ctx, database.RepoAnalysisParams{RepositoryID: 11, AnalyzedAt: fixedNow}).
			Return(database.RepoAnalysis{RepositoryID: 11, TotalCommits: 12, AICommits: 4}, nil).Once()
		store.On("UpdateRepositorySyncData", ctx, mock.Anything).Return(repo, nil).Once()

		got, err := newTestWriter(store).WriteIncremental(ctx, repo, push, pushedAt)

		require.NoError(t, err)
		assert.Equal(t, int64(12), got.TotalCommits)
		store.AssertExpectations(t)
	})

	t.Run("increment failure surfaces as persistence failure", func(t *testing.T) {
		store := new(mocks.Store)
		store.On("UpsertCommit", ctx, mock.Anything).Return(true, nil).Twice()
		store.On("IncrementRepoAnalysis", ctx, mock.Anything).Return(database.RepoAnalysis{}, errors.New("deadlock")).Once()

		_, err := newTestWriter(store).WriteIncremental(ctx, repo, push, pushedAt)

		require.Error(t, err)
		assert.True(t, custom_errors.IsKind(err, custom_errors.PersistenceFailure))
		store.AssertNotCalled(t, "UpdateRepositorySyncData", mock.Anything, mock.Anything)
	})
}
