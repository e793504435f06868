// internal/database/analysis.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const repoAnalysisColumns = `repository_id, total_commits, ai_commits, ai_lines_added, ai_lines_removed, last_analyzed_at, updated_at`

const getRepoAnalysis = `-- name: GetRepoAnalysis :one
SELECT ` + repoAnalysisColumns + ` FROM repo_analyses WHERE repository_id = $1
`

func (q *Queries) GetRepoAnalysis(ctx context.Context, repositoryID int64) (RepoAnalysis, error) {
	return q.oneRepoAnalysis(ctx, getRepoAnalysis, repositoryID)
}

type RepoAnalysisParams struct {
	RepositoryID   int64
	TotalCommits   int64
	AICommits      int64
	AILinesAdded   int64
	AILinesRemoved int64
	AnalyzedAt     time.Time
}

func (p RepoAnalysisParams) args() []interface{} {
	return []interface{}{p.RepositoryID, p.TotalCommits, p.AICommits, p.AILinesAdded, p.AILinesRemoved, p.AnalyzedAt}
}

const replaceRepoAnalysis = `-- name: ReplaceRepoAnalysis :one
INSERT INTO repo_analyses (repository_id, total_commits, ai_commits, ai_lines_added, ai_lines_removed, last_analyzed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (repository_id) DO UPDATE SET
    total_commits = EXCLUDED.total_commits,
    ai_commits = EXCLUDED.ai_commits,
    ai_lines_added = EXCLUDED.ai_lines_added,
    ai_lines_removed = EXCLUDED.ai_lines_removed,
    last_analyzed_at = EXCLUDED.last_analyzed_at,
    updated_at = now()
RETURNING ` + repoAnalysisColumns + `
`

// ReplaceRepoAnalysis overwrites the rollup with absolute totals.
func (q *Queries) ReplaceRepoAnalysis(ctx context.Context, arg RepoAnalysisParams) (RepoAnalysis, error) {
	return q.oneRepoAnalysis(ctx, replaceRepoAnalysis, arg.args()...)
}

const incrementRepoAnalysis = `-- name: IncrementRepoAnalysis :one
INSERT INTO repo_analyses (repository_id, total_commits, ai_commits, ai_lines_added, ai_lines_removed, last_analyzed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (repository_id) DO UPDATE SET
    total_commits = repo_analyses.total_commits + EXCLUDED.total_commits,
    ai_commits = repo_analyses.ai_commits + EXCLUDED.ai_commits,
    ai_lines_added = repo_analyses.ai_lines_added + EXCLUDED.ai_lines_added,
    ai_lines_removed = repo_analyses.ai_lines_removed + EXCLUDED.ai_lines_removed,
    last_analyzed_at = EXCLUDED.last_analyzed_at,
    updated_at = now()
RETURNING ` + repoAnalysisColumns + `
`

// IncrementRepoAnalysis adds deltas to the rollup in a single statement,
// creating it when absent.
func (q *Queries) IncrementRepoAnalysis(ctx context.Context, arg RepoAnalysisParams) (RepoAnalysis, error) {
	return q.oneRepoAnalysis(ctx, incrementRepoAnalysis, arg.args()...)
}

func (q *Queries) oneRepoAnalysis(ctx context.Context, sql string, args ...interface{}) (RepoAnalysis, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return RepoAnalysis{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[RepoAnalysis])
}
