// internal/database/commits.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// xmax is zero only for rows this statement inserted.
const upsertCommit = `-- name: UpsertCommit :one
INSERT INTO commits (repository_id, sha, message, author_name, author_email, is_ai_generated, ai_tool, lines_added, lines_removed, committed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (repository_id, sha) DO UPDATE SET
    message = EXCLUDED.message,
    author_name = EXCLUDED.author_name,
    author_email = EXCLUDED.author_email,
    is_ai_generated = EXCLUDED.is_ai_generated,
    ai_tool = EXCLUDED.ai_tool,
    lines_added = EXCLUDED.lines_added,
    lines_removed = EXCLUDED.lines_removed,
    committed_at = EXCLUDED.committed_at
RETURNING (xmax = 0) AS inserted
`

type UpsertCommitParams struct {
	RepositoryID  int64
	Sha           string
	Message       string
	AuthorName    string
	AuthorEmail   string
	IsAIGenerated bool
	AITool        *string
	LinesAdded    int64
	LinesRemoved  int64
	CommittedAt   time.Time
}

func (p UpsertCommitParams) args() []interface{} {
	return []interface{}{p.RepositoryID, p.Sha, p.Message, p.AuthorName, p.AuthorEmail,
		p.IsAIGenerated, p.AITool, p.LinesAdded, p.LinesRemoved, p.CommittedAt}
}

// UpsertCommit writes one commit and reports whether it was new.
func (q *Queries) UpsertCommit(ctx context.Context, arg UpsertCommitParams) (bool, error) {
	var inserted bool
	err := q.db.QueryRow(ctx, upsertCommit, arg.args()...).Scan(&inserted)
	return inserted, err
}

// UpsertCommits writes commits in one round trip and returns how many were new.
func (q *Queries) UpsertCommits(ctx context.Context, arg []UpsertCommitParams) (int64, error) {
	if len(arg) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, p := range arg {
		batch.Queue(upsertCommit, p.args()...)
	}
	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range arg {
		var isNew bool
		if err := br.QueryRow().Scan(&isNew); err != nil {
			return 0, err
		}
		if isNew {
			inserted++
		}
	}
	return inserted, br.Close()
}

const getCommitsByRepoID = `-- name: GetCommitsByRepoID :many
SELECT id, repository_id, sha, message, author_name, author_email, is_ai_generated, ai_tool,
       lines_added, lines_removed, committed_at, created_at
FROM commits
WHERE repository_id = $1
ORDER BY committed_at DESC, id DESC
`

func (q *Queries) GetCommitsByRepoID(ctx context.Context, repositoryID int64) ([]Commit, error) {
	rows, err := q.db.Query(ctx, getCommitsByRepoID, repositoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Commit])
}
