// internal/database/repositories.sql.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github-ai-attribution/internal/model"
)

const trackedRepositoryColumns = `id, installation_id, org_installation_id, github_repo_id, full_name, default_branch,
    is_active, ai_percentage, last_push_at, last_analyzed_at, created_at, updated_at`

// OwnerParams identifies the installation a repository hangs off. Exactly
// one field is set.
type OwnerParams struct {
	InstallationID    *int64
	OrgInstallationID *int64
}

// OwnerOf converts an installation reference into OwnerParams.
func OwnerOf(ref model.InstallationRef) OwnerParams {
	id := ref.ID
	if ref.Kind == model.OwnerOrganization {
		return OwnerParams{OrgInstallationID: &id}
	}
	return OwnerParams{InstallationID: &id}
}

func (o OwnerParams) column() (string, int64, error) {
	switch {
	case o.InstallationID != nil && o.OrgInstallationID == nil:
		return "installation_id", *o.InstallationID, nil
	case o.OrgInstallationID != nil && o.InstallationID == nil:
		return "org_installation_id", *o.OrgInstallationID, nil
	default:
		return "", 0, fmt.Errorf("repository owner must set exactly one installation")
	}
}

const upsertTrackedRepository = `-- name: UpsertTrackedRepository :one
INSERT INTO tracked_repositories (installation_id, org_installation_id, github_repo_id, full_name, default_branch, is_active, last_push_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6)
ON CONFLICT (%[1]s, github_repo_id) WHERE %[1]s IS NOT NULL
DO UPDATE SET
    full_name = EXCLUDED.full_name,
    default_branch = EXCLUDED.default_branch,
    is_active = TRUE,
    last_push_at = COALESCE(EXCLUDED.last_push_at, tracked_repositories.last_push_at),
    updated_at = now()
RETURNING ` + trackedRepositoryColumns + `
`

type UpsertTrackedRepositoryParams struct {
	Owner         OwnerParams
	GithubRepoID  int64
	FullName      string
	DefaultBranch string
	LastPushAt    *time.Time
}

func (q *Queries) UpsertTrackedRepository(ctx context.Context, arg UpsertTrackedRepositoryParams) (TrackedRepository, error) {
	col, _, err := arg.Owner.column()
	if err != nil {
		return TrackedRepository{}, err
	}
	return q.oneTrackedRepository(ctx, fmt.Sprintf(upsertTrackedRepository, col),
		arg.Owner.InstallationID, arg.Owner.OrgInstallationID, arg.GithubRepoID, arg.FullName, arg.DefaultBranch, arg.LastPushAt)
}

const getTrackedRepository = `-- name: GetTrackedRepository :one
SELECT ` + trackedRepositoryColumns + ` FROM tracked_repositories
WHERE %s = $1 AND github_repo_id = $2
`

type GetTrackedRepositoryParams struct {
	Owner        OwnerParams
	GithubRepoID int64
}

func (q *Queries) GetTrackedRepository(ctx context.Context, arg GetTrackedRepositoryParams) (TrackedRepository, error) {
	col, id, err := arg.Owner.column()
	if err != nil {
		return TrackedRepository{}, err
	}
	return q.oneTrackedRepository(ctx, fmt.Sprintf(getTrackedRepository, col), id, arg.GithubRepoID)
}

const listTrackedRepositories = `-- name: ListTrackedRepositories :many
SELECT ` + trackedRepositoryColumns + ` FROM tracked_repositories
WHERE %s = $1
ORDER BY full_name
`

func (q *Queries) ListTrackedRepositories(ctx context.Context, owner OwnerParams) ([]TrackedRepository, error) {
	col, id, err := owner.column()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, fmt.Sprintf(listTrackedRepositories, col), id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[TrackedRepository])
}

const updateRepositorySyncData = `-- name: UpdateRepositorySyncData :one
UPDATE tracked_repositories
SET ai_percentage = $2,
    last_analyzed_at = $3,
    last_push_at = COALESCE($4, last_push_at),
    updated_at = now()
WHERE id = $1
RETURNING ` + trackedRepositoryColumns + `
`

type UpdateRepositorySyncDataParams struct {
	ID             int64
	AIPercentage   float64
	LastAnalyzedAt time.Time
	LastPushAt     *time.Time
}

func (q *Queries) UpdateRepositorySyncData(ctx context.Context, arg UpdateRepositorySyncDataParams) (TrackedRepository, error) {
	return q.oneTrackedRepository(ctx, updateRepositorySyncData, arg.ID, arg.AIPercentage, arg.LastAnalyzedAt, arg.LastPushAt)
}

func (q *Queries) oneTrackedRepository(ctx context.Context, sql string, args ...interface{}) (TrackedRepository, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return TrackedRepository{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[TrackedRepository])
}
