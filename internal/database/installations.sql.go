// internal/database/installations.sql.go
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const installationColumns = `id, github_installation_id, user_id, account_id, account_login, created_at, updated_at`

const orgInstallationColumns = `id, github_installation_id, organization_id, account_id, account_login, connected_by, created_at, updated_at`

const getOrganizationMember = `-- name: GetOrganizationMember :one
SELECT organization_id, user_id, role, created_at FROM organization_members
WHERE organization_id = $1 AND user_id = $2
`

type GetOrganizationMemberParams struct {
	OrganizationID int64
	UserID         string
}

func (q *Queries) GetOrganizationMember(ctx context.Context, arg GetOrganizationMemberParams) (OrganizationMember, error) {
	rows, err := q.db.Query(ctx, getOrganizationMember, arg.OrganizationID, arg.UserID)
	if err != nil {
		return OrganizationMember{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[OrganizationMember])
}

const listAdministeredOrgInstallations = `-- name: ListAdministeredOrgInstallations :many
SELECT oi.id, oi.github_installation_id, oi.organization_id, oi.account_id, oi.account_login, oi.connected_by, oi.created_at, oi.updated_at
FROM org_installations oi
JOIN organization_members m ON m.organization_id = oi.organization_id
WHERE m.user_id = $1 AND m.role IN ('owner', 'admin')
ORDER BY oi.id
`

func (q *Queries) ListAdministeredOrgInstallations(ctx context.Context, userID string) ([]OrgInstallation, error) {
	rows, err := q.db.Query(ctx, listAdministeredOrgInstallations, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[OrgInstallation])
}

const getInstallationByUser = `-- name: GetInstallationByUser :one
SELECT ` + installationColumns + ` FROM installations WHERE user_id = $1
`

func (q *Queries) GetInstallationByUser(ctx context.Context, userID string) (Installation, error) {
	return q.oneInstallation(ctx, getInstallationByUser, userID)
}

const getInstallationByGithubID = `-- name: GetInstallationByGithubID :one
SELECT ` + installationColumns + ` FROM installations WHERE github_installation_id = $1
`

func (q *Queries) GetInstallationByGithubID(ctx context.Context, githubInstallationID int64) (Installation, error) {
	return q.oneInstallation(ctx, getInstallationByGithubID, githubInstallationID)
}

const getInstallationByAccount = `-- name: GetInstallationByAccount :one
SELECT ` + installationColumns + ` FROM installations WHERE account_id = $1
`

func (q *Queries) GetInstallationByAccount(ctx context.Context, accountID int64) (Installation, error) {
	return q.oneInstallation(ctx, getInstallationByAccount, accountID)
}

const createInstallation = `-- name: CreateInstallation :one
INSERT INTO installations (github_installation_id, user_id, account_id, account_login)
VALUES ($1, $2, $3, $4)
RETURNING ` + installationColumns + `
`

type CreateInstallationParams struct {
	GithubInstallationID int64
	UserID               string
	AccountID            int64
	AccountLogin         string
}

func (q *Queries) CreateInstallation(ctx context.Context, arg CreateInstallationParams) (Installation, error) {
	return q.oneInstallation(ctx, createInstallation, arg.GithubInstallationID, arg.UserID, arg.AccountID, arg.AccountLogin)
}

const deleteInstallation = `-- name: DeleteInstallation :exec
DELETE FROM installations WHERE id = $1
`

func (q *Queries) DeleteInstallation(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deleteInstallation, id)
	return err
}

func (q *Queries) oneInstallation(ctx context.Context, sql string, args ...interface{}) (Installation, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return Installation{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Installation])
}

const getOrgInstallationByOrg = `-- name: GetOrgInstallationByOrg :one
SELECT ` + orgInstallationColumns + ` FROM org_installations WHERE organization_id = $1
`

func (q *Queries) GetOrgInstallationByOrg(ctx context.Context, organizationID int64) (OrgInstallation, error) {
	return q.oneOrgInstallation(ctx, getOrgInstallationByOrg, organizationID)
}

const getOrgInstallationByGithubID = `-- name: GetOrgInstallationByGithubID :one
SELECT ` + orgInstallationColumns + ` FROM org_installations WHERE github_installation_id = $1
`

func (q *Queries) GetOrgInstallationByGithubID(ctx context.Context, githubInstallationID int64) (OrgInstallation, error) {
	return q.oneOrgInstallation(ctx, getOrgInstallationByGithubID, githubInstallationID)
}

const getOrgInstallationByAccount = `-- name: GetOrgInstallationByAccount :one
SELECT ` + orgInstallationColumns + ` FROM org_installations WHERE account_id = $1
`

func (q *Queries) GetOrgInstallationByAccount(ctx context.Context, accountID int64) (OrgInstallation, error) {
	return q.oneOrgInstallation(ctx, getOrgInstallationByAccount, accountID)
}

const createOrgInstallation = `-- name: CreateOrgInstallation :one
INSERT INTO org_installations (github_installation_id, organization_id, account_id, account_login, connected_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + orgInstallationColumns + `
`

type CreateOrgInstallationParams struct {
	GithubInstallationID int64
	OrganizationID       int64
	AccountID            int64
	AccountLogin         string
	ConnectedBy          string
}

func (q *Queries) CreateOrgInstallation(ctx context.Context, arg CreateOrgInstallationParams) (OrgInstallation, error) {
	return q.oneOrgInstallation(ctx, createOrgInstallation,
		arg.GithubInstallationID, arg.OrganizationID, arg.AccountID, arg.AccountLogin, arg.ConnectedBy)
}

const deleteOrgInstallation = `-- name: DeleteOrgInstallation :exec
DELETE FROM org_installations WHERE id = $1
`

func (q *Queries) DeleteOrgInstallation(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deleteOrgInstallation, id)
	return err
}

func (q *Queries) oneOrgInstallation(ctx context.Context, sql string, args ...interface{}) (OrgInstallation, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return OrgInstallation{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[OrgInstallation])
}

const moveRepositoriesToOrgInstallation = `-- name: MoveRepositoriesToOrgInstallation :execrows
UPDATE tracked_repositories t
SET installation_id = NULL, org_installation_id = $2, updated_at = now()
WHERE t.installation_id = $1
  AND NOT EXISTS (
    SELECT 1 FROM tracked_repositories o
    WHERE o.org_installation_id = $2 AND o.github_repo_id = t.github_repo_id
  )
`

type MoveRepositoriesToOrgInstallationParams struct {
	InstallationID    int64
	OrgInstallationID int64
}

// MoveRepositoriesToOrgInstallation re-parents a personal installation's
// repositories. Repositories the org already tracks are left behind and go
// away with the personal installation.
func (q *Queries) MoveRepositoriesToOrgInstallation(ctx context.Context, arg MoveRepositoriesToOrgInstallationParams) (int64, error) {
	tag, err := q.db.Exec(ctx, moveRepositoriesToOrgInstallation, arg.InstallationID, arg.OrgInstallationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
