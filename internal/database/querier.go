// internal/database/querier.go
package database

import (
	"context"
)

type Querier interface {
	GetOrganizationMember(ctx context.Context, arg GetOrganizationMemberParams) (OrganizationMember, error)
	ListAdministeredOrgInstallations(ctx context.Context, userID string) ([]OrgInstallation, error)

	GetInstallationByUser(ctx context.Context, userID string) (Installation, error)
	GetInstallationByGithubID(ctx context.Context, githubInstallationID int64) (Installation, error)
	GetInstallationByAccount(ctx context.Context, accountID int64) (Installation, error)
	CreateInstallation(ctx context.Context, arg CreateInstallationParams) (Installation, error)
	DeleteInstallation(ctx context.Context, id int64) error

	GetOrgInstallationByOrg(ctx context.Context, organizationID int64) (OrgInstallation, error)
	GetOrgInstallationByGithubID(ctx context.Context, githubInstallationID int64) (OrgInstallation, error)
	GetOrgInstallationByAccount(ctx context.Context, accountID int64) (OrgInstallation, error)
	CreateOrgInstallation(ctx context.Context, arg CreateOrgInstallationParams) (OrgInstallation, error)
	DeleteOrgInstallation(ctx context.Context, id int64) error
	MoveRepositoriesToOrgInstallation(ctx context.Context, arg MoveRepositoriesToOrgInstallationParams) (int64, error)

	UpsertTrackedRepository(ctx context.Context, arg UpsertTrackedRepositoryParams) (TrackedRepository, error)
	GetTrackedRepository(ctx context.Context, arg GetTrackedRepositoryParams) (TrackedRepository, error)
	ListTrackedRepositories(ctx context.Context, owner OwnerParams) ([]TrackedRepository, error)
	UpdateRepositorySyncData(ctx context.Context, arg UpdateRepositorySyncDataParams) (TrackedRepository, error)

	UpsertCommit(ctx context.Context, arg UpsertCommitParams) (bool, error)
	UpsertCommits(ctx context.Context, arg []UpsertCommitParams) (int64, error)
	GetCommitsByRepoID(ctx context.Context, repositoryID int64) ([]Commit, error)

	GetRepoAnalysis(ctx context.Context, repositoryID int64) (RepoAnalysis, error)
	ReplaceRepoAnalysis(ctx context.Context, arg RepoAnalysisParams) (RepoAnalysis, error)
	IncrementRepoAnalysis(ctx context.Context, arg RepoAnalysisParams) (RepoAnalysis, error)
}

var _ Querier = (*Queries)(nil)
var _ Store = (*PostgresStore)(nil)
