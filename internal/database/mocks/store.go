// internal/database/mocks/store.go

// Package mocks holds testify mocks of the database interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github-ai-attribution/internal/database"
)

// Store is a mock of database.Store. InTx runs fn against the mock itself
// unless an expectation for "InTx" returns an error.
type Store struct {
	mock.Mock
	// TxCalls counts InTx invocations.
	TxCalls int
}

var _ database.Store = (*Store)(nil)

func (m *Store) InTx(ctx context.Context, fn func(database.Querier) error) error {
	m.TxCalls++
	return fn(m)
}

func (m *Store) GetOrganizationMember(ctx context.Context, arg database.GetOrganizationMemberParams) (database.OrganizationMember, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.OrganizationMember), args.Error(1)
}

func (m *Store) ListAdministeredOrgInstallations(ctx context.Context, userID string) ([]database.OrgInstallation, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).([]database.OrgInstallation)
	return v, args.Error(1)
}

func (m *Store) GetInstallationByUser(ctx context.Context, userID string) (database.Installation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(database.Installation), args.Error(1)
}

func (m *Store) GetInstallationByGithubID(ctx context.Context, githubInstallationID int64) (database.Installation, error) {
	args := m.Called(ctx, githubInstallationID)
	return args.Get(0).(database.Installation), args.Error(1)
}

func (m *Store) GetInstallationByAccount(ctx context.Context, accountID int64) (database.Installation, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(database.Installation), args.Error(1)
}

func (m *Store) CreateInstallation(ctx context.Context, arg database.CreateInstallationParams) (database.Installation, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Installation), args.Error(1)
}

func (m *Store) DeleteInstallation(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Store) GetOrgInstallationByOrg(ctx context.Context, organizationID int64) (database.OrgInstallation, error) {
	args := m.Called(ctx, organizationID)
	return args.Get(0).(database.OrgInstallation), args.Error(1)
}

func (m *Store) GetOrgInstallationByGithubID(ctx context.Context, githubInstallationID int64) (database.OrgInstallation, error) {
	args := m.Called(ctx, githubInstallationID)
	return args.Get(0).(database.OrgInstallation), args.Error(1)
}

func (m *Store) GetOrgInstallationByAccount(ctx context.Context, accountID int64) (database.OrgInstallation, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(database.OrgInstallation), args.Error(1)
}

func (m *Store) CreateOrgInstallation(ctx context.Context, arg database.CreateOrgInstallationParams) (database.OrgInstallation, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.OrgInstallation), args.Error(1)
}

func (m *Store) DeleteOrgInstallation(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Store) MoveRepositoriesToOrgInstallation(ctx context.Context, arg database.MoveRepositoriesToOrgInstallationParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Store) UpsertTrackedRepository(ctx context.Context, arg database.UpsertTrackedRepositoryParams) (database.TrackedRepository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.TrackedRepository), args.Error(1)
}

func (m *Store) GetTrackedRepository(ctx context.Context, arg database.GetTrackedRepositoryParams) (database.TrackedRepository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.TrackedRepository), args.Error(1)
}

func (m *Store) ListTrackedRepositories(ctx context.Context, owner database.OwnerParams) ([]database.TrackedRepository, error) {
	args := m.Called(ctx, owner)
	v, _ := args.Get(0).([]database.TrackedRepository)
	return v, args.Error(1)
}

func (m *Store) UpdateRepositorySyncData(ctx context.Context, arg database.UpdateRepositorySyncDataParams) (database.TrackedRepository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.TrackedRepository), args.Error(1)
}

func (m *Store) UpsertCommit(ctx context.Context, arg database.UpsertCommitParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *Store) UpsertCommits(ctx context.Context, arg []database.UpsertCommitParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Store) GetCommitsByRepoID(ctx context.Context, repositoryID int64) ([]database.Commit, error) {
	args := m.Called(ctx, repositoryID)
	v, _ := args.Get(0).([]database.Commit)
	return v, args.Error(1)
}

func (m *Store) GetRepoAnalysis(ctx context.Context, repositoryID int64) (database.RepoAnalysis, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).(database.RepoAnalysis), args.Error(1)
}

func (m *Store) ReplaceRepoAnalysis(ctx context.Context, arg database.RepoAnalysisParams) (database.RepoAnalysis, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.RepoAnalysis), args.Error(1)
}

func (m *Store) IncrementRepoAnalysis(ctx context.Context, arg database.RepoAnalysisParams) (database.RepoAnalysis, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.RepoAnalysis), args.Error(1)
}
