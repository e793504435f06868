// internal/ingest/ingest.go

// Package ingest drives the attribution pipeline for the three entry points:
// manual sync, installation linking and push events.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github-ai-attribution/internal/database"
	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
	"github-ai-attribution/internal/resolver"
	"github-ai-attribution/internal/syncer"
)

// InstallationClient is the installation-scoped GitHub API the pipeline uses.
type InstallationClient interface {
	syncer.CommitSource
	ListRepositories(ctx context.Context) ([]model.RemoteRepository, error)
}

// ClientFactory returns a client acting as a platform installation.
type ClientFactory func(ctx context.Context, githubInstallationID int64) (InstallationClient, error)

// Installations resolves tenants to installations.
type Installations interface {
	Resolve(ctx context.Context, req resolver.Request) (model.InstallationRef, error)
	ByGithubInstallation(ctx context.Context, githubID int64) (model.InstallationRef, error)
	ForUser(ctx context.Context, userID string) ([]model.InstallationRef, error)
}

// Engine retrieves and classifies commits.
type Engine interface {
	Sync(ctx context.Context, src syncer.CommitSource, owner, repo, branch string, limit int) (*syncer.Result, error)
	Annotate(ctx context.Context, src syncer.CommitSource, owner, repo string, commits []model.Commit, fetchStats bool) []model.Commit
}

// Writer persists sync results.
type Writer interface {
	UpsertRepository(ctx context.Context, owner model.InstallationRef, repo model.RemoteRepository) (database.TrackedRepository, error)
	WriteFull(ctx context.Context, owner model.InstallationRef, repo model.RemoteRepository, res *syncer.Result) (database.TrackedRepository, error)
	WriteIncremental(ctx context.Context, repo database.TrackedRepository, commits []model.Commit, pushedAt time.Time) (database.RepoAnalysis, error)
}

// Config bounds the commit windows.
type Config struct {
	ManualSyncLimit   int
	InitialSyncLimit  int
	WebhookFetchStats bool
}

// Service wires the resolver, the sync engine and the writer together.
type Service struct {
	installations Installations
	clients       ClientFactory
	engine        Engine
	writer        Writer
	repos         database.Querier
	cfg           Config
	logger        *slog.Logger
}

// NewService creates a new Service instance.
func NewService(installations Installations, clients ClientFactory, engine Engine, writer Writer, repos database.Querier, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		installations: installations,
		clients:       clients,
		engine:        engine,
		writer:        writer,
		repos:         repos,
		cfg:           cfg,
		logger:        logger,
	}
}

// RepoResult is the outcome of syncing one repository.
type RepoResult struct {
	Repo         string
	GithubRepoID int64
	Status       syncer.Status
	TotalCommits int
	AICommits    int
	AIPercentage float64
	Skipped      int
	Err          error
}

// Report collects per-repository results of a multi-repository sync.
type Report struct {
	Synced  int
	Results []RepoResult
}

func (r *Report) add(res RepoResult) {
	if res.Err == nil {
		r.Synced++
	}
	r.Results = append(r.Results, res)
}

// ManualSync runs a full sync of every repository the user may act on. When
// githubRepoID is non-nil only that repository is synced. Failures of single
// repositories are reported in the result and do not stop the others.
func (s *Service) ManualSync(ctx context.Context, userID string, githubRepoID *int64) (*Report, error) {
	const op = "manual sync"
	refs, err := s.installations.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, custom_errors.Ef(custom_errors.NotFound, op, "no installation linked")
	}

	report := &Report{}
	matched := false
	var installErr error
	for _, ref := range refs {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		n, err := s.syncInstallation(ctx, ref, githubRepoID, s.cfg.ManualSyncLimit, report)
		if err != nil {
			s.logger.Error("Failed to sync installation", "installation_id", ref.GithubInstallationID, "error", err)
			if githubRepoID == nil {
				report.add(RepoResult{Status: syncer.StatusFailed, Err: err})
			} else if installErr == nil {
				installErr = err
			}
			continue
		}
		matched = matched || n > 0
	}

	if githubRepoID != nil && !matched {
		// The repository may sit behind the installation that failed.
		if installErr != nil {
			return nil, installErr
		}
		return nil, custom_errors.Ef(custom_errors.NotFound, op, "repository %d is not visible to your installations", *githubRepoID)
	}
	return report, nil
}

// LinkInstallation resolves the installation for the tenant in req, then runs
// a short initial sync of every repository it can see.
func (s *Service) LinkInstallation(ctx context.Context, req resolver.Request) (model.InstallationRef, *Report, error) {
	ref, err := s.installations.Resolve(ctx, req)
	if err != nil {
		return model.InstallationRef{}, nil, err
	}
	report := &Report{}
	if _, err := s.syncInstallation(ctx, ref, nil, s.cfg.InitialSyncLimit, report); err != nil {
		// The link stands; repositories are picked up by the next manual sync.
		s.logger.Error("Initial sync failed", "installation_id", ref.GithubInstallationID, "error", err)
		report.add(RepoResult{Status: syncer.StatusFailed, Err: err})
	}
	return ref, report, nil
}

// syncInstallation syncs the repositories visible to ref and returns how many
// matched the filter.
func (s *Service) syncInstallation(ctx context.Context, ref model.InstallationRef, githubRepoID *int64, limit int, report *Report) (int, error) {
	client, err := s.clients(ctx, ref.GithubInstallationID)
	if err != nil {
		return 0, err
	}
	remotes, err := client.ListRepositories(ctx)
	if err != nil {
		return 0, err
	}

	matched := 0
	for _, remote := range remotes {
		if githubRepoID != nil && remote.GithubRepoID != *githubRepoID {
			continue
		}
		matched++
		if ctx.Err() != nil {
			report.add(RepoResult{Repo: remote.FullName, GithubRepoID: remote.GithubRepoID, Status: syncer.StatusFailed, Err: ctx.Err()})
			continue
		}
		report.add(s.syncRepository(ctx, client, ref, remote, limit))
	}
	return matched, nil
}

func (s *Service) syncRepository(ctx context.Context, client InstallationClient, ref model.InstallationRef, remote model.RemoteRepository, limit int) RepoResult {
	out := RepoResult{Repo: remote.FullName, GithubRepoID: remote.GithubRepoID}
	logger := s.logger.With("repo", remote.FullName, "installation_id", ref.GithubInstallationID)

	owner, name, err := model.SplitFullName(remote.FullName)
	if err != nil {
		out.Status, out.Err = syncer.StatusFailed, err
		return out
	}

	res, err := s.engine.Sync(ctx, client, owner, name, remote.DefaultBranch, limit)
	if err != nil {
		out.Status, out.Err = syncer.StatusFailed, err
		if res != nil {
			out.Skipped = res.Skipped
		}
		// Keep the repository listed even when its commits could not be read.
		if _, uerr := s.writer.UpsertRepository(ctx, ref, remote); uerr != nil {
			logger.Error("Failed to record repository", "error", uerr)
		}
		return out
	}

	if _, err := s.writer.WriteFull(ctx, ref, remote, res); err != nil {
		logger.Error("Failed to persist sync", "error", err)
		out.Status, out.Err = syncer.StatusFailed, err
		return out
	}

	out.Status = res.Status
	out.TotalCommits = res.Totals.TotalCommits
	out.AICommits = res.Totals.AICommits
	out.AIPercentage = res.AIPercentage()
	out.Skipped = res.Skipped
	return out
}
