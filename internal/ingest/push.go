// internal/ingest/push.go
package ingest

import (
	"context"
	"time"

	"github-ai-attribution/internal/database"
	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
	"github-ai-attribution/internal/syncer"
)

// Push is the part of a push event the pipeline acts on.
type Push struct {
	GithubInstallationID int64
	GithubRepoID         int64
	FullName             string
	DefaultBranch        string
	Ref                  string
	Commits              []model.Commit
	PushedAt             time.Time
}

// OnDefaultBranch reports whether the push targets the repository's default branch.
func (p Push) OnDefaultBranch() bool {
	return p.DefaultBranch != "" && p.Ref == "refs/heads/"+p.DefaultBranch
}

// PushOutcome describes what HandlePush did.
type PushOutcome struct {
	Ignored  bool
	Reason   string
	Commits  int
	Analysis database.RepoAnalysis
}

// HandlePush records the commits of a push to a tracked repository's default
// branch and adds them to its rollup. Pushes elsewhere are ignored without
// touching the store; a push without commits is only checked against the
// tracked repositories.
func (s *Service) HandlePush(ctx context.Context, p Push) (*PushOutcome, error) {
	const op = "handle push"
	logger := s.logger.With("repo", p.FullName, "installation_id", p.GithubInstallationID, "ref", p.Ref)

	if !p.OnDefaultBranch() {
		logger.Debug("Ignoring push to non-default branch")
		return &PushOutcome{Ignored: true, Reason: "not the default branch"}, nil
	}
	ref, err := s.installations.ByGithubInstallation(ctx, p.GithubInstallationID)
	if err != nil {
		return nil, err
	}
	tracked, err := s.repos.GetTrackedRepository(ctx, database.GetTrackedRepositoryParams{
		Owner:        database.OwnerOf(ref),
		GithubRepoID: p.GithubRepoID,
	})
	if database.IsNotFound(err) {
		return nil, custom_errors.Ef(custom_errors.NotFound, op, "repository %d is not tracked", p.GithubRepoID)
	}
	if err != nil {
		return nil, database.Classify(op, err)
	}
	if !tracked.IsActive {
		return nil, custom_errors.Ef(custom_errors.NotFound, op, "repository %s is inactive", tracked.FullName)
	}
	if len(p.Commits) == 0 {
		return &PushOutcome{Ignored: true, Reason: "no commits"}, nil
	}

	owner, name, err := model.SplitFullName(tracked.FullName)
	if err != nil {
		return nil, err
	}

	var src syncer.CommitSource
	if s.cfg.WebhookFetchStats {
		client, err := s.clients(ctx, p.GithubInstallationID)
		if err != nil {
			logger.Warn("No installation client, recording push without line stats", "error", err)
		} else {
			src = client
		}
	}
	commits := s.engine.Annotate(ctx, src, owner, name, p.Commits, src != nil)

	pushedAt := p.PushedAt
	if pushedAt.IsZero() {
		pushedAt = time.Now()
	}
	analysis, err := s.writer.WriteIncremental(ctx, tracked, commits, pushedAt)
	if err != nil {
		return nil, err
	}
	return &PushOutcome{Commits: len(commits), Analysis: analysis}, nil
}
