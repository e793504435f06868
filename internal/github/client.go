// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
)

const (
	// maxRetries is the total number of attempts for one API call.
	maxRetries = 3
	// maxRateLimitWait caps how long a call blocks waiting for a rate-limit reset.
	maxRateLimitWait = time.Minute
	defaultPageSize  = 100
)

// retryInitialInterval is a var so tests can shorten it.
var retryInitialInterval = 250 * time.Millisecond

// ErrUnexpectedResponse marks API payloads missing fields we depend on.
var ErrUnexpectedResponse = errors.New("unexpected response shape")

// Client is a wrapper around the go-github client scoped to one credential.
type Client struct {
	gh       *github.Client
	logger   *slog.Logger
	pageSize int
}

// Option customises clients built by this package.
type Option func(*options)

type options struct {
	baseURL  string
	pageSize int
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithPageSize sets the list page size (1-100).
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 && n <= 100 {
			o.pageSize = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewClient creates a Client authenticated with a static token.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	return newClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), logger, buildOptions(opts))
}

func newClient(ts oauth2.TokenSource, logger *slog.Logger, o options) (*Client, error) {
	gh, err := newGithub(oauth2.NewClient(context.Background(), ts), o.baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{gh: gh, logger: logger, pageSize: o.pageSize}, nil
}

func newGithub(hc *http.Client, baseURL string) (*github.Client, error) {
	gh := github.NewClient(hc)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, err
		}
		gh.BaseURL = u
	}
	return gh, nil
}

// ListCommits returns up to limit most recent commits on branch, newest first.
// Line stats are not part of the list response; see GetCommitStats.
func (c *Client) ListCommits(ctx context.Context, owner, repo, branch string, limit int) ([]model.Commit, error) {
	if limit <= 0 {
		return nil, nil
	}
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: min(c.pageSize, limit)},
	}

	var commits []model.Commit
	for {
		c.logger.Debug("Fetching commits page", "owner", owner, "repo", repo, "branch", branch, "page", opts.Page)

		var page []*github.RepositoryCommit
		var resp *github.Response
		err := c.do(ctx, "list commits", func() (*github.Response, error) {
			var err error
			page, resp, err = c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
			return resp, err
		})
		if err != nil {
			return nil, custom_errors.E(custom_errors.UpstreamFailure, "github: list commits", err)
		}

		for _, rc := range page {
			commit, err := toInternalCommit(rc)
			if err != nil {
				c.logger.Warn("Skipping malformed commit in list response", "owner", owner, "repo", repo, "error", err)
				continue
			}
			commits = append(commits, commit)
			if len(commits) >= limit {
				return commits, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

// GetCommitStats fetches the detail of one commit for its line statistics.
func (c *Client) GetCommitStats(ctx context.Context, owner, repo, sha string) (model.LineStats, error) {
	var rc *github.RepositoryCommit
	err := c.do(ctx, "get commit", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		rc, resp, err = c.gh.Repositories.GetCommit(ctx, owner, repo, sha, nil)
		return resp, err
	})
	if err != nil {
		return model.LineStats{}, custom_errors.E(custom_errors.UpstreamFailure, "github: get commit "+sha, err)
	}
	if rc == nil || rc.Stats == nil || rc.Stats.Additions == nil || rc.Stats.Deletions == nil {
		return model.LineStats{}, custom_errors.Ef(custom_errors.UpstreamFailure, "github: get commit "+sha, "%w: missing stats", ErrUnexpectedResponse)
	}
	return model.LineStats{Added: rc.Stats.GetAdditions(), Removed: rc.Stats.GetDeletions()}, nil
}

// ListRepositories lists every repository the installation can access.
// Only valid on installation-scoped clients.
func (c *Client) ListRepositories(ctx context.Context) ([]model.RemoteRepository, error) {
	opts := &github.ListOptions{PerPage: c.pageSize}
	var repos []model.RemoteRepository
	for {
		var page *github.ListRepositories
		var resp *github.Response
		err := c.do(ctx, "list installation repositories", func() (*github.Response, error) {
			var err error
			page, resp, err = c.gh.Apps.ListRepos(ctx, opts)
			return resp, err
		})
		if err != nil {
			return nil, custom_errors.E(custom_errors.UpstreamFailure, "github: list installation repositories", err)
		}
		if page != nil {
			for _, r := range page.Repositories {
				repo, err := toRemoteRepository(r)
				if err != nil {
					c.logger.Warn("Skipping malformed repository in list response", "error", err)
					continue
				}
				repos = append(repos, repo)
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return repos, nil
}

// do runs call with exponential backoff on 5xx and transport errors, and
// waits out primary/secondary rate limits up to maxRateLimitWait.
func (c *Client) do(ctx context.Context, op string, call func() (*github.Response, error)) error {
	return retry(ctx, c.logger, op, call)
}

func retry(ctx context.Context, logger *slog.Logger, op string, call func() (*github.Response, error)) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInitialInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries-1), ctx)

	return backoff.Retry(func() error {
		resp, err := call()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if wait, limited := rateLimitWait(err); limited {
			if wait > maxRateLimitWait {
				return backoff.Permanent(err)
			}
			logger.Warn("GitHub rate limit hit, waiting for reset", "op", op, "wait", wait.String())
			if serr := sleep(ctx, wait); serr != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if isRetryable(resp, err) {
			logger.Warn("GitHub call failed, retrying", "op", op, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func rateLimitWait(err error) (time.Duration, bool) {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		wait := time.Until(rle.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}
		return wait + 100*time.Millisecond, true
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		if abuse.RetryAfter != nil {
			return *abuse.RetryAfter, true
		}
		return time.Second, true
	}
	return 0, false
}

func isRetryable(resp *github.Response, err error) bool {
	var er *github.ErrorResponse
	if errors.As(err, &er) {
		return er.Response != nil && er.Response.StatusCode >= http.StatusInternalServerError
	}
	if resp != nil && resp.Response != nil {
		return resp.StatusCode >= http.StatusInternalServerError
	}
	// no response at all: transport failure
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// toInternalCommit translates a github.RepositoryCommit into an unclassified model.Commit.
func toInternalCommit(c *github.RepositoryCommit) (model.Commit, error) {
	if c == nil || c.GetSHA() == "" || c.Commit == nil {
		return model.Commit{}, ErrUnexpectedResponse
	}
	author := c.GetCommit().GetAuthor()
	committedAt := author.GetDate().Time
	if committer := c.GetCommit().GetCommitter(); committer != nil && !committer.GetDate().IsZero() {
		committedAt = committer.GetDate().Time
	}
	return model.Commit{
		SHA:         c.GetSHA(),
		AuthorName:  author.GetName(),
		AuthorEmail: author.GetEmail(),
		Message:     c.GetCommit().GetMessage(),
		CommittedAt: committedAt,
	}, nil
}

// toRemoteRepository translates a github.Repository into model.RemoteRepository.
func toRemoteRepository(r *github.Repository) (model.RemoteRepository, error) {
	if r == nil || r.GetID() == 0 || r.GetFullName() == "" {
		return model.RemoteRepository{}, ErrUnexpectedResponse
	}
	repo := model.RemoteRepository{
		GithubRepoID:  r.GetID(),
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}
	if r.PushedAt != nil {
		t := r.GetPushedAt().Time
		repo.PushedAt = &t
	}
	return repo, nil
}
