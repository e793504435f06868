//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-ai-attribution/internal/auth"
	"github-ai-attribution/internal/config"
	"github-ai-attribution/internal/database"
	"github-ai-attribution/internal/signature"
)

const (
	testInstallationID = 77
	testRepoID         = 9001
	webhookSecret      = "integration-secret"
	authSecret         = "0123456789abcdef0123456789abcdef"
)

func setupTestDatabase(ctx context.Context, t *testing.T) (string, func()) {
	// Start a postgres container
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	require.NoError(t, database.Migrate(connStr))

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}
	return connStr, cleanup
}

// fakeGitHub serves the slice of the REST API the pipeline touches: one
// installation owning one repository with ten commits on main.
func fakeGitHub(t *testing.T) *httptest.Server {
	messages := map[string]string{
		"sha01": "feat: parser\n\nCo-Authored-By: Claude <noreply@anthropic.com>",
		"sha04": "feat: api\n\nCo-authored-by: Copilot <175728472+Copilot@users.noreply.github.com>",
		"sha07": "aider: refactor handler",
	}
	stats := map[string][2]int{
		"sha01": {50, 5},
		"sha04": {20, 2},
		"sha07": {8, 1},
		"sha10": {12, 0},
		"sha11": {3, 3},
	}

	r := chi.NewRouter()
	r.Get("/app/installations/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": %s, "account": {"id": 501, "login": "acme", "type": "User"}}`, chi.URLParam(r, "id"))
	})
	r.Post("/app/installations/{id}/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"token": "ghs_integration", "expires_at": "2099-01-01T00:00:00Z"}`)
	})
	r.Get("/installation/repositories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"total_count": 1, "repositories": [
			{"id": %d, "full_name": "acme/widgets", "default_branch": "main", "pushed_at": "2024-05-01T12:00:00Z"}
		]}`, testRepoID)
	})
	r.Get("/repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("sha"))
		base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		var items []string
		for i := 0; i < 10; i++ {
			sha := fmt.Sprintf("sha%02d", i)
			msg, ok := messages[sha]
			if !ok {
				msg = "fix: thing " + sha
			}
			date := base.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339)
			items = append(items, fmt.Sprintf(
				`{"sha": %q, "commit": {"author": {"name": "dev", "email": "dev@example.com", "date": %q}, "message": %q}}`,
				sha, date, msg))
		}
		fmt.Fprint(w, "["+strings.Join(items, ",")+"]")
	})
	r.Get("/repos/acme/widgets/commits/{sha}", func(w http.ResponseWriter, r *http.Request) {
		sha := chi.URLParam(r, "sha")
		s, ok := stats[sha]
		if !ok {
			s = [2]int{100, 100}
		}
		fmt.Fprintf(w, `{"sha": %q, "stats": {"additions": %d, "deletions": %d, "total": %d}}`, sha, s[0], s[1], s[0]+s[1])
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		t.Logf("unexpected GitHub API call: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(r)
}

func testPrivateKey(t *testing.T) string {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
}

type harness struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
	pool   *pgxpool.Pool
	auth   *auth.Authenticator
}

func (h *harness) session(userID string) string {
	token, err := h.auth.IssueSession(userID, time.Hour)
	require.NoError(h.t, err)
	return token
}

func (h *harness) callback(userID string, installationID int64) url.Values {
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/api/github/callback?installation_id=%d&setup_action=install", h.server.URL, installationID), nil)
	require.NoError(h.t, err)
	req.Header.Set("Authorization", "Bearer "+h.session(userID))

	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	require.Equal(h.t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(h.t, err)
	return loc.Query()
}

func (h *harness) push(deliveryID, body string) int {
	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/webhooks/github", strings.NewReader(body))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "push")
	req.Header.Set("X-GitHub-Delivery", deliveryID)
	req.Header.Set(signature.HeaderName, signature.Sign([]byte(body), webhookSecret))

	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

type rollup struct {
	Total, AI                int64
	LinesAdded, LinesRemoved int64
	Percentage               float64
	Commits                  int64
}

func (h *harness) rollup(ctx context.Context) rollup {
	var r rollup
	err := h.pool.QueryRow(ctx, `
		SELECT a.total_commits, a.ai_commits, a.ai_lines_added, a.ai_lines_removed, t.ai_percentage,
		       (SELECT count(*) FROM commits c WHERE c.repository_id = t.id)
		FROM tracked_repositories t
		JOIN repo_analyses a ON a.repository_id = t.id
		WHERE t.github_repo_id = $1`, testRepoID).
		Scan(&r.Total, &r.AI, &r.LinesAdded, &r.LinesRemoved, &r.Percentage, &r.Commits)
	require.NoError(h.t, err)
	return r
}

func pushPayload(ref string, shas ...string) string {
	messages := map[string]string{
		"sha10": "feat: cache\n\nCo-Authored-By: Claude <noreply@anthropic.com>",
		"sha11": "docs: readme",
	}
	var commits []string
	for _, sha := range shas {
		commits = append(commits, fmt.Sprintf(
			`{"id": %q, "message": %q, "timestamp": "2024-06-01T09:00:00Z", "author": {"name": "dev", "email": "dev@example.com"}}`,
			sha, messages[sha]))
	}
	return fmt.Sprintf(`{
		"ref": %q,
		"installation": {"id": %d},
		"repository": {"id": %d, "full_name": "acme/widgets", "default_branch": "main", "pushed_at": 1717232400},
		"commits": [%s]
	}`, ref, testInstallationID, testRepoID, strings.Join(commits, ","))
}

func TestAttributionPipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	ctx := context.Background()

	// --- ARRANGE ---
	dbURL, cleanup := setupTestDatabase(ctx, t)
	defer cleanup()

	gh := fakeGitHub(t)
	defer gh.Close()

	cfg := &config.Config{
		LogLevel:               "debug",
		DBURL:                  dbURL,
		GithubAppID:            1234,
		GithubAppPrivateKey:    testPrivateKey(t),
		GithubAppSlug:          "ai-attribution",
		GithubWebhookSecret:    webhookSecret,
		GithubAPIURL:           gh.URL + "/",
		AuthSecret:             authSecret,
		DashboardURL:           "https://app.example.com/dashboard",
		CORSAllowedOrigins:     []string{"https://app.example.com"},
		StateTokenTTL:          15 * time.Minute,
		RequestTimeout:         30 * time.Second,
		ManualSyncLimit:        100,
		InitialSyncLimit:       100,
		CommitPageSize:         100,
		DetailFetchConcurrency: 4,
		WebhookFetchStats:      true,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := newApp(ctx, cfg, logger)
	require.NoError(t, err)
	defer a.Close()

	server := httptest.NewServer(a.router())
	defer server.Close()

	h := &harness{
		t:      t,
		server: server,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }},
		pool:   a.pool,
		auth:   auth.NewAuthenticator(authSecret),
	}

	// --- ACT & ASSERT ---
	t.Run("linking an installation runs the initial full sync", func(t *testing.T) {
		q := h.callback("user-1", testInstallationID)
		assert.Equal(t, "connected", q.Get("github"))
		assert.Equal(t, "1", q.Get("synced"))

		got := h.rollup(ctx)
		assert.Equal(t, rollup{Total: 10, AI: 3, LinesAdded: 78, LinesRemoved: 8, Percentage: 30, Commits: 10}, got)
	})

	t.Run("another user cannot claim the same installation", func(t *testing.T) {
		q := h.callback("user-2", testInstallationID)
		assert.Equal(t, "error", q.Get("github"))
		assert.Equal(t, "conflict", q.Get("reason"))
	})

	t.Run("push to the default branch adds only new commits", func(t *testing.T) {
		delivery := uuid.NewString()
		require.Equal(t, http.StatusOK, h.push(delivery, pushPayload("refs/heads/main", "sha10", "sha11")))

		got := h.rollup(ctx)
		assert.Equal(t, rollup{Total: 12, AI: 4, LinesAdded: 90, LinesRemoved: 8, Percentage: 33.33, Commits: 12}, got)

		// same delivery again is dropped before any write
		require.Equal(t, http.StatusOK, h.push(delivery, pushPayload("refs/heads/main", "sha10", "sha11")))
		// new delivery carrying already-stored commits adds nothing
		require.Equal(t, http.StatusOK, h.push(uuid.NewString(), pushPayload("refs/heads/main", "sha10")))
		assert.Equal(t, got, h.rollup(ctx))
	})

	t.Run("push to another branch writes nothing", func(t *testing.T) {
		before := h.rollup(ctx)
		require.Equal(t, http.StatusOK, h.push(uuid.NewString(), pushPayload("refs/heads/feature", "sha10")))
		assert.Equal(t, before, h.rollup(ctx))
	})

	t.Run("bad signature is rejected", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/webhooks/github", strings.NewReader(`{}`))
		require.NoError(t, err)
		req.Header.Set("X-GitHub-Event", "push")
		req.Header.Set(signature.HeaderName, "sha256="+strings.Repeat("0", 64))
		resp, err := h.client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("manual sync overwrites the rollup with the current window", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/sync", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+h.session("user-1"))
		resp, err := h.client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := h.rollup(ctx)
		assert.Equal(t, int64(10), got.Total)
		assert.Equal(t, int64(3), got.AI)
		assert.Equal(t, 30.0, got.Percentage)
		// stored commits outside the window are kept
		assert.Equal(t, int64(12), got.Commits)
	})

	t.Run("manual sync without installations is not found", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/sync", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+h.session("user-3"))
		resp, err := h.client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
