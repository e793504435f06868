// cmd/service/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github-ai-attribution/internal/analysis"
	"github-ai-attribution/internal/api"
	"github-ai-attribution/internal/auth"
	"github-ai-attribution/internal/config"
	"github-ai-attribution/internal/database"
	"github-ai-attribution/internal/github"
	"github-ai-attribution/internal/ingest"
	"github-ai-attribution/internal/kv"
	"github-ai-attribution/internal/resolver"
	"github-ai-attribution/internal/syncer"
)

// app holds the long-lived components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	store    *database.PostgresStore
	kv       kv.Store
	resolver *resolver.Resolver
	service  *ingest.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	pool, err := database.Connect(ctx, cfg.DBURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connection established")

	a := &app{cfg: cfg, logger: logger, pool: pool, store: database.NewStore(pool)}

	if cfg.RedisURL != "" {
		rs, err := kv.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.kv = rs
		logger.Info("Redis connection established")
	} else {
		logger.Warn("REDIS_URL not set, using in-memory key-value store")
		a.kv = kv.NewMemoryStore()
	}

	appClient, err := github.NewAppClient(cfg.GithubAppID, []byte(cfg.GithubAppPrivateKey), logger,
		github.WithBaseURL(cfg.GithubAPIURL), github.WithPageSize(cfg.CommitPageSize))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create github app client: %w", err)
	}

	a.resolver = resolver.New(a.store, appClient, logger)
	a.service = ingest.NewService(
		a.resolver,
		installationClients(appClient),
		syncer.NewEngine(logger, cfg.DetailFetchConcurrency),
		analysis.NewWriter(a.store, logger),
		a.store,
		ingest.Config{
			ManualSyncLimit:   cfg.ManualSyncLimit,
			InitialSyncLimit:  cfg.InitialSyncLimit,
			WebhookFetchStats: cfg.WebhookFetchStats,
		},
		logger,
	)
	return a, nil
}

func installationClients(appClient *github.AppClient) ingest.ClientFactory {
	return func(ctx context.Context, githubInstallationID int64) (ingest.InstallationClient, error) {
		c, err := appClient.ForInstallation(ctx, githubInstallationID)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (a *app) router() http.Handler {
	return api.NewRouter(api.Deps{
		Pipeline:      a.service,
		Orgs:          a.resolver,
		States:        auth.NewStateIssuer(a.cfg.AuthSecret, a.cfg.StateTokenTTL, a.kv),
		Authenticator: auth.NewAuthenticator(a.cfg.AuthSecret),
		Deliveries:    a.kv,
		Ping:          a.pool.Ping,
		Logger:        a.logger,
	}, api.Config{
		WebhookSecret:  a.cfg.GithubWebhookSecret,
		DashboardURL:   a.cfg.DashboardURL,
		AppSlug:        a.cfg.GithubAppSlug,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		RequestTimeout: a.cfg.RequestTimeout,
	})
}

func (a *app) Close() {
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.Warn("Failed to close key-value store", "error", err)
		}
	}
	a.pool.Close()
}
