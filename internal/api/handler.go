// internal/api/handler.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github-ai-attribution/internal/auth"
	"github-ai-attribution/internal/ingest"
	"github-ai-attribution/internal/kv"
	"github-ai-attribution/internal/model"
	"github-ai-attribution/internal/resolver"
)

const defaultInstallURLBase = "https://github.com/apps/"

// Pipeline is the ingestion service behind the handlers.
type Pipeline interface {
	ManualSync(ctx context.Context, userID string, githubRepoID *int64) (*ingest.Report, error)
	LinkInstallation(ctx context.Context, req resolver.Request) (model.InstallationRef, *ingest.Report, error)
	HandlePush(ctx context.Context, p ingest.Push) (*ingest.PushOutcome, error)
}

// OrgAdmins checks organization roles.
type OrgAdmins interface {
	RequireAdmin(ctx context.Context, userID string, organizationID int64) error
}

// StateTokens issues and consumes org-connect state.
type StateTokens interface {
	Issue(userID string, organizationID int64) (string, error)
	Consume(ctx context.Context, token, userID string) (auth.OrgState, error)
}

// Config holds the HTTP-facing settings.
type Config struct {
	WebhookSecret  string
	DashboardURL   string
	AppSlug        string
	InstallURLBase string
	AllowedOrigins []string
	RequestTimeout time.Duration
	DeliveryTTL    time.Duration
}

// Deps are the collaborators the router wires.
type Deps struct {
	Pipeline      Pipeline
	Orgs          OrgAdmins
	States        StateTokens
	Authenticator *auth.Authenticator
	Deliveries    kv.Store
	// Ping reports store health; optional.
	Ping   func(ctx context.Context) error
	Logger *slog.Logger
}

// Handler is the container for API dependencies.
type Handler struct {
	Deps
	cfg Config
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(deps Deps, cfg Config) http.Handler {
	if cfg.InstallURLBase == "" {
		cfg.InstallURLBase = defaultInstallURLBase
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.DeliveryTTL <= 0 {
		cfg.DeliveryTTL = 24 * time.Hour
	}
	h := &Handler{Deps: deps, cfg: cfg}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", h.healthCheck)
	r.Post("/webhooks/github", h.githubWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(deps.Authenticator.Middleware(h.respondWithErr))

		r.Post("/sync", h.manualSync)
		r.Get("/github/callback", h.githubCallback)
		r.Post("/github/org-connect", h.orgConnect)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			h.Logger.Error("Health check failed", "error", err)
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("Request completed",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
