// internal/api/install.go
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github-ai-attribution/internal/auth"
	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/resolver"
)

// githubCallback finishes the app installation flow and redirects back to
// the dashboard with a github=connected|pending|error flag.
// GET /api/github/callback?installation_id=&setup_action=&state=
func (h *Handler) githubCallback(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	q := r.URL.Query()

	if q.Get("setup_action") == "request" {
		h.redirect(w, r, url.Values{"github": {"pending"}})
		return
	}

	installationID, err := strconv.ParseInt(q.Get("installation_id"), 10, 64)
	if err != nil || installationID <= 0 {
		h.redirect(w, r, url.Values{"github": {"error"}, "reason": {string(custom_errors.Invalid)}})
		return
	}

	req := resolver.Request{UserID: p.UserID, GithubInstallationID: installationID}
	if token := q.Get("state"); token != "" {
		st, err := h.States.Consume(r.Context(), token, p.UserID)
		if err != nil {
			h.Logger.Warn("Rejected org-connect state", "user_id", p.UserID, "error", err)
			h.redirect(w, r, url.Values{"github": {"error"}, "reason": {string(custom_errors.KindOf(err))}})
			return
		}
		req.OrganizationID = st.OrganizationID
	}

	ref, report, err := h.Pipeline.LinkInstallation(r.Context(), req)
	if err != nil {
		h.Logger.Error("Failed to link installation", "user_id", p.UserID, "installation_id", installationID, "error", err)
		h.redirect(w, r, url.Values{"github": {"error"}, "reason": {string(custom_errors.KindOf(err))}})
		return
	}

	h.Logger.Info("Installation linked", "user_id", p.UserID, "installation_id", installationID, "kind", ref.Kind, "synced", report.Synced)
	h.redirect(w, r, url.Values{
		"github": {"connected"},
		"synced": {strconv.Itoa(report.Synced)},
	})
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, params url.Values) {
	target, err := url.Parse(h.cfg.DashboardURL)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	q := target.Query()
	for k, v := range params {
		q[k] = v
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

type orgConnectRequest struct {
	OrgID int64 `json:"org_id"`
}

type orgConnectResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// orgConnect mints the state for connecting an installation to an organization.
// POST /api/github/org-connect
func (h *Handler) orgConnect(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req orgConnectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil || req.OrgID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'org_id'. Must be a positive integer.")
		return
	}
	if err := h.Orgs.RequireAdmin(r.Context(), p.UserID, req.OrgID); err != nil {
		h.respondWithErr(w, r, err)
		return
	}

	state, err := h.States.Issue(p.UserID, req.OrgID)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	installURL := h.cfg.InstallURLBase + url.PathEscape(h.cfg.AppSlug) + "/installations/new?state=" + url.QueryEscape(state)
	respondWithJSON(w, http.StatusOK, orgConnectResponse{URL: installURL, State: state})
}
