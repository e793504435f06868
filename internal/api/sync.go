// internal/api/sync.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github-ai-attribution/internal/auth"
	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/ingest"
)

type syncRequest struct {
	RepoID *int64 `json:"repo_id"`
}

type syncResult struct {
	Repo         string  `json:"repo"`
	TotalCommits int     `json:"totalCommits"`
	AICommits    int     `json:"aiCommits"`
	AIPercentage float64 `json:"aiPercentage"`
	Status       string  `json:"status"`
	Skipped      int     `json:"skipped,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type syncResponse struct {
	Success bool         `json:"success"`
	Synced  int          `json:"synced"`
	Results []syncResult `json:"results"`
}

// manualSync runs a full sync for the caller's repositories.
// POST /api/sync
func (h *Handler) manualSync(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req syncRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RepoID != nil && *req.RepoID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'repo_id'. Must be a positive integer.")
		return
	}

	report, err := h.Pipeline.ManualSync(r.Context(), p.UserID, req.RepoID)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toSyncResponse(report))
}

func toSyncResponse(report *ingest.Report) syncResponse {
	resp := syncResponse{Success: true, Synced: report.Synced, Results: make([]syncResult, 0, len(report.Results))}
	for _, res := range report.Results {
		item := syncResult{
			Repo:         res.Repo,
			TotalCommits: res.TotalCommits,
			AICommits:    res.AICommits,
			AIPercentage: res.AIPercentage,
			Status:       string(res.Status),
			Skipped:      res.Skipped,
		}
		if res.Err != nil {
			item.Error = publicMessage(res.Err)
		}
		resp.Results = append(resp.Results, item)
	}
	return resp
}

// publicMessage hides internal error detail from per-item results.
func publicMessage(err error) string {
	switch custom_errors.KindOf(err) {
	case custom_errors.UpstreamFailure:
		return "GitHub request failed"
	case custom_errors.Internal, custom_errors.PersistenceFailure:
		return "Internal server error"
	default:
		return err.Error()
	}
}
