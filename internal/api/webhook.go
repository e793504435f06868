// internal/api/webhook.go
package api

import (
	"context"
	"io"
	"net/http"

	"github-ai-attribution/internal/github"
	"github-ai-attribution/internal/ingest"
	"github-ai-attribution/internal/signature"
)

// GitHub caps webhook payloads at 25 MB.
const maxWebhookBody = 25 << 20

const deliveryKeyPrefix = "webhook-delivery:"

// githubWebhook handles push deliveries.
// POST /webhooks/github
func (h *Handler) githubWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}
	if !signature.Verify(body, r.Header.Get(signature.HeaderName), h.cfg.WebhookSecret) {
		h.Logger.Warn("Rejected webhook with invalid signature", "delivery", github.DeliveryID(r))
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	event := github.EventType(r)
	if event == github.EventPing {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "pong"})
		return
	}
	if event != github.EventPush {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Event " + event + " ignored"})
		return
	}

	ev, err := github.ParsePushEvent(body)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	push := ingest.Push{
		GithubInstallationID: ev.InstallationID,
		GithubRepoID:         ev.RepoID,
		FullName:             ev.FullName,
		DefaultBranch:        ev.DefaultBranch,
		Ref:                  ev.Ref,
		Commits:              ev.Commits,
		PushedAt:             ev.PushedAt,
	}
	if !push.OnDefaultBranch() {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Push to non-default branch ignored"})
		return
	}

	release, fresh := h.claimDelivery(r.Context(), github.DeliveryID(r))
	if !fresh {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Duplicate delivery ignored"})
		return
	}

	out, err := h.Pipeline.HandlePush(r.Context(), push)
	if err != nil {
		release()
		h.respondWithErr(w, r, err)
		return
	}
	if out.Ignored {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Push ignored: " + out.Reason})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Push processed",
		"commits":        out.Commits,
		"total_commits":  out.Analysis.TotalCommits,
		"ai_commits":     out.Analysis.AICommits,
		"ai_lines_added": out.Analysis.AILinesAdded,
	})
}

// claimDelivery marks a delivery id as being processed. The returned release
// func forgets the claim so a redelivery after a failure is processed again.
// Without an id or a kv store every delivery is treated as fresh.
func (h *Handler) claimDelivery(ctx context.Context, id string) (release func(), fresh bool) {
	noop := func() {}
	if id == "" || h.Deliveries == nil {
		return noop, true
	}
	key := deliveryKeyPrefix + id
	ok, err := h.Deliveries.SetNX(ctx, key, []byte("1"), h.cfg.DeliveryTTL)
	if err != nil {
		h.Logger.Warn("Delivery de-duplication unavailable", "delivery", id, "error", err)
		return noop, true
	}
	if !ok {
		h.Logger.Info("Skipping duplicate delivery", "delivery", id)
		return noop, false
	}
	return func() {
		if err := h.Deliveries.Delete(context.WithoutCancel(ctx), key); err != nil {
			h.Logger.Warn("Failed to release delivery claim", "delivery", id, "error", err)
		}
	}, true
}
