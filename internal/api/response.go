// internal/api/response.go
package api

import (
	"encoding/json"
	"net/http"

	custom_errors "github-ai-attribution/internal/errors"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithErr maps err's kind onto a status. Server-side failures are
// logged and answered with a generic message.
func (h *Handler) respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := custom_errors.KindOf(err)
	code := custom_errors.HTTPStatus(kind)
	switch {
	case code >= http.StatusInternalServerError && kind == custom_errors.UpstreamFailure:
		h.Logger.Error("Upstream call failed", "path", r.URL.Path, "error", err)
		respondWithError(w, code, "GitHub request failed")
	case code >= http.StatusInternalServerError:
		h.Logger.Error("Request failed", "path", r.URL.Path, "error", err)
		respondWithError(w, code, "Internal server error")
	default:
		respondWithError(w, code, err.Error())
	}
}
