package api

import (
	"net/http"

	"github.com/alphabot-ai/ranked/internal/ratelimit"
	"github.com/alphabot-ai/ranked/internal/store"
)

type ReactRequest struct {
	Reaction store.ReactionKind `json:"reaction"`
}

// React handles POST /api/rankings/{id}/reactions
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionReact) {
		return
	}

	var req ReactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.social.React(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"), req.Reaction); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Unreact handles DELETE /api/rankings/{id}/reactions
func (h *Handler) Unreact(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionReact) {
		return
	}
	if err := h.social.Unreact(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
