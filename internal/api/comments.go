package api

import (
	"net/http"

	"github.com/alphabot-ai/ranked/internal/ratelimit"
	"github.com/alphabot-ai/ranked/internal/store"
)

type CreateCommentRequest struct {
	Content         string `json:"content"`
	ParentCommentID string `json:"parentCommentId,omitempty"`
}

type ListCommentsResponse struct {
	Comments []*store.Comment `json:"comments"`
}

// AddComment handles POST /api/rankings/{id}/comments
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionComment) {
		return
	}

	var req CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.social.AddComment(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"), req.Content, req.ParentCommentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// ListComments handles GET /api/rankings/{id}/comments?view=tree|flat
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	var tree bool
	switch view := r.URL.Query().Get("view"); view {
	case "", "tree":
		tree = true
	case "flat":
	default:
		writeError(w, http.StatusBadRequest, "view must be 'tree' or 'flat'")
		return
	}

	comments, err := h.social.Comments(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"), tree)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListCommentsResponse{Comments: comments})
}

// DeleteComment handles DELETE /api/rankings/{id}/comments/{commentId}
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.social.DeleteComment(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"), r.PathValue("commentId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
