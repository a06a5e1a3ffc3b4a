package api

import (
	"net/http"

	"github.com/alphabot-ai/ranked/internal/ratelimit"
	"github.com/alphabot-ai/ranked/internal/social"
	"github.com/alphabot-ai/ranked/internal/store"
)

type RerankRequest struct {
	Items      []store.RankingItem `json:"items"`
	Visibility store.Visibility    `json:"visibility"`
}

// CreateRanking handles POST /api/rankings
func (h *Handler) CreateRanking(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionRanking) {
		return
	}

	var req social.RankingInput
	if !decodeJSON(w, r, &req) {
		return
	}

	ranking, err := h.social.CreateRanking(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ranking)
}

// GetRanking handles GET /api/rankings/{id}
func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.social.GetRanking(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

// EditRanking handles PUT /api/rankings/{id}
func (h *Handler) EditRanking(w http.ResponseWriter, r *http.Request) {
	var req social.RankingInput
	if !decodeJSON(w, r, &req) {
		return
	}

	ranking, err := h.social.EditRanking(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

// DeleteRanking handles DELETE /api/rankings/{id}
func (h *Handler) DeleteRanking(w http.ResponseWriter, r *http.Request) {
	if err := h.social.DeleteRanking(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Rerank handles POST /api/rankings/{id}/rerank
func (h *Handler) Rerank(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionRanking) {
		return
	}

	var req RerankRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ranking, err := h.social.Rerank(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"), req.Items, req.Visibility)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ranking)
}

// SubmitRerank handles POST /api/rankings/{id}/reranks
func (h *Handler) SubmitRerank(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionRanking) {
		return
	}

	var req social.RankingInput
	if !decodeJSON(w, r, &req) {
		return
	}

	rerank, err := h.social.SubmitRerank(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rerank)
}

// Feed handles GET /api/feed?tab=global|following&cursor=&limit=
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := UserIDFromContext(ctx)
	limit := queryInt(r, "limit", 30)
	cursor := r.URL.Query().Get("cursor")

	var (
		feed *social.Feed
		err  error
	)
	switch tab := r.URL.Query().Get("tab"); tab {
	case "", "global":
		feed, err = h.social.GlobalFeed(ctx, uid, limit, cursor)
	case "following":
		feed, err = h.social.FollowingFeed(ctx, uid, limit, cursor)
	default:
		writeError(w, http.StatusBadRequest, "tab must be 'global' or 'following'")
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// UserRankings handles GET /api/users/{id}/rankings
func (h *Handler) UserRankings(w http.ResponseWriter, r *http.Request) {
	feed, err := h.social.UserRankings(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"),
		queryInt(r, "limit", 30), r.URL.Query().Get("cursor"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}
