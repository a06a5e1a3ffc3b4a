package api

import (
	"net/http"
	"time"

	"github.com/alphabot-ai/ranked/internal/ratelimit"
	"github.com/alphabot-ai/ranked/internal/social"
	"github.com/alphabot-ai/ranked/internal/store"
)

// PublicUser is the profile other users see.
type PublicUser struct {
	ID             string    `json:"uid"`
	DisplayName    string    `json:"displayName"`
	FullName       string    `json:"fullName,omitempty"`
	Followers      []string  `json:"followers"`
	Following      []string  `json:"following"`
	FollowerCount  int       `json:"followerCount"`
	FollowingCount int       `json:"followingCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

func publicUser(u *store.User) PublicUser {
	return PublicUser{
		ID:             u.ID,
		DisplayName:    u.DisplayName,
		FullName:       u.FullName,
		Followers:      u.Followers,
		Following:      u.Following,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		CreatedAt:      u.CreatedAt,
	}
}

func publicUsers(users []*store.User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, publicUser(u))
	}
	return out
}

type UsersResponse struct {
	Users []PublicUser `json:"users"`
}

// RegisterUser handles POST /api/users
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req social.Registration
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.social.RegisterUser(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.social.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(user))
}

// SearchUsers handles GET /api/users?q=
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.social.SearchUsers(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 20))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UsersResponse{Users: publicUsers(users)})
}

// ListFollowers handles GET /api/users/{id}/followers
func (h *Handler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	users, err := h.social.ListFollowers(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UsersResponse{Users: publicUsers(users)})
}

// ListFollowing handles GET /api/users/{id}/following
func (h *Handler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	users, err := h.social.ListFollowing(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UsersResponse{Users: publicUsers(users)})
}

// Follow handles POST /api/users/{id}/follow
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionFollow) {
		return
	}
	if err := h.social.Follow(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Unfollow handles DELETE /api/users/{id}/follow
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionFollow) {
		return
	}
	if err := h.social.Unfollow(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Block handles POST /api/users/{id}/block
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	if err := h.social.Block(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Unblock handles DELETE /api/users/{id}/block
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.social.Unblock(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

type AvailabilityResponse struct {
	DisplayName *bool `json:"displayName,omitempty"`
	Email       *bool `json:"email,omitempty"`
}

// Availability handles GET /api/availability?displayName=&email=. It is
// public so the sign-up form can check before an account exists.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	var resp AvailabilityResponse
	if name := r.URL.Query().Get("displayName"); name != "" {
		ok, err := h.social.UsernameAvailable(r.Context(), name)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		resp.DisplayName = &ok
	}
	if email := r.URL.Query().Get("email"); email != "" {
		ok, err := h.social.EmailAvailable(r.Context(), email)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		resp.Email = &ok
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMe handles GET /api/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.social.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UpdateMeRequest struct {
	PushToken     *string `json:"pushToken,omitempty"`
	BadWordsMode  *bool   `json:"badWordsMode,omitempty"`
	AcceptedTerms *bool   `json:"acceptedTerms,omitempty"`
}

// UpdateMe handles PATCH /api/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AcceptedTerms != nil && !*req.AcceptedTerms {
		writeError(w, http.StatusBadRequest, "terms cannot be withdrawn")
		return
	}

	ctx := r.Context()
	uid := UserIDFromContext(ctx)
	if req.PushToken != nil {
		if err := h.social.SetPushToken(ctx, uid, *req.PushToken); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	if req.BadWordsMode != nil {
		if err := h.social.SetBadWordsMode(ctx, uid, *req.BadWordsMode); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	if req.AcceptedTerms != nil {
		if err := h.social.AcceptTerms(ctx, uid); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}

	h.GetMe(w, r)
}

type CounterResponse struct {
	Value int `json:"value"`
}

// RecordShare handles POST /api/me/share
func (h *Handler) RecordShare(w http.ResponseWriter, r *http.Request) {
	n, err := h.social.RecordShare(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CounterResponse{Value: n})
}

// AdvanceSecretButton handles POST /api/me/secret
func (h *Handler) AdvanceSecretButton(w http.ResponseWriter, r *http.Request) {
	n, err := h.social.AdvanceSecretButton(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CounterResponse{Value: n})
}

// DeleteMe handles DELETE /api/me
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.social.DeleteUserAccount(r.Context(), UserIDFromContext(r.Context())); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
