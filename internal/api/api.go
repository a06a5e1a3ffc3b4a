package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/alphabot-ai/ranked/internal/auth"
	"github.com/alphabot-ai/ranked/internal/config"
	"github.com/alphabot-ai/ranked/internal/ratelimit"
	"github.com/alphabot-ai/ranked/internal/social"
	"github.com/alphabot-ai/ranked/internal/store"
)

// Handler holds dependencies for API handlers
type Handler struct {
	social   *social.Service
	store    store.Store
	verifier *auth.Verifier
	policy   *ratelimit.Policy
	cfg      *config.Config
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc *social.Service, s store.Store, verifier *auth.Verifier, policy *ratelimit.Policy, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		social:   svc,
		store:    s,
		verifier: verifier,
		policy:   policy,
		cfg:      cfg,
		log:      log.With().Str("component", "api").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Users
	mux.HandleFunc("POST /api/users", h.RequireAuth(h.RegisterUser))
	mux.HandleFunc("GET /api/users", h.RequireAuth(h.SearchUsers))
	mux.HandleFunc("GET /api/users/{id}", h.RequireAuth(h.GetUser))
	mux.HandleFunc("GET /api/users/{id}/followers", h.RequireAuth(h.ListFollowers))
	mux.HandleFunc("GET /api/users/{id}/following", h.RequireAuth(h.ListFollowing))
	mux.HandleFunc("GET /api/users/{id}/rankings", h.RequireAuth(h.UserRankings))
	mux.HandleFunc("POST /api/users/{id}/follow", h.RequireAuth(h.Follow))
	mux.HandleFunc("DELETE /api/users/{id}/follow", h.RequireAuth(h.Unfollow))
	mux.HandleFunc("POST /api/users/{id}/block", h.RequireAuth(h.Block))
	mux.HandleFunc("DELETE /api/users/{id}/block", h.RequireAuth(h.Unblock))
	mux.HandleFunc("GET /api/availability", h.Availability)

	// Current user
	mux.HandleFunc("GET /api/me", h.RequireAuth(h.GetMe))
	mux.HandleFunc("PATCH /api/me", h.RequireAuth(h.UpdateMe))
	mux.HandleFunc("DELETE /api/me", h.RequireAuth(h.DeleteMe))
	mux.HandleFunc("POST /api/me/share", h.RequireAuth(h.RecordShare))
	mux.HandleFunc("POST /api/me/secret", h.RequireAuth(h.AdvanceSecretButton))

	// Rankings
	mux.HandleFunc("POST /api/rankings", h.RequireAuth(h.CreateRanking))
	mux.HandleFunc("GET /api/rankings/{id}", h.RequireAuth(h.GetRanking))
	mux.HandleFunc("PUT /api/rankings/{id}", h.RequireAuth(h.EditRanking))
	mux.HandleFunc("DELETE /api/rankings/{id}", h.RequireAuth(h.DeleteRanking))
	mux.HandleFunc("POST /api/rankings/{id}/rerank", h.RequireAuth(h.Rerank))
	mux.HandleFunc("POST /api/rankings/{id}/reranks", h.RequireAuth(h.SubmitRerank))
	mux.HandleFunc("GET /api/feed", h.RequireAuth(h.Feed))

	// Reactions and comments
	mux.HandleFunc("POST /api/rankings/{id}/reactions", h.RequireAuth(h.React))
	mux.HandleFunc("DELETE /api/rankings/{id}/reactions", h.RequireAuth(h.Unreact))
	mux.HandleFunc("POST /api/rankings/{id}/comments", h.RequireAuth(h.AddComment))
	mux.HandleFunc("GET /api/rankings/{id}/comments", h.RequireAuth(h.ListComments))
	mux.HandleFunc("DELETE /api/rankings/{id}/comments/{commentId}", h.RequireAuth(h.DeleteComment))

	// Notifications
	mux.HandleFunc("GET /api/notifications", h.RequireAuth(h.ListNotifications))
	mux.HandleFunc("POST /api/notifications/read", h.RequireAuth(h.MarkAllRead))
	mux.HandleFunc("POST /api/notifications/{id}/read", h.RequireAuth(h.MarkNotificationRead))
	mux.HandleFunc("DELETE /api/notifications/{id}", h.RequireAuth(h.DeleteNotification))

	// Moderation
	mux.HandleFunc("POST /api/reports", h.RequireAuth(h.ReportContent))

	// Admin routes (requires admin secret)
	mux.HandleFunc("POST /api/admin/repair", h.Repair)
	mux.HandleFunc("GET /api/admin/reports", h.ListReports)

	// Snapshot streams
	mux.HandleFunc("GET /api/stream/notifications", h.RequireAuth(h.StreamNotifications))
	mux.HandleFunc("GET /api/stream/rankings/{id}", h.RequireAuth(h.StreamRanking))
}

// Response helpers

type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeRateLimited(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:      "rate limit exceeded",
		RetryAfter: retryAfter,
	})
}

// writeServiceError maps social errors to status codes. Unknown errors are
// logged and reported without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, social.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, social.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, social.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, social.ErrSelfFollow),
		errors.Is(err, social.ErrSelfBlock),
		errors.Is(err, social.ErrInvalidReaction),
		errors.Is(err, social.ErrEmptyComment),
		errors.Is(err, social.ErrInvalidRanking),
		errors.Is(err, social.ErrInvalidReport),
		errors.Is(err, social.ErrInvalidUser),
		errors.Is(err, store.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Request helpers

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func getToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	// Websocket clients cannot always set headers.
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// checkRateLimit writes a 429 and returns false when the actor is over the
// limit for action.
func (h *Handler) checkRateLimit(w http.ResponseWriter, r *http.Request, action ratelimit.Action) bool {
	allowed, retryAfter := h.policy.Allow(UserIDFromContext(r.Context()), action)
	if !allowed {
		writeRateLimited(w, int(retryAfter.Seconds()))
		return false
	}
	return true
}

func (h *Handler) isAdmin(r *http.Request) bool {
	secret := r.Header.Get("X-Admin-Secret")
	return h.cfg.AdminSecret != "" && secret == h.cfg.AdminSecret
}
