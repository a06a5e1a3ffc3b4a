package api

import (
	"context"
	"net/http"

	"github.com/alphabot-ai/ranked/internal/store"
)

type NotificationsResponse struct {
	Notifications []*store.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

type MarkAllReadResponse struct {
	Marked int `json:"marked"`
}

// ListNotifications handles GET /api/notifications?limit=
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	resp, err := h.notificationSnapshot(r.Context(), UserIDFromContext(r.Context()), queryInt(r, "limit", 0))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) notificationSnapshot(ctx context.Context, uid string, limit int) (*NotificationsResponse, error) {
	list, err := h.social.ListNotifications(ctx, uid, limit)
	if err != nil {
		return nil, err
	}
	unread, err := h.social.UnreadCount(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &NotificationsResponse{Notifications: list, Unread: unread}, nil
}

// MarkNotificationRead handles POST /api/notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.social.MarkNotificationRead(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// MarkAllRead handles POST /api/notifications/read
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.social.MarkAllRead(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkAllReadResponse{Marked: n})
}

// DeleteNotification handles DELETE /api/notifications/{id}
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.social.DeleteNotification(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
