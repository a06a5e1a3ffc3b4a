package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alphabot-ai/ranked/internal/social"
	"github.com/alphabot-ai/ranked/internal/store"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

// RankingSnapshot is one frame of a ranking stream. The stream ends after a
// frame with Deleted or Error set.
type RankingSnapshot struct {
	Ranking *store.Ranking `json:"ranking,omitempty"`
	Deleted bool           `json:"deleted,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// snapshotFunc reads the current state to send. done ends the stream after
// the snapshot is written.
type snapshotFunc func(ctx context.Context) (v interface{}, done bool, err error)

// StreamNotifications handles GET /api/stream/notifications. Each frame is
// the caller's notification list and unread count.
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.stream(r.Context(), conn, store.CollectionNotifications, func(ctx context.Context) (interface{}, bool, error) {
		snap, err := h.notificationSnapshot(ctx, uid, 0)
		return snap, false, err
	})
}

// StreamRanking handles GET /api/stream/rankings/{id}. Each frame is the
// ranking with its reactions and comments.
func (h *Handler) StreamRanking(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFromContext(r.Context())
	id := r.PathValue("id")

	if _, err := h.social.GetRanking(r.Context(), uid, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.stream(r.Context(), conn, store.CollectionRankings, func(ctx context.Context) (interface{}, bool, error) {
		ranking, err := h.social.GetRanking(ctx, uid, id)
		switch {
		case errors.Is(err, social.ErrNotFound):
			return RankingSnapshot{Deleted: true}, true, nil
		case errors.Is(err, social.ErrForbidden):
			return RankingSnapshot{Error: "forbidden"}, true, nil
		case err != nil:
			return nil, false, err
		}
		return RankingSnapshot{Ranking: ranking}, false, nil
	})
}

// stream sends a snapshot on connect and again after every change to the
// collection that alters it, until the client goes away.
func (h *Handler) stream(ctx context.Context, conn *websocket.Conn, collection store.Collection, snapshot snapshotFunc) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before the first read so no change falls in between.
	changes := h.store.Subscribe(ctx, collection)

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var last []byte
	send := func() bool {
		v, done, err := snapshot(ctx)
		if err != nil {
			h.log.Warn().Err(err).Str("collection", string(collection)).Msg("stream snapshot failed")
			return false
		}
		data, err := json.Marshal(v)
		if err != nil {
			h.log.Error().Err(err).Msg("encode stream snapshot")
			return false
		}
		if !bytes.Equal(data, last) {
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return false
			}
			last = data
		}
		if done {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return false
		}
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok || !send() {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
