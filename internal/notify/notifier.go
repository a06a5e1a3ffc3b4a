package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/alphabot-ai/ranked/internal/push"
	"github.com/alphabot-ai/ranked/internal/store"
)

// Notifier writes notification documents and forwards them to the push relay.
type Notifier struct {
	store store.Store
	relay push.Relay
	log   zerolog.Logger
	now   func() time.Time
}

func New(s store.Store, relay push.Relay, log zerolog.Logger) *Notifier {
	if relay == nil {
		relay = push.Discard{}
	}
	return &Notifier{
		store: s,
		relay: relay,
		log:   log.With().Str("component", "notify").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create records one notification from fromUserID to toUserID and pushes it
// to the recipient's device when a token is on file. It returns (nil, nil)
// for self-actions. Only the document write can fail the call; push problems
// are logged.
func (n *Notifier) Create(ctx context.Context, fromUserID, fromUsername, toUserID string, p Payload) (*store.Notification, error) {
	if fromUserID == toUserID {
		return nil, nil
	}

	notification := Compose(fromUserID, fromUsername, toUserID, p)
	notification.CreatedAt = n.now()
	if err := n.store.CreateNotification(ctx, notification); err != nil {
		return nil, fmt.Errorf("create %s notification: %w", notification.Type, err)
	}

	n.push(ctx, notification, p)
	return notification, nil
}

func (n *Notifier) push(ctx context.Context, notification *store.Notification, p Payload) {
	recipient, err := n.store.GetUser(ctx, notification.ToUserID)
	if err != nil {
		n.log.Warn().Err(err).Str("to", notification.ToUserID).Msg("push token lookup failed")
		return
	}
	if recipient == nil || recipient.PushToken == "" {
		return
	}

	if err := n.relay.Send(ctx, PushMessage(recipient.PushToken, notification, p)); err != nil {
		n.log.Warn().Err(err).
			Str("to", notification.ToUserID).
			Str("type", string(notification.Type)).
			Msg("push delivery failed")
	}
}

// NotifyFollowersOfNewRanking sends a new_ranking notification to every
// follower of the creator. Writes run concurrently and independently; a
// failed write is logged and not retried. It returns how many were written.
func (n *Notifier) NotifyFollowersOfNewRanking(ctx context.Context, creatorID, creatorUsername, rankingID, title string) (int, error) {
	creator, err := n.store.GetUser(ctx, creatorID)
	if err != nil {
		return 0, fmt.Errorf("load creator %s: %w", creatorID, err)
	}
	if creator == nil {
		return 0, nil
	}

	var (
		wg   sync.WaitGroup
		sent atomic.Int64
	)
	payload := NewRanking{RankingID: rankingID, RankingTitle: title}
	for _, followerID := range creator.Followers {
		if followerID == creatorID {
			continue
		}
		wg.Add(1)
		go func(followerID string) {
			defer wg.Done()
			if _, err := n.Create(ctx, creatorID, creatorUsername, followerID, payload); err != nil {
				n.log.Warn().Err(err).Str("follower", followerID).Msg("new ranking notification dropped")
				return
			}
			sent.Add(1)
		}(followerID)
	}
	wg.Wait()

	return int(sent.Load()), nil
}
