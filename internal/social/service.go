// Package social maintains the follow graph, reactions, comment threads and
// rankings, and drives notification fan-out for every social action.
//
// Multi-document updates (a follow touches two users) are applied as
// independent per-document writes. Only DeleteRanking, DeleteUserAccount and
// CleanupFollowerCounts commit their writes as one batch.
package social

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alphabot-ai/ranked/internal/moderation"
	"github.com/alphabot-ai/ranked/internal/notify"
	"github.com/alphabot-ai/ranked/internal/store"
)

const anonymous = "Anonymous"

type Service struct {
	store    store.Store
	notifier *notify.Notifier
	filter   *moderation.Filter
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(s store.Store, notifier *notify.Notifier, filter *moderation.Filter, log zerolog.Logger) *Service {
	return &Service{
		store:    s,
		notifier: notifier,
		filter:   filter,
		log:      log.With().Str("component", "social").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// loadUser returns ErrNotFound instead of a nil user.
func (s *Service) loadUser(ctx context.Context, id string) (*store.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return user, nil
}

func (s *Service) loadRanking(ctx context.Context, id string) (*store.Ranking, error) {
	ranking, err := s.store.GetRanking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ranking %s: %w", id, err)
	}
	if ranking == nil {
		return nil, fmt.Errorf("ranking %s: %w", id, ErrNotFound)
	}
	return ranking, nil
}

// username resolves the display name used in notifications.
func (s *Service) username(ctx context.Context, id string) (string, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", id, err)
	}
	return displayName(user), nil
}

func displayName(user *store.User) string {
	if user == nil || user.DisplayName == "" {
		return anonymous
	}
	return user.DisplayName
}
