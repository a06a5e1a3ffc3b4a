package social

import (
	"context"
	"fmt"

	"github.com/alphabot-ai/ranked/internal/store"
)

// DeleteUserAccount removes a user and everything that references them in a
// single batch: the user's edges on both sides of the follow graph, every
// notification they sent or received, and their rankings. Either all of it
// is gone afterwards or none of it is. The identity itself lives with the
// identity provider and is not touched.
func (s *Service) DeleteUserAccount(ctx context.Context, userID string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	batch := s.store.NewBatch()
	for _, followerID := range user.Followers {
		batch.UpdateUser(followerID, store.RemoveFollowing(userID))
	}
	for _, followingID := range user.Following {
		batch.UpdateUser(followingID, store.RemoveFollower(userID))
	}

	notifications, err := s.userNotifications(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range notifications {
		batch.DeleteNotification(id)
	}

	rankings, err := s.userRankingIDs(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range rankings {
		batch.DeleteRanking(id)
	}

	batch.DeleteUser(userID)
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("delete account %s: %w", userID, err)
	}

	s.log.Info().
		Str("user", userID).
		Int("notifications", len(notifications)).
		Int("rankings", len(rankings)).
		Msg("account deleted")
	return nil
}

// userNotifications returns the ids of notifications sent to or by userID.
func (s *Service) userNotifications(ctx context.Context, userID string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, q := range []store.NotificationQuery{{ToUserID: userID}, {FromUserID: userID}} {
		list, err := s.store.ListNotifications(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list notifications of %s: %w", userID, err)
		}
		for _, n := range list {
			if !seen[n.ID] {
				seen[n.ID] = true
				ids = append(ids, n.ID)
			}
		}
	}
	return ids, nil
}

func (s *Service) userRankingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	q := store.RankingQuery{UserIDs: []string{userID}, Limit: 100}
	for {
		page, next, err := s.store.ListRankings(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list rankings of %s: %w", userID, err)
		}
		for _, r := range page {
			ids = append(ids, r.ID)
		}
		if next == "" {
			return ids, nil
		}
		q.Cursor = next
	}
}
