package social

import (
	"context"
	"fmt"

	"github.com/alphabot-ai/ranked/internal/notify"
	"github.com/alphabot-ai/ranked/internal/store"
)

// Follow adds the edge actorID -> targetID and notifies the target. The two
// sides are written as separate updates with no rollback: if the second
// write fails the graph is left half-updated and CleanupFollowerCounts or a
// repeated Follow settles it.
func (s *Service) Follow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfFollow
	}

	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return err
	}
	if _, err := s.loadUser(ctx, targetID); err != nil {
		return err
	}
	wasFollowing := actor.IsFollowing(targetID)

	if _, err := s.store.UpdateUser(ctx, actorID, store.AddFollowing(targetID)); err != nil {
		return fmt.Errorf("update following of %s: %w", actorID, err)
	}
	found, err := s.store.UpdateUser(ctx, targetID, store.AddFollower(actorID))
	if err != nil {
		return fmt.Errorf("update followers of %s: %w", targetID, err)
	}
	if !found {
		return fmt.Errorf("user %s: %w", targetID, ErrNotFound)
	}

	if wasFollowing {
		return nil
	}
	if _, err := s.notifier.Create(ctx, actorID, displayName(actor), targetID, notify.Follow{}); err != nil {
		return err
	}

	s.log.Debug().Str("actor", actorID).Str("target", targetID).Msg("follow")
	return nil
}

// Unfollow removes the edge actorID -> targetID. Missing users are ignored.
func (s *Service) Unfollow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfFollow
	}

	if _, err := s.store.UpdateUser(ctx, actorID, store.RemoveFollowing(targetID)); err != nil {
		return fmt.Errorf("update following of %s: %w", actorID, err)
	}
	if _, err := s.store.UpdateUser(ctx, targetID, store.RemoveFollower(actorID)); err != nil {
		return fmt.Errorf("update followers of %s: %w", targetID, err)
	}

	s.log.Debug().Str("actor", actorID).Str("target", targetID).Msg("unfollow")
	return nil
}

func (s *Service) ListFollowers(ctx context.Context, userID string) ([]*store.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveUsers(ctx, user.Followers)
}

func (s *Service) ListFollowing(ctx context.Context, userID string) ([]*store.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveUsers(ctx, user.Following)
}

// resolveUsers loads each id in order, skipping ids whose user is gone.
func (s *Service) resolveUsers(ctx context.Context, ids []string) ([]*store.User, error) {
	users := make([]*store.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load user %s: %w", id, err)
		}
		if u != nil {
			users = append(users, u)
		}
	}
	return users, nil
}
