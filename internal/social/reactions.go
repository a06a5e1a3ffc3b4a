package social

import (
	"context"
	"fmt"

	"github.com/alphabot-ai/ranked/internal/notify"
	"github.com/alphabot-ai/ranked/internal/store"
)

// React puts userID in the kind set of the ranking and removes it from every
// other set. Reacting to a ranking that no longer exists is not an error.
func (s *Service) React(ctx context.Context, userID, rankingID string, kind store.ReactionKind) error {
	if !kind.Valid() {
		return ErrInvalidReaction
	}

	ranking, err := s.store.GetRanking(ctx, rankingID)
	if err != nil {
		return fmt.Errorf("load ranking %s: %w", rankingID, err)
	}
	if ranking == nil {
		s.log.Warn().Str("ranking", rankingID).Str("user", userID).Msg("reaction to missing ranking")
		return nil
	}
	previous, hadReaction := ranking.ReactionOf(userID)

	found, err := s.store.UpdateRanking(ctx, rankingID, store.SetReaction(userID, kind))
	if err != nil {
		return fmt.Errorf("update reactions of %s: %w", rankingID, err)
	}
	if !found {
		s.log.Warn().Str("ranking", rankingID).Str("user", userID).Msg("ranking deleted before reaction")
		return nil
	}

	if userID == ranking.UserID || (hadReaction && previous == kind) {
		return nil
	}

	name, err := s.username(ctx, userID)
	if err != nil {
		return err
	}
	payload := notify.Reaction{RankingID: rankingID, RankingTitle: ranking.Title, Reaction: kind}
	if _, err := s.notifier.Create(ctx, userID, name, ranking.UserID, payload); err != nil {
		s.log.Warn().Err(err).Str("ranking", rankingID).Msg("reaction notification dropped")
	}
	return nil
}

// Unreact clears any reaction userID has on the ranking.
func (s *Service) Unreact(ctx context.Context, userID, rankingID string) error {
	if _, err := s.store.UpdateRanking(ctx, rankingID, store.ClearReaction(userID)); err != nil {
		return fmt.Errorf("update reactions of %s: %w", rankingID, err)
	}
	return nil
}
