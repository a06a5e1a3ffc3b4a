package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/alphabot-ai/ranked/internal/notify"
	"github.com/alphabot-ai/ranked/internal/store"
)

// RankingInput is the editable part of a ranking. Item ids are ignored and
// reassigned 1..n in list order.
type RankingInput struct {
	Title      string              `json:"title"`
	Items      []store.RankingItem `json:"items"`
	Visibility store.Visibility    `json:"visibility"`
}

// Feed is one page of rankings. NextCursor is empty on the last page.
type Feed struct {
	Rankings   []*store.Ranking `json:"rankings"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func (in RankingInput) normalize() (RankingInput, error) {
	out := RankingInput{
		Title:      strings.TrimSpace(in.Title),
		Visibility: in.Visibility,
	}
	if out.Title == "" {
		return out, fmt.Errorf("%w: title is required", ErrInvalidRanking)
	}
	if out.Visibility == "" {
		out.Visibility = store.VisibilityGlobal
	}
	if !out.Visibility.Valid() {
		return out, fmt.Errorf("%w: unknown visibility %q", ErrInvalidRanking, in.Visibility)
	}

	items, err := normalizeItems(in.Items)
	if err != nil {
		return out, err
	}
	out.Items = items
	return out, nil
}

func normalizeItems(items []store.RankingItem) ([]store.RankingItem, error) {
	out := make([]store.RankingItem, 0, len(items))
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		out = append(out, store.RankingItem{ID: len(out) + 1, Content: content})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidRanking)
	}
	return out, nil
}

// CreateRanking stores a new ranking and tells the author's followers about
// it. Private rankings are not announced.
func (s *Service) CreateRanking(ctx context.Context, actorID string, in RankingInput) (*store.Ranking, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	ranking := &store.Ranking{
		Title:      in.Title,
		Items:      in.Items,
		UserID:     actorID,
		Username:   displayName(actor),
		CreatedAt:  s.now(),
		Visibility: in.Visibility,
	}
	if err := s.store.CreateRanking(ctx, ranking); err != nil {
		return nil, fmt.Errorf("create ranking: %w", err)
	}

	s.announce(ctx, ranking)
	return ranking, nil
}

func (s *Service) announce(ctx context.Context, ranking *store.Ranking) {
	if ranking.Visibility == store.VisibilityPrivate {
		return
	}
	sent, err := s.notifier.NotifyFollowersOfNewRanking(ctx, ranking.UserID, ranking.Username, ranking.ID, ranking.Title)
	if err != nil {
		s.log.Warn().Err(err).Str("ranking", ranking.ID).Msg("new ranking fan-out failed")
		return
	}
	s.log.Debug().Str("ranking", ranking.ID).Int("notified", sent).Msg("new ranking announced")
}

// EditRanking replaces title, items and visibility. Rerank provenance is
// kept.
func (s *Service) EditRanking(ctx context.Context, actorID, rankingID string, in RankingInput) (*store.Ranking, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	ranking, err := s.loadRanking(ctx, rankingID)
	if err != nil {
		return nil, err
	}
	if ranking.UserID != actorID {
		return nil, ErrForbidden
	}

	found, err := s.store.UpdateRanking(ctx, rankingID, store.SetContent(in.Title, in.Items, in.Visibility))
	if err != nil {
		return nil, fmt.Errorf("update ranking %s: %w", rankingID, err)
	}
	if !found {
		return nil, fmt.Errorf("ranking %s: %w", rankingID, ErrNotFound)
	}
	return s.loadRanking(ctx, rankingID)
}

// DeleteRanking removes the ranking together with every notification that
// points at it.
func (s *Service) DeleteRanking(ctx context.Context, actorID, rankingID string) error {
	ranking, err := s.loadRanking(ctx, rankingID)
	if err != nil {
		return err
	}
	if ranking.UserID != actorID {
		return ErrForbidden
	}

	related, err := s.store.ListNotifications(ctx, store.NotificationQuery{RankingID: rankingID})
	if err != nil {
		return fmt.Errorf("list notifications for %s: %w", rankingID, err)
	}

	batch := s.store.NewBatch()
	for _, n := range related {
		batch.DeleteNotification(n.ID)
	}
	batch.DeleteRanking(rankingID)
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("delete ranking %s: %w", rankingID, err)
	}
	return nil
}

// Rerank publishes the actor's own ordering of an existing ranking. The new
// ranking points at the root of the rerank chain, and the owner of the
// ranking that was reranked is notified.
func (s *Service) Rerank(ctx context.Context, actorID, sourceID string, items []store.RankingItem, visibility store.Visibility) (*store.Ranking, error) {
	source, err := s.GetRanking(ctx, actorID, sourceID)
	if err != nil {
		return nil, err
	}
	in, err := RankingInput{Title: source.Title, Items: items, Visibility: visibility}.normalize()
	if err != nil {
		return nil, err
	}
	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	originalID, originalUsername := source.ID, source.Username
	if source.IsRerank && source.OriginalRankingID != "" {
		originalID, originalUsername = source.OriginalRankingID, source.OriginalUsername
	}

	ranking := &store.Ranking{
		Title:             in.Title,
		Items:             in.Items,
		UserID:            actorID,
		Username:          displayName(actor),
		CreatedAt:         s.now(),
		Visibility:        in.Visibility,
		IsRerank:          true,
		OriginalRankingID: originalID,
		OriginalUsername:  originalUsername,
	}
	if err := s.store.CreateRanking(ctx, ranking); err != nil {
		return nil, fmt.Errorf("create rerank of %s: %w", sourceID, err)
	}

	payload := notify.Rerank{RankingID: ranking.ID, RankingTitle: source.Title}
	if _, err := s.notifier.Create(ctx, actorID, ranking.Username, source.UserID, payload); err != nil {
		s.log.Warn().Err(err).Str("ranking", ranking.ID).Msg("rerank notification dropped")
	}
	return ranking, nil
}

// SubmitRerank records a rerank in the reranks collection without publishing
// it to the feeds.
func (s *Service) SubmitRerank(ctx context.Context, actorID, originalID string, in RankingInput) (*store.Rerank, error) {
	original, err := s.GetRanking(ctx, actorID, originalID)
	if err != nil {
		return nil, err
	}
	if in.Title == "" {
		in.Title = original.Title
	}
	in, err = in.normalize()
	if err != nil {
		return nil, err
	}
	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	rerank := &store.Rerank{
		Title:             in.Title,
		Items:             in.Items,
		Visibility:        in.Visibility,
		OriginalRankingID: originalID,
		UserID:            actorID,
		Username:          displayName(actor),
		CreatedAt:         s.now(),
	}
	if err := s.store.CreateRerank(ctx, rerank); err != nil {
		return nil, fmt.Errorf("create rerank of %s: %w", originalID, err)
	}

	payload := notify.Rerank{RankingID: originalID, RankingTitle: original.Title}
	if _, err := s.notifier.Create(ctx, actorID, rerank.Username, original.UserID, payload); err != nil {
		s.log.Warn().Err(err).Str("ranking", originalID).Msg("rerank notification dropped")
	}
	return rerank, nil
}

// GetRanking returns the ranking if viewerID may see it.
func (s *Service) GetRanking(ctx context.Context, viewerID, rankingID string) (*store.Ranking, error) {
	ranking, err := s.loadRanking(ctx, rankingID)
	if err != nil {
		return nil, err
	}
	viewer, err := s.store.GetUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", viewerID, err)
	}
	if !canView(viewer, ranking) {
		return nil, ErrForbidden
	}
	return ranking, nil
}

// canView applies the visibility rules. A nil viewer only sees global
// rankings.
func canView(viewer *store.User, r *store.Ranking) bool {
	if r.Visibility == store.VisibilityGlobal || r.Visibility == "" {
		return true
	}
	if viewer == nil {
		return false
	}
	if viewer.ID == r.UserID {
		return true
	}
	return r.Visibility == store.VisibilityFriends && viewer.IsFollowing(r.UserID)
}

// GlobalFeed pages through every global ranking, newest first.
func (s *Service) GlobalFeed(ctx context.Context, viewerID string, limit int, cursor string) (*Feed, error) {
	viewer, err := s.store.GetUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", viewerID, err)
	}
	return s.feed(ctx, viewer, store.RankingQuery{
		Visibility: []store.Visibility{store.VisibilityGlobal},
		Limit:      limit,
		Cursor:     cursor,
	})
}

// FollowingFeed pages through rankings by the users the viewer follows and
// by the viewer.
func (s *Service) FollowingFeed(ctx context.Context, viewerID string, limit int, cursor string) (*Feed, error) {
	viewer, err := s.loadUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	authors := append([]string{viewer.ID}, viewer.Following...)
	return s.feed(ctx, viewer, store.RankingQuery{
		UserIDs:    authors,
		Visibility: []store.Visibility{store.VisibilityGlobal, store.VisibilityFriends},
		Limit:      limit,
		Cursor:     cursor,
	})
}

// UserRankings pages through one author's rankings that the viewer may see.
func (s *Service) UserRankings(ctx context.Context, viewerID, authorID string, limit int, cursor string) (*Feed, error) {
	if _, err := s.loadUser(ctx, authorID); err != nil {
		return nil, err
	}
	viewer, err := s.store.GetUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", viewerID, err)
	}

	q := store.RankingQuery{UserIDs: []string{authorID}, Limit: limit, Cursor: cursor}
	switch {
	case viewer != nil && viewer.ID == authorID:
	case viewer != nil && viewer.IsFollowing(authorID):
		q.Visibility = []store.Visibility{store.VisibilityGlobal, store.VisibilityFriends}
	default:
		q.Visibility = []store.Visibility{store.VisibilityGlobal}
	}
	return s.feed(ctx, viewer, q)
}

// feed runs q and drops rankings by blocked authors and rankings the
// viewer's content filter rejects. Filtering happens after paging, so a page
// may be shorter than the limit.
func (s *Service) feed(ctx context.Context, viewer *store.User, q store.RankingQuery) (*Feed, error) {
	rankings, next, err := s.store.ListRankings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}

	badWordsMode := viewer == nil || viewer.BadWordsMode
	visible := make([]*store.Ranking, 0, len(rankings))
	for _, r := range rankings {
		if viewer != nil && viewer.HasBlocked(r.UserID) {
			continue
		}
		if !s.filter.RankingAllowed(r, badWordsMode) {
			continue
		}
		visible = append(visible, r)
	}
	return &Feed{Rankings: visible, NextCursor: next}, nil
}
