package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/alphabot-ai/ranked/internal/notify"
	"github.com/alphabot-ai/ranked/internal/store"
)

const replyPrefix = "replied: "

// AddComment appends a comment to the ranking's flat comment list. A
// non-empty parentCommentID makes it a reply. The parent author is notified
// of replies and the ranking owner of top-level comments; nobody is notified
// about their own activity.
func (s *Service) AddComment(ctx context.Context, userID, rankingID, content, parentCommentID string) (*store.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ranking, err := s.loadRanking(ctx, rankingID)
	if err != nil {
		return nil, err
	}

	comment := &store.Comment{
		ID:              ulid.Make().String(),
		UserID:          userID,
		Username:        displayName(user),
		Content:         content,
		CreatedAt:       s.now(),
		ParentCommentID: parentCommentID,
	}
	found, err := s.store.UpdateRanking(ctx, rankingID, store.AppendComment(comment))
	if err != nil {
		return nil, fmt.Errorf("append comment to %s: %w", rankingID, err)
	}
	if !found {
		return nil, fmt.Errorf("ranking %s: %w", rankingID, ErrNotFound)
	}

	to, text := ranking.UserID, content
	if parentCommentID != "" {
		if parent := ranking.FindComment(parentCommentID); parent != nil {
			to, text = parent.UserID, replyPrefix+content
		}
	}
	if to != userID {
		payload := notify.Comment{RankingID: rankingID, RankingTitle: ranking.Title, CommentText: text}
		if _, err := s.notifier.Create(ctx, userID, comment.Username, to, payload); err != nil {
			s.log.Warn().Err(err).Str("ranking", rankingID).Msg("comment notification dropped")
		}
	}

	return comment, nil
}

// DeleteComment removes one comment. Its replies stay behind and surface at
// the top level of the tree. The comment author and the ranking owner may
// delete.
func (s *Service) DeleteComment(ctx context.Context, actorID, rankingID, commentID string) error {
	ranking, err := s.loadRanking(ctx, rankingID)
	if err != nil {
		return err
	}
	comment := ranking.FindComment(commentID)
	if comment == nil {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if actorID != comment.UserID && actorID != ranking.UserID {
		return ErrForbidden
	}

	if _, err := s.store.UpdateRanking(ctx, rankingID, store.RemoveComment(commentID)); err != nil {
		return fmt.Errorf("remove comment %s: %w", commentID, err)
	}

	s.deleteCommentNotifications(ctx, ranking, comment)
	return nil
}

// deleteCommentNotifications removes the notifications the comment produced.
// Failures are logged; the comment itself is already gone.
func (s *Service) deleteCommentNotifications(ctx context.Context, ranking *store.Ranking, comment *store.Comment) {
	sent, err := s.store.ListNotifications(ctx, store.NotificationQuery{
		FromUserID: comment.UserID,
		RankingID:  ranking.ID,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("comment", comment.ID).Msg("list comment notifications")
		return
	}
	for _, n := range sent {
		if n.Type != store.NotificationComment {
			continue
		}
		if n.CommentText != comment.Content && n.CommentText != replyPrefix+comment.Content {
			continue
		}
		if err := s.store.DeleteNotification(ctx, n.ID); err != nil {
			s.log.Warn().Err(err).Str("notification", n.ID).Msg("delete comment notification")
		}
	}
}

// Comments returns the ranking's comments as the viewer may see them:
// comments by users the viewer blocked are dropped. With tree set the result
// is a forest built by BuildCommentTree.
func (s *Service) Comments(ctx context.Context, viewerID, rankingID string, tree bool) ([]*store.Comment, error) {
	ranking, err := s.GetRanking(ctx, viewerID, rankingID)
	if err != nil {
		return nil, err
	}

	viewer, err := s.store.GetUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", viewerID, err)
	}
	comments := make([]*store.Comment, 0, len(ranking.Comments))
	for _, c := range ranking.Comments {
		if viewer != nil && viewer.HasBlocked(c.UserID) {
			continue
		}
		comments = append(comments, c)
	}

	if tree {
		return BuildCommentTree(comments), nil
	}
	return comments, nil
}

// BuildCommentTree groups a flat comment list into a forest. Comments whose
// parent is missing become roots, and so does every comment on a parent
// cycle. Input order is kept at every level and the input comments are not
// modified.
func BuildCommentTree(comments []*store.Comment) []*store.Comment {
	byID := make(map[string]*store.Comment, len(comments))
	nodes := make([]*store.Comment, len(comments))
	for i, c := range comments {
		node := *c
		node.Replies = nil
		nodes[i] = &node
		byID[node.ID] = &node
	}

	roots := make([]*store.Comment, 0, len(nodes))
	for _, node := range nodes {
		parent, ok := byID[node.ParentCommentID]
		if node.ParentCommentID == "" || !ok || onParentCycle(node, byID) {
			roots = append(roots, node)
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}
	return roots
}

// onParentCycle reports whether following parent links from start leads
// back to start.
func onParentCycle(start *store.Comment, byID map[string]*store.Comment) bool {
	seen := make(map[*store.Comment]bool)
	for node := start; ; {
		parent, ok := byID[node.ParentCommentID]
		if node.ParentCommentID == "" || !ok {
			return false
		}
		if parent == start {
			return true
		}
		if seen[parent] {
			return false
		}
		seen[parent] = true
		node = parent
	}
}
