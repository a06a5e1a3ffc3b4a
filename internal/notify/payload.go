// Package notify turns social actions into in-app notification documents
// and push messages.
package notify

import (
	"fmt"

	"github.com/alphabot-ai/ranked/internal/push"
	"github.com/alphabot-ai/ranked/internal/store"
)

// Payload carries the fields one notification type needs. Each variant maps
// to exactly one store.NotificationType.
type Payload interface {
	Type() store.NotificationType
	fill(n *store.Notification)
	message(from string) string
}

type Reaction struct {
	RankingID    string
	RankingTitle string
	Reaction     store.ReactionKind
}

func (Reaction) Type() store.NotificationType { return store.NotificationReaction }

func (p Reaction) fill(n *store.Notification) {
	n.RankingID = p.RankingID
	n.RankingTitle = p.RankingTitle
	n.Reaction = p.Reaction
}

func (p Reaction) message(from string) string {
	return fmt.Sprintf(`%s reacted %s to your rank "%s"`, from, p.Reaction, p.RankingTitle)
}

// Comment covers both top-level comments and replies; replies carry a
// "replied: " prefix in CommentText.
type Comment struct {
	RankingID    string
	RankingTitle string
	CommentText  string
}

func (Comment) Type() store.NotificationType { return store.NotificationComment }

func (p Comment) fill(n *store.Notification) {
	n.RankingID = p.RankingID
	n.RankingTitle = p.RankingTitle
	n.CommentText = p.CommentText
}

func (p Comment) message(from string) string {
	return fmt.Sprintf(`%s commented on your rank "%s"`, from, p.RankingTitle)
}

type Follow struct{}

func (Follow) Type() store.NotificationType { return store.NotificationFollow }

func (Follow) fill(*store.Notification) {}

func (Follow) message(from string) string {
	return fmt.Sprintf("%s started following you", from)
}

type Rerank struct {
	RankingID    string
	RankingTitle string
}

func (Rerank) Type() store.NotificationType { return store.NotificationRerank }

func (p Rerank) fill(n *store.Notification) {
	n.RankingID = p.RankingID
	n.RankingTitle = p.RankingTitle
}

func (p Rerank) message(from string) string {
	return fmt.Sprintf(`%s reranked your rank "%s"`, from, p.RankingTitle)
}

type Mention struct {
	RankingID    string
	RankingTitle string
	CommentText  string
}

func (Mention) Type() store.NotificationType { return store.NotificationMention }

func (p Mention) fill(n *store.Notification) {
	n.RankingID = p.RankingID
	n.RankingTitle = p.RankingTitle
	n.CommentText = p.CommentText
}

func (Mention) message(from string) string {
	return fmt.Sprintf("%s mentioned you in a comment", from)
}

type NewRanking struct {
	RankingID    string
	RankingTitle string
}

func (NewRanking) Type() store.NotificationType { return store.NotificationNewRanking }

func (p NewRanking) fill(n *store.Notification) {
	n.RankingID = p.RankingID
	n.RankingTitle = p.RankingTitle
}

func (p NewRanking) message(from string) string {
	return fmt.Sprintf(`%s created a new ranking: "%s"`, from, p.RankingTitle)
}

// Compose builds the unread notification document for an action. The ranking
// title is copied, so later edits to the ranking do not change it.
func Compose(fromUserID, fromUsername, toUserID string, p Payload) *store.Notification {
	n := &store.Notification{
		Type:         p.Type(),
		FromUserID:   fromUserID,
		FromUsername: fromUsername,
		ToUserID:     toUserID,
	}
	p.fill(n)
	return n
}

// Message renders the human-readable push text for a payload.
func Message(fromUsername string, p Payload) string {
	return p.message(fromUsername)
}

// PushMessage addresses the rendered notification to a device token.
func PushMessage(token string, n *store.Notification, p Payload) push.Message {
	return push.Message{
		To:    token,
		Title: push.Title,
		Body:  Message(n.FromUsername, p),
		Data: push.Data{
			Type:         string(n.Type),
			FromUserID:   n.FromUserID,
			RankingID:    n.RankingID,
			RankingTitle: n.RankingTitle,
			Reaction:     string(n.Reaction),
			CommentText:  n.CommentText,
		},
	}
}
