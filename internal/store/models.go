package store

import "time"

// Collection names the document collections the store exposes.
type Collection string

const (
	CollectionUsers         Collection = "users"
	CollectionRankings      Collection = "rankings"
	CollectionReranks       Collection = "reranks"
	CollectionNotifications Collection = "notifications"
	CollectionReports       Collection = "reports"
)

// ReactionKind is one of the four reaction symbols a user may put on a ranking.
type ReactionKind string

const (
	ReactionGrin    ReactionKind = ":D"
	ReactionShocked ReactionKind = ":0"
	ReactionSad     ReactionKind = ":("
	ReactionAngry   ReactionKind = ">:("
)

// ReactionKinds lists every reaction kind in display order.
var ReactionKinds = []ReactionKind{ReactionGrin, ReactionShocked, ReactionSad, ReactionAngry}

func (k ReactionKind) Valid() bool {
	for _, kind := range ReactionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

type Visibility string

const (
	VisibilityGlobal  Visibility = "global"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityGlobal, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

type NotificationType string

const (
	NotificationReaction   NotificationType = "reaction"
	NotificationComment    NotificationType = "comment"
	NotificationFollow     NotificationType = "follow"
	NotificationRerank     NotificationType = "rerank"
	NotificationMention    NotificationType = "mention"
	NotificationNewRanking NotificationType = "new_ranking"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

type User struct {
	ID                string     `json:"uid"`
	DisplayName       string     `json:"displayName"`
	DisplayNameLower  string     `json:"displayNameLower"`
	FullName          string     `json:"fullName,omitempty"`
	Email             string     `json:"email"`
	Followers         []string   `json:"followers"`
	Following         []string   `json:"following"`
	FollowerCount     int        `json:"followerCount"`
	FollowingCount    int        `json:"followingCount"`
	BlockedUsers      []string   `json:"blockedUsers"`
	BadWordsMode      bool       `json:"badWordsMode"`
	ShareCount        int        `json:"shareCount"`
	PushToken         string     `json:"pushToken,omitempty"`
	AcceptedTerms     bool       `json:"acceptedTerms"`
	AcceptedTermsDate *time.Time `json:"acceptedTermsDate,omitempty"`
	SecretButtonIndex int        `json:"secretButtonIndex"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// IsFollowing reports whether the user follows id.
func (u *User) IsFollowing(id string) bool {
	return contains(u.Following, id)
}

// HasBlocked reports whether the user blocked id.
func (u *User) HasBlocked(id string) bool {
	return contains(u.BlockedUsers, id)
}

type RankingItem struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

type Comment struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Username        string     `json:"username"`
	Content         string     `json:"content"`
	CreatedAt       time.Time  `json:"createdAt"`
	ParentCommentID string     `json:"parentCommentId,omitempty"`
	Replies         []*Comment `json:"replies,omitempty"`
}

type Ranking struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	Items             []RankingItem             `json:"items"`
	UserID            string                    `json:"userId"`
	Username          string                    `json:"username"`
	CreatedAt         time.Time                 `json:"createdAt"`
	Reactions         map[ReactionKind][]string `json:"reactions"`
	Comments          []*Comment                `json:"comments"`
	Visibility        Visibility                `json:"visibility"`
	IsRerank          bool                      `json:"isRerank"`
	OriginalRankingID string                    `json:"originalRankingId,omitempty"`
	OriginalUsername  string                    `json:"originalUsername,omitempty"`
}

// ReactionOf returns the kind the user currently reacted with, if any.
func (r *Ranking) ReactionOf(userID string) (ReactionKind, bool) {
	for _, kind := range ReactionKinds {
		if contains(r.Reactions[kind], userID) {
			return kind, true
		}
	}
	return "", false
}

// FindComment returns the comment with the given id or nil.
func (r *Ranking) FindComment(id string) *Comment {
	for _, c := range r.Comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// EmptyReactions returns a reaction map with an empty set for every kind.
func EmptyReactions() map[ReactionKind][]string {
	m := make(map[ReactionKind][]string, len(ReactionKinds))
	for _, kind := range ReactionKinds {
		m[kind] = []string{}
	}
	return m
}

// Rerank is the record written to the reranks collection.
type Rerank struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Items             []RankingItem `json:"items"`
	Visibility        Visibility    `json:"visibility"`
	OriginalRankingID string        `json:"originalRankingId"`
	UserID            string        `json:"userId"`
	Username          string        `json:"username"`
	CreatedAt         time.Time     `json:"createdAt"`
}

type Notification struct {
	ID           string           `json:"id"`
	Type         NotificationType `json:"type"`
	FromUserID   string           `json:"fromUserId"`
	FromUsername string           `json:"fromUsername"`
	ToUserID     string           `json:"toUserId"`
	Read         bool             `json:"read"`
	CreatedAt    time.Time        `json:"createdAt"`
	RankingID    string           `json:"rankingId,omitempty"`
	RankingTitle string           `json:"rankingTitle,omitempty"`
	Reaction     ReactionKind     `json:"reaction,omitempty"`
	CommentText  string           `json:"commentText,omitempty"`
}

type Report struct {
	ID             string       `json:"id"`
	ContentID      string       `json:"contentId"`
	ContentType    string       `json:"contentType"` // "ranking" or "comment"
	ReportedUserID string       `json:"reportedUserId"`
	ReporterID     string       `json:"reporterId"`
	Reason         string       `json:"reason"`
	Status         ReportStatus `json:"status"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Query options

type RankingQuery struct {
	UserIDs    []string     // empty means any author
	Visibility []Visibility // empty means any visibility
	Limit      int
	Cursor     string // NextCursor of the previous page
}

type NotificationQuery struct {
	ToUserID   string
	FromUserID string
	RankingID  string
	UnreadOnly bool
	Limit      int
}
