package store

import (
	"context"
	"errors"
)

// ErrDuplicate is returned when a write violates a uniqueness constraint
// (document id, username or email).
var ErrDuplicate = errors.New("duplicate document")

// ErrInvalidCursor is returned for a paging cursor the store did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// Store defines the document store the social core orchestrates.
//
// Get and Find methods return (nil, nil) when the document does not exist.
// Update methods apply all of their field updates to a single document
// atomically and report whether the document existed.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	FindUserByDisplayName(ctx context.Context, name string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	SearchUsers(ctx context.Context, prefix string, limit int) ([]*User, error)
	UpdateUser(ctx context.Context, id string, updates ...UserUpdate) (bool, error)

	// Rankings
	CreateRanking(ctx context.Context, ranking *Ranking) error
	GetRanking(ctx context.Context, id string) (*Ranking, error)
	ListRankings(ctx context.Context, q RankingQuery) ([]*Ranking, string, error) // returns rankings and next cursor
	UpdateRanking(ctx context.Context, id string, updates ...RankingUpdate) (bool, error)
	DeleteRanking(ctx context.Context, id string) error

	// Reranks
	CreateRerank(ctx context.Context, rerank *Rerank) error
	ListReranks(ctx context.Context, originalRankingID string) ([]*Rerank, error)

	// Notifications
	CreateNotification(ctx context.Context, n *Notification) error
	GetNotification(ctx context.Context, id string) (*Notification, error)
	ListNotifications(ctx context.Context, q NotificationQuery) ([]*Notification, error)
	CountUnreadNotifications(ctx context.Context, toUserID string) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, toUserID string) (int, error)
	DeleteNotification(ctx context.Context, id string) error

	// Reports
	CreateReport(ctx context.Context, report *Report) error
	ListReports(ctx context.Context, status ReportStatus) ([]*Report, error)

	// NewBatch starts a set of writes committed atomically.
	NewBatch() Batch

	// Subscribe delivers a Change for every committed write to the
	// collection until ctx is done.
	Subscribe(ctx context.Context, collection Collection) <-chan Change

	// Lifecycle
	Close() error
}

// Batch accumulates writes and applies them all or none on Commit.
//
// Updates addressed to users that no longer exist are skipped rather than
// failing the batch.
type Batch interface {
	UpdateUser(id string, updates ...UserUpdate)
	DeleteUser(id string)
	DeleteRanking(id string)
	DeleteNotification(id string)
	Len() int
	Commit(ctx context.Context) error
}

// Change identifies a committed write.
type Change struct {
	Collection Collection
	ID         string
	Deleted    bool
}
