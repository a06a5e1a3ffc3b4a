package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps every document as a JSON blob next to the handful of
// columns its queries filter and order on.
type SQLiteStore struct {
	db  *sql.DB
	hub *hub
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db, hub: newHub()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name_lower TEXT NOT NULL UNIQUE,
		email TEXT UNIQUE,
		created_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rankings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		visibility TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rankings_user ON rankings(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_rankings_visibility ON rankings(visibility, created_at);

	CREATE TABLE IF NOT EXISTS reranks (
		id TEXT PRIMARY KEY,
		original_ranking_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reranks_original ON reranks(original_ranking_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		to_user_id TEXT NOT NULL,
		from_user_id TEXT NOT NULL,
		ranking_id TEXT,
		read INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_to ON notifications(to_user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_from ON notifications(from_user_id);
	CREATE INDEX IF NOT EXISTS idx_notifications_ranking ON notifications(ranking_id);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		content_id TEXT NOT NULL,
		reporter_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Subscribe(ctx context.Context, collection Collection) <-chan Change {
	return s.hub.subscribe(ctx, collection)
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Users

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.DisplayNameLower == "" {
		user.DisplayNameLower = strings.ToLower(user.DisplayName)
	}
	user.Followers = nonNil(user.Followers)
	user.Following = nonNil(user.Following)
	user.BlockedUsers = nonNil(user.BlockedUsers)

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name_lower, email, created_at, data)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.DisplayNameLower, nullString(strings.ToLower(user.Email)), user.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return translateErr(err)
	}

	s.hub.publish(Change{Collection: CollectionUsers, ID: user.ID})
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return getDoc[User](ctx, s.db, "users", id)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	return queryDocs[User](ctx, s.db, `SELECT data FROM users ORDER BY created_at`)
}

func (s *SQLiteStore) FindUserByDisplayName(ctx context.Context, name string) (*User, error) {
	return firstDoc[User](ctx, s.db, `SELECT data FROM users WHERE display_name_lower = ?`, strings.ToLower(name))
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return firstDoc[User](ctx, s.db, `SELECT data FROM users WHERE email = ?`, strings.ToLower(email))
}

func (s *SQLiteStore) SearchUsers(ctx context.Context, prefix string, limit int) ([]*User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	prefix = strings.ToLower(prefix)
	return queryDocs[User](ctx, s.db, `
		SELECT data FROM users
		WHERE display_name_lower >= ? AND display_name_lower < ?
		ORDER BY display_name_lower
		LIMIT ?
	`, prefix, prefix+string(utf8.MaxRune), limit)
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, updates ...UserUpdate) (bool, error) {
	var found bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		found, err = updateUserTx(ctx, tx, id, updates)
		return err
	})
	if err != nil {
		return false, err
	}
	if found {
		s.hub.publish(Change{Collection: CollectionUsers, ID: id})
	}
	return found, nil
}

func updateUserTx(ctx context.Context, q execer, id string, updates []UserUpdate) (bool, error) {
	user, err := getDoc[User](ctx, q, "users", id)
	if err != nil || user == nil {
		return false, err
	}

	changed := false
	for _, update := range updates {
		if update(user) {
			changed = true
		}
	}
	if !changed {
		return true, nil
	}

	data, err := json.Marshal(user)
	if err != nil {
		return true, err
	}
	_, err = q.ExecContext(ctx, `
		UPDATE users SET display_name_lower = ?, email = ?, data = ? WHERE id = ?
	`, user.DisplayNameLower, nullString(strings.ToLower(user.Email)), string(data), id)
	return true, translateErr(err)
}

// Rankings

func (s *SQLiteStore) CreateRanking(ctx context.Context, ranking *Ranking) error {
	if ranking.ID == "" {
		ranking.ID = uuid.New().String()
	}
	if ranking.CreatedAt.IsZero() {
		ranking.CreatedAt = time.Now().UTC()
	}
	if ranking.Reactions == nil {
		ranking.Reactions = EmptyReactions()
	}
	if ranking.Comments == nil {
		ranking.Comments = []*Comment{}
	}
	if ranking.Items == nil {
		ranking.Items = []RankingItem{}
	}
	if ranking.Visibility == "" {
		ranking.Visibility = VisibilityGlobal
	}

	data, err := json.Marshal(ranking)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rankings (id, user_id, visibility, created_at, data)
		VALUES (?, ?, ?, ?, ?)
	`, ranking.ID, ranking.UserID, string(ranking.Visibility), ranking.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return translateErr(err)
	}

	s.hub.publish(Change{Collection: CollectionRankings, ID: ranking.ID})
	return nil
}

func (s *SQLiteStore) GetRanking(ctx context.Context, id string) (*Ranking, error) {
	return getDoc[Ranking](ctx, s.db, "rankings", id)
}

func (s *SQLiteStore) ListRankings(ctx context.Context, q RankingQuery) ([]*Ranking, string, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 30
	}

	query := `SELECT data FROM rankings WHERE 1 = 1`
	var args []any

	if len(q.UserIDs) > 0 {
		query += ` AND user_id IN (` + placeholders(len(q.UserIDs)) + `)`
		for _, id := range q.UserIDs {
			args = append(args, id)
		}
	}
	if len(q.Visibility) > 0 {
		query += ` AND visibility IN (` + placeholders(len(q.Visibility)) + `)`
		for _, v := range q.Visibility {
			args = append(args, string(v))
		}
	}
	if q.Cursor != "" {
		createdAt, id, err := parseCursor(q.Cursor)
		if err != nil {
			return nil, "", err
		}
		query += ` AND (created_at, id) < (?, ?)`
		args = append(args, createdAt, id)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, q.Limit+1)

	rankings, err := queryDocs[Ranking](ctx, s.db, query, args...)
	if err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(rankings) > q.Limit {
		rankings = rankings[:q.Limit]
		nextCursor = formatCursor(rankings[len(rankings)-1])
	}

	return rankings, nextCursor, nil
}

func (s *SQLiteStore) UpdateRanking(ctx context.Context, id string, updates ...RankingUpdate) (bool, error) {
	var found bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ranking, err := getDoc[Ranking](ctx, tx, "rankings", id)
		if err != nil || ranking == nil {
			return err
		}
		found = true

		changed := false
		for _, update := range updates {
			if update(ranking) {
				changed = true
			}
		}
		if !changed {
			return nil
		}

		data, err := json.Marshal(ranking)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE rankings SET visibility = ?, data = ? WHERE id = ?
		`, string(ranking.Visibility), string(data), id)
		return err
	})
	if err != nil {
		return false, err
	}
	if found {
		s.hub.publish(Change{Collection: CollectionRankings, ID: id})
	}
	return found, nil
}

func (s *SQLiteStore) DeleteRanking(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rankings WHERE id = ?`, id)
	if err == nil {
		s.hub.publish(Change{Collection: CollectionRankings, ID: id, Deleted: true})
	}
	return err
}

// Reranks

func (s *SQLiteStore) CreateRerank(ctx context.Context, rerank *Rerank) error {
	if rerank.ID == "" {
		rerank.ID = uuid.New().String()
	}
	if rerank.CreatedAt.IsZero() {
		rerank.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rerank)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reranks (id, original_ranking_id, user_id, created_at, data)
		VALUES (?, ?, ?, ?, ?)
	`, rerank.ID, rerank.OriginalRankingID, rerank.UserID, rerank.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return translateErr(err)
	}

	s.hub.publish(Change{Collection: CollectionReranks, ID: rerank.ID})
	return nil
}

func (s *SQLiteStore) ListReranks(ctx context.Context, originalRankingID string) ([]*Rerank, error) {
	return queryDocs[Rerank](ctx, s.db, `
		SELECT data FROM reranks WHERE original_ranking_id = ? ORDER BY created_at DESC
	`, originalRankingID)
}

// Notifications

func (s *SQLiteStore) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, to_user_id, from_user_id, ranking_id, read, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.ToUserID, n.FromUserID, nullString(n.RankingID), boolToInt(n.Read), n.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return translateErr(err)
	}

	s.hub.publish(Change{Collection: CollectionNotifications, ID: n.ID})
	return nil
}

func (s *SQLiteStore) GetNotification(ctx context.Context, id string) (*Notification, error) {
	return getDoc[Notification](ctx, s.db, "notifications", id)
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, q NotificationQuery) ([]*Notification, error) {
	query := `SELECT data FROM notifications WHERE 1 = 1`
	var args []any

	if q.ToUserID != "" {
		query += ` AND to_user_id = ?`
		args = append(args, q.ToUserID)
	}
	if q.FromUserID != "" {
		query += ` AND from_user_id = ?`
		args = append(args, q.FromUserID)
	}
	if q.RankingID != "" {
		query += ` AND ranking_id = ?`
		args = append(args, q.RankingID)
	}
	if q.UnreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	return queryDocs[Notification](ctx, s.db, query, args...)
}

func (s *SQLiteStore) CountUnreadNotifications(ctx context.Context, toUserID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE to_user_id = ? AND read = 0
	`, toUserID).Scan(&count)
	return count, err
}

func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return markReadTx(ctx, tx, id)
	})
	if err == nil {
		s.hub.publish(Change{Collection: CollectionNotifications, ID: id})
	}
	return err
}

func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, toUserID string) (int, error) {
	var ids []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id FROM notifications WHERE to_user_id = ? AND read = 0
		`, toUserID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range ids {
			if err := markReadTx(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	changes := make([]Change, 0, len(ids))
	for _, id := range ids {
		changes = append(changes, Change{Collection: CollectionNotifications, ID: id})
	}
	s.hub.publish(changes...)
	return len(ids), nil
}

func markReadTx(ctx context.Context, q execer, id string) error {
	n, err := getDoc[Notification](ctx, q, "notifications", id)
	if err != nil || n == nil || n.Read {
		return err
	}
	n.Read = true

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `UPDATE notifications SET read = 1, data = ? WHERE id = ?`, string(data), id)
	return err
}

func (s *SQLiteStore) DeleteNotification(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err == nil {
		s.hub.publish(Change{Collection: CollectionNotifications, ID: id, Deleted: true})
	}
	return err
}

// Reports

func (s *SQLiteStore) CreateReport(ctx context.Context, report *Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	if report.UpdatedAt.IsZero() {
		report.UpdatedAt = report.CreatedAt
	}
	if report.Status == "" {
		report.Status = ReportPending
	}

	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, content_id, reporter_id, status, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, report.ID, report.ContentID, report.ReporterID, string(report.Status), report.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return translateErr(err)
	}

	s.hub.publish(Change{Collection: CollectionReports, ID: report.ID})
	return nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, status ReportStatus) ([]*Report, error) {
	if status == "" {
		return queryDocs[Report](ctx, s.db, `SELECT data FROM reports ORDER BY created_at DESC`)
	}
	return queryDocs[Report](ctx, s.db, `
		SELECT data FROM reports WHERE status = ? ORDER BY created_at DESC
	`, string(status))
}

// Ranking cursors carry the sort key of the last ranking on the page, so a
// page boundary survives deletion of that ranking.

func formatCursor(r *Ranking) string {
	return strconv.FormatInt(r.CreatedAt.UnixNano(), 10) + ":" + r.ID
}

func parseCursor(cursor string) (int64, string, error) {
	ts, id, ok := strings.Cut(cursor, ":")
	if !ok || id == "" {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	createdAt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return createdAt, id, nil
}

// Helpers

func getDoc[T any](ctx context.Context, q execer, table, id string) (*T, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM `+table+` WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc T
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", table, id, err)
	}
	return &doc, nil
}

func firstDoc[T any](ctx context.Context, q execer, query string, args ...any) (*T, error) {
	docs, err := queryDocs[T](ctx, q, query+` LIMIT 1`, args...)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func queryDocs[T any](ctx context.Context, q execer, query string, args ...any) ([]*T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

func translateErr(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(set []string) []string {
	if set == nil {
		return []string{}
	}
	return set
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
