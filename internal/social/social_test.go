package social

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/ranked/internal/moderation"
	"github.com/alphabot-ai/ranked/internal/notify"
	"github.com/alphabot-ai/ranked/internal/store"
)

// failingStore injects write failures in front of a real store.
type failingStore struct {
	store.Store
	failUpdateUser map[string]error
	failCommit     error
}

func (f *failingStore) UpdateUser(ctx context.Context, id string, updates ...store.UserUpdate) (bool, error) {
	if err := f.failUpdateUser[id]; err != nil {
		return false, err
	}
	return f.Store.UpdateUser(ctx, id, updates...)
}

func (f *failingStore) NewBatch() store.Batch {
	b := f.Store.NewBatch()
	if f.failCommit != nil {
		return &failingBatch{Batch: b, err: f.failCommit}
	}
	return b
}

type failingBatch struct {
	store.Batch
	err error
}

func (b *failingBatch) Commit(context.Context) error { return b.err }

func setupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "ranked-social-test-*.db")
	require.NoError(t, err)
	tmpFile.Close()

	s, err := store.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(tmpFile.Name())
	})
	return s
}

func newService(s store.Store, raw store.Store) *Service {
	notifier := notify.New(raw, nil, zerolog.Nop())
	return NewService(s, notifier, moderation.NewFilter(zerolog.Nop()), zerolog.Nop())
}

func setupService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	s := setupTestStore(t)
	return newService(s, s), s
}

func register(t *testing.T, svc *Service, id, name string) *store.User {
	t.Helper()
	u, err := svc.RegisterUser(context.Background(), id, Registration{
		Email:       id + "@example.com",
		DisplayName: name,
	})
	require.NoError(t, err)
	return u
}

func mustUser(t *testing.T, s store.Store, id string) *store.User {
	t.Helper()
	u, err := s.GetUser(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u, "user %s", id)
	return u
}

func inbox(t *testing.T, s store.Store, id string) []*store.Notification {
	t.Helper()
	list, err := s.ListNotifications(context.Background(), store.NotificationQuery{ToUserID: id})
	require.NoError(t, err)
	return list
}

func newRanking(t *testing.T, svc *Service, owner, title string, vis store.Visibility) *store.Ranking {
	t.Helper()
	r, err := svc.CreateRanking(context.Background(), owner, RankingInput{
		Title:      title,
		Items:      []store.RankingItem{{Content: "first"}, {Content: "second"}},
		Visibility: vis,
	})
	require.NoError(t, err)
	return r
}

func TestFollowAndUnfollow(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")

	require.NoError(t, svc.Follow(ctx, "alice", "bob"))
	require.NoError(t, svc.Follow(ctx, "alice", "bob"))

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	assert.Equal(t, []string{"bob"}, alice.Following)
	assert.Equal(t, 1, alice.FollowingCount)
	assert.Equal(t, []string{"alice"}, bob.Followers)
	assert.Equal(t, 1, bob.FollowerCount)

	notes := inbox(t, s, "bob")
	require.Len(t, notes, 1)
	assert.Equal(t, store.NotificationFollow, notes[0].Type)
	assert.Equal(t, "Alice", notes[0].FromUsername)

	followers, err := svc.ListFollowers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].ID)

	require.NoError(t, svc.Unfollow(ctx, "alice", "bob"))
	require.NoError(t, svc.Unfollow(ctx, "alice", "bob"))

	alice = mustUser(t, s, "alice")
	bob = mustUser(t, s, "bob")
	assert.Empty(t, alice.Following)
	assert.Equal(t, 0, alice.FollowingCount)
	assert.Empty(t, bob.Followers)
	assert.Equal(t, 0, bob.FollowerCount)
}

func TestFollowSelf(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")

	assert.ErrorIs(t, svc.Follow(ctx, "alice", "alice"), ErrSelfFollow)
	assert.ErrorIs(t, svc.Unfollow(ctx, "alice", "alice"), ErrSelfFollow)

	alice := mustUser(t, s, "alice")
	assert.Empty(t, alice.Following)
	assert.Empty(t, alice.Followers)
	assert.Empty(t, inbox(t, s, "alice"))
}

func TestFollowMissingTarget(t *testing.T) {
	svc, s := setupService(t)
	register(t, svc, "alice", "Alice")

	err := svc.Follow(context.Background(), "alice", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, mustUser(t, s, "alice").Following)
}

func TestFollowPartialFailure(t *testing.T) {
	raw := setupTestStore(t)
	fs := &failingStore{Store: raw, failUpdateUser: map[string]error{}}
	svc := newService(fs, raw)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")

	fs.failUpdateUser["bob"] = errors.New("write rejected")
	require.Error(t, svc.Follow(ctx, "alice", "bob"))

	assert.Equal(t, []string{"bob"}, mustUser(t, raw, "alice").Following)
	assert.Empty(t, mustUser(t, raw, "bob").Followers)
	assert.Empty(t, inbox(t, raw, "bob"))

	delete(fs.failUpdateUser, "bob")
	require.NoError(t, svc.Follow(ctx, "alice", "bob"))
	assert.Equal(t, []string{"alice"}, mustUser(t, raw, "bob").Followers)
	assert.Equal(t, 1, mustUser(t, raw, "alice").FollowingCount)
}

func TestReact(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	r := newRanking(t, svc, "alice", "Best pizza", store.VisibilityGlobal)

	require.NoError(t, svc.React(ctx, "bob", r.ID, store.ReactionGrin))
	require.NoError(t, svc.React(ctx, "bob", r.ID, store.ReactionGrin))
	require.NoError(t, svc.React(ctx, "bob", r.ID, store.ReactionSad))

	fetched, err := s.GetRanking(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.Reactions[store.ReactionGrin])
	assert.Equal(t, []string{"bob"}, fetched.Reactions[store.ReactionSad])

	notes := inbox(t, s, "alice")
	require.Len(t, notes, 2)
	assert.Equal(t, store.ReactionSad, notes[0].Reaction)
	assert.Equal(t, "Best pizza", notes[0].RankingTitle)

	require.NoError(t, svc.React(ctx, "alice", r.ID, store.ReactionAngry))
	assert.Len(t, inbox(t, s, "alice"), 2)

	require.NoError(t, svc.Unreact(ctx, "bob", r.ID))
	fetched, _ = s.GetRanking(ctx, r.ID)
	_, ok := fetched.ReactionOf("bob")
	assert.False(t, ok)

	assert.ErrorIs(t, svc.React(ctx, "bob", r.ID, store.ReactionKind(":)")), ErrInvalidReaction)
	assert.NoError(t, svc.React(ctx, "bob", "missing", store.ReactionGrin))
}

func TestAddComment(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	register(t, svc, "carol", "Carol")
	r := newRanking(t, svc, "alice", "Films", store.VisibilityGlobal)

	top, err := svc.AddComment(ctx, "bob", r.ID, "  great list  ", "")
	require.NoError(t, err)
	assert.Equal(t, "great list", top.Content)
	assert.Equal(t, "Bob", top.Username)
	assert.NotEmpty(t, top.ID)

	notes := inbox(t, s, "alice")
	require.Len(t, notes, 1)
	assert.Equal(t, store.NotificationComment, notes[0].Type)
	assert.Equal(t, "great list", notes[0].CommentText)

	_, err = svc.AddComment(ctx, "carol", r.ID, "agreed", top.ID)
	require.NoError(t, err)
	notes = inbox(t, s, "bob")
	require.Len(t, notes, 1)
	assert.Equal(t, "replied: agreed", notes[0].CommentText)

	_, err = svc.AddComment(ctx, "bob", r.ID, "thanks", top.ID)
	require.NoError(t, err)
	assert.Len(t, inbox(t, s, "bob"), 1)

	_, err = svc.AddComment(ctx, "alice", r.ID, "my own list", "")
	require.NoError(t, err)
	assert.Len(t, inbox(t, s, "alice"), 1)

	_, err = svc.AddComment(ctx, "bob", r.ID, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyComment)

	fetched, _ := s.GetRanking(ctx, r.ID)
	assert.Len(t, fetched.Comments, 4)
}

func TestDeleteComment(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	register(t, svc, "carol", "Carol")
	r := newRanking(t, svc, "alice", "Films", store.VisibilityGlobal)

	parent, err := svc.AddComment(ctx, "bob", r.ID, "great list", "")
	require.NoError(t, err)
	reply, err := svc.AddComment(ctx, "carol", r.ID, "agreed", parent.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteComment(ctx, "carol", r.ID, parent.ID), ErrForbidden)
	assert.ErrorIs(t, svc.DeleteComment(ctx, "bob", r.ID, "nope"), ErrNotFound)

	require.NoError(t, svc.DeleteComment(ctx, "bob", r.ID, parent.ID))
	assert.Empty(t, inbox(t, s, "alice"))

	tree, err := svc.Comments(ctx, "alice", r.ID, true)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, reply.ID, tree[0].ID)

	require.NoError(t, svc.DeleteComment(ctx, "alice", r.ID, reply.ID))
	fetched, _ := s.GetRanking(ctx, r.ID)
	assert.Empty(t, fetched.Comments)
}

func TestBuildCommentTree(t *testing.T) {
	tests := []struct {
		name     string
		comments []*store.Comment
		roots    []string
		children map[string][]string
	}{
		{
			name:  "empty",
			roots: []string{},
		},
		{
			name: "nested",
			comments: []*store.Comment{
				{ID: "a"},
				{ID: "b", ParentCommentID: "a"},
				{ID: "c", ParentCommentID: "b"},
				{ID: "d"},
				{ID: "e", ParentCommentID: "a"},
			},
			roots:    []string{"a", "d"},
			children: map[string][]string{"a": {"b", "e"}, "b": {"c"}},
		},
		{
			name: "orphan becomes root",
			comments: []*store.Comment{
				{ID: "a"},
				{ID: "b", ParentCommentID: "deleted"},
			},
			roots: []string{"a", "b"},
		},
		{
			name: "reply listed before parent",
			comments: []*store.Comment{
				{ID: "b", ParentCommentID: "a"},
				{ID: "a"},
			},
			roots:    []string{"a"},
			children: map[string][]string{"a": {"b"}},
		},
		{
			name: "self parent",
			comments: []*store.Comment{
				{ID: "a", ParentCommentID: "a"},
			},
			roots: []string{"a"},
		},
		{
			name: "parent cycle surfaces at top level",
			comments: []*store.Comment{
				{ID: "a", ParentCommentID: "b"},
				{ID: "b", ParentCommentID: "a"},
				{ID: "c"},
				{ID: "d", ParentCommentID: "a"},
			},
			roots:    []string{"a", "b", "c"},
			children: map[string][]string{"a": {"d"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots := BuildCommentTree(tt.comments)

			ids := make([]string, 0, len(roots))
			for _, r := range roots {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.roots, ids)

			var walk func(nodes []*store.Comment)
			walk = func(nodes []*store.Comment) {
				for _, n := range nodes {
					var got []string
					for _, c := range n.Replies {
						got = append(got, c.ID)
					}
					assert.Equal(t, tt.children[n.ID], got, "replies of %s", n.ID)
					walk(n.Replies)
				}
			}
			walk(roots)

			for _, c := range tt.comments {
				assert.Nil(t, c.Replies, "input comment %s was modified", c.ID)
			}
		})
	}
}

func TestRankingVisibility(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	register(t, svc, "carol", "Carol")
	require.NoError(t, svc.Follow(ctx, "bob", "alice"))

	global := newRanking(t, svc, "alice", "Public", store.VisibilityGlobal)
	friends := newRanking(t, svc, "alice", "Friends only", store.VisibilityFriends)
	private := newRanking(t, svc, "alice", "Secret", store.VisibilityPrivate)

	tests := []struct {
		viewer  string
		ranking *store.Ranking
		allowed bool
	}{
		{"carol", global, true},
		{"carol", friends, false},
		{"bob", friends, true},
		{"bob", private, false},
		{"alice", private, true},
		{"", global, true},
		{"", friends, false},
	}
	for _, tt := range tests {
		_, err := svc.GetRanking(ctx, tt.viewer, tt.ranking.ID)
		if tt.allowed {
			assert.NoError(t, err, "%s viewing %s", tt.viewer, tt.ranking.Title)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s viewing %s", tt.viewer, tt.ranking.Title)
		}
	}
}

func TestCreateRanking(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	require.NoError(t, svc.Follow(ctx, "bob", "alice"))

	r, err := svc.CreateRanking(ctx, "alice", RankingInput{
		Title: "  Snacks ",
		Items: []store.RankingItem{{ID: 9, Content: "chips"}, {Content: "  "}, {ID: 3, Content: "nuts"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Snacks", r.Title)
	assert.Equal(t, store.VisibilityGlobal, r.Visibility)
	assert.Equal(t, []store.RankingItem{{ID: 1, Content: "chips"}, {ID: 2, Content: "nuts"}}, r.Items)
	assert.Equal(t, "Alice", r.Username)

	notes := inbox(t, s, "bob")
	require.Len(t, notes, 1)
	assert.Equal(t, store.NotificationNewRanking, notes[0].Type)
	assert.Equal(t, r.ID, notes[0].RankingID)

	newRanking(t, svc, "alice", "Diary", store.VisibilityPrivate)
	assert.Len(t, inbox(t, s, "bob"), 1)

	_, err = svc.CreateRanking(ctx, "alice", RankingInput{Title: "Empty"})
	assert.ErrorIs(t, err, ErrInvalidRanking)
	_, err = svc.CreateRanking(ctx, "alice", RankingInput{Title: "x", Items: r.Items, Visibility: "secret"})
	assert.ErrorIs(t, err, ErrInvalidRanking)
}

func TestEditAndDeleteRanking(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	r := newRanking(t, svc, "alice", "Films", store.VisibilityGlobal)

	_, err := svc.EditRanking(ctx, "bob", r.ID, RankingInput{Title: "Mine", Items: r.Items})
	assert.ErrorIs(t, err, ErrForbidden)

	edited, err := svc.EditRanking(ctx, "alice", r.ID, RankingInput{
		Title:      "Films of 2025",
		Items:      []store.RankingItem{{Content: "one"}},
		Visibility: store.VisibilityFriends,
	})
	require.NoError(t, err)
	assert.Equal(t, "Films of 2025", edited.Title)
	assert.Equal(t, store.VisibilityFriends, edited.Visibility)

	require.NoError(t, svc.Follow(ctx, "bob", "alice"))
	require.NoError(t, svc.React(ctx, "bob", r.ID, store.ReactionGrin))
	_, err = svc.AddComment(ctx, "bob", r.ID, "nice", "")
	require.NoError(t, err)
	require.Len(t, inbox(t, s, "alice"), 3)

	assert.ErrorIs(t, svc.DeleteRanking(ctx, "bob", r.ID), ErrForbidden)
	require.NoError(t, svc.DeleteRanking(ctx, "alice", r.ID))

	gone, err := s.GetRanking(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	notes := inbox(t, s, "alice")
	require.Len(t, notes, 1)
	assert.Equal(t, store.NotificationFollow, notes[0].Type)
}

func TestRerankProvenance(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	register(t, svc, "carol", "Carol")
	original := newRanking(t, svc, "alice", "Pizza", store.VisibilityGlobal)

	items := []store.RankingItem{{Content: "second"}, {Content: "first"}}
	first, err := svc.Rerank(ctx, "bob", original.ID, items, "")
	require.NoError(t, err)
	assert.True(t, first.IsRerank)
	assert.Equal(t, "Pizza", first.Title)
	assert.Equal(t, original.ID, first.OriginalRankingID)
	assert.Equal(t, "Alice", first.OriginalUsername)

	second, err := svc.Rerank(ctx, "carol", first.ID, items, store.VisibilityGlobal)
	require.NoError(t, err)
	assert.Equal(t, original.ID, second.OriginalRankingID)
	assert.Equal(t, "Alice", second.OriginalUsername)

	aliceNotes := inbox(t, s, "alice")
	require.Len(t, aliceNotes, 1)
	assert.Equal(t, store.NotificationRerank, aliceNotes[0].Type)

	bobNotes := inbox(t, s, "bob")
	require.Len(t, bobNotes, 1)
	assert.Equal(t, second.ID, bobNotes[0].RankingID)

	rr, err := svc.SubmitRerank(ctx, "carol", original.ID, RankingInput{Items: items})
	require.NoError(t, err)
	assert.Equal(t, "Pizza", rr.Title)
	assert.Equal(t, original.ID, rr.OriginalRankingID)

	reranks, err := s.ListReranks(ctx, original.ID)
	require.NoError(t, err)
	assert.Len(t, reranks, 1)
	assert.Len(t, inbox(t, s, "alice"), 2)
}

func TestFeeds(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	register(t, svc, "carol", "Carol")
	register(t, svc, "viewer", "Viewer")

	newRanking(t, svc, "alice", "Alice global", store.VisibilityGlobal)
	newRanking(t, svc, "alice", "Alice friends", store.VisibilityFriends)
	newRanking(t, svc, "bob", "Bob global", store.VisibilityGlobal)
	newRanking(t, svc, "carol", "shit list", store.VisibilityGlobal)

	require.NoError(t, svc.Follow(ctx, "viewer", "alice"))
	require.NoError(t, svc.Block(ctx, "viewer", "bob"))

	titles := func(f *Feed) []string {
		var out []string
		for _, r := range f.Rankings {
			out = append(out, r.Title)
		}
		return out
	}

	global, err := svc.GlobalFeed(ctx, "viewer", 10, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice global", "shit list"}, titles(global))

	require.NoError(t, svc.SetBadWordsMode(ctx, "viewer", false))
	global, err = svc.GlobalFeed(ctx, "viewer", 10, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice global"}, titles(global))

	following, err := svc.FollowingFeed(ctx, "viewer", 10, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice global", "Alice friends"}, titles(following))

	profile, err := svc.UserRankings(ctx, "carol", "alice", 10, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice global"}, titles(profile))

	own, err := svc.UserRankings(ctx, "alice", "alice", 10, "")
	require.NoError(t, err)
	assert.Len(t, own.Rankings, 2)
}

func TestRegisterUser(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	u := register(t, svc, "alice", "Alice")
	assert.True(t, u.BadWordsMode)
	assert.Equal(t, "alice", u.DisplayNameLower)

	_, err := svc.RegisterUser(ctx, "other", Registration{Email: "x@example.com", DisplayName: "ALICE"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.RegisterUser(ctx, "other", Registration{Email: "Alice@Example.com", DisplayName: "Al"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.RegisterUser(ctx, "alice", Registration{Email: "new@example.com", DisplayName: "New"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.RegisterUser(ctx, "other", Registration{Email: "", DisplayName: "Other"})
	assert.ErrorIs(t, err, ErrInvalidUser)

	ok, err := svc.UsernameAvailable(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.EmailAvailable(ctx, "free@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := svc.SearchUsers(ctx, "al", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alice", found[0].ID)
}

func TestProfileUpdates(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")

	require.NoError(t, svc.SetPushToken(ctx, "alice", "ExponentPushToken[a]"))
	require.NoError(t, svc.AcceptTerms(ctx, "alice"))
	shares, err := svc.RecordShare(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, shares)
	idx, err := svc.AdvanceSecretButton(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	u := mustUser(t, s, "alice")
	assert.Equal(t, "ExponentPushToken[a]", u.PushToken)
	assert.True(t, u.AcceptedTerms)
	assert.NotNil(t, u.AcceptedTermsDate)

	assert.ErrorIs(t, svc.Block(ctx, "alice", "alice"), ErrSelfBlock)
	assert.ErrorIs(t, svc.SetBadWordsMode(ctx, "ghost", false), ErrNotFound)
}

func TestNotificationOwnership(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	require.NoError(t, svc.Follow(ctx, "alice", "bob"))
	note := inbox(t, s, "bob")[0]

	assert.ErrorIs(t, svc.MarkNotificationRead(ctx, "alice", note.ID), ErrForbidden)
	assert.ErrorIs(t, svc.DeleteNotification(ctx, "alice", note.ID), ErrForbidden)
	assert.ErrorIs(t, svc.MarkNotificationRead(ctx, "bob", "missing"), ErrNotFound)

	unread, err := svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, svc.MarkNotificationRead(ctx, "bob", note.ID))
	unread, _ = svc.UnreadCount(ctx, "bob")
	assert.Zero(t, unread)

	require.NoError(t, svc.DeleteNotification(ctx, "bob", note.ID))
	list, err := svc.ListNotifications(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReportContent(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()

	report, err := svc.ReportContent(ctx, "alice", ReportInput{
		ContentID:      "r1",
		ContentType:    "ranking",
		ReportedUserID: "bob",
		Reason:         "spam",
	})
	require.NoError(t, err)
	assert.Equal(t, store.ReportPending, report.Status)

	pending, err := s.ListReports(ctx, store.ReportPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = svc.ReportContent(ctx, "alice", ReportInput{ContentID: "r1", ContentType: "user", ReportedUserID: "bob", Reason: "spam"})
	assert.ErrorIs(t, err, ErrInvalidReport)
	_, err = svc.ReportContent(ctx, "alice", ReportInput{ContentID: "r1", ContentType: "comment", ReportedUserID: "bob"})
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestCleanupFollowerCounts(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	register(t, svc, "carol", "Carol")
	require.NoError(t, svc.Follow(ctx, "alice", "bob"))

	_, err := s.UpdateUser(ctx, "bob", store.AddFollower("ghost"), store.AddFollowing("ghost2"))
	require.NoError(t, err)

	report, err := svc.CleanupFollowerCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, []string{"bob"}, report.UserIDs)

	bob := mustUser(t, s, "bob")
	assert.Equal(t, []string{"alice"}, bob.Followers)
	assert.Equal(t, 1, bob.FollowerCount)
	assert.Empty(t, bob.Following)
	assert.Equal(t, 0, bob.FollowingCount)

	again, err := svc.CleanupFollowerCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Repaired)
}

func TestDeleteUserAccount(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	register(t, svc, "carol", "Carol")

	require.NoError(t, svc.Follow(ctx, "alice", "bob"))
	require.NoError(t, svc.Follow(ctx, "bob", "carol"))
	require.NoError(t, svc.Follow(ctx, "carol", "bob"))
	r := newRanking(t, svc, "bob", "Bob's list", store.VisibilityGlobal)
	kept := newRanking(t, svc, "alice", "Alice's list", store.VisibilityGlobal)

	require.NoError(t, svc.DeleteUserAccount(ctx, "bob"))

	gone, err := s.GetUser(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, gone)

	alice := mustUser(t, s, "alice")
	assert.Empty(t, alice.Following)
	assert.Equal(t, 0, alice.FollowingCount)
	carol := mustUser(t, s, "carol")
	assert.Empty(t, carol.Followers)
	assert.Empty(t, carol.Following)
	assert.Equal(t, 0, carol.FollowerCount)
	assert.Equal(t, 0, carol.FollowingCount)

	deleted, _ := s.GetRanking(ctx, r.ID)
	assert.Nil(t, deleted)
	still, _ := s.GetRanking(ctx, kept.ID)
	assert.NotNil(t, still)

	assert.Empty(t, inbox(t, s, "bob"))
	sent, err := s.ListNotifications(ctx, store.NotificationQuery{FromUserID: "bob"})
	require.NoError(t, err)
	assert.Empty(t, sent)

	assert.ErrorIs(t, svc.DeleteUserAccount(ctx, "bob"), ErrNotFound)
}

func TestDeleteUserAccountIsAtomic(t *testing.T) {
	raw := setupTestStore(t)
	fs := &failingStore{Store: raw}
	svc := newService(fs, raw)
	ctx := context.Background()
	register(t, svc, "alice", "Alice")
	register(t, svc, "bob", "Bob")
	require.NoError(t, svc.Follow(ctx, "alice", "bob"))
	r := newRanking(t, svc, "bob", "Bob's list", store.VisibilityGlobal)

	fs.failCommit = errors.New("commit refused")
	require.Error(t, svc.DeleteUserAccount(ctx, "bob"))

	mustUser(t, raw, "bob")
	assert.Equal(t, []string{"bob"}, mustUser(t, raw, "alice").Following)
	still, _ := raw.GetRanking(ctx, r.ID)
	assert.NotNil(t, still)
	assert.Len(t, inbox(t, raw, "bob"), 1)
}
