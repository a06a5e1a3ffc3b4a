package store

import "time"

// UserUpdate mutates a user document in place and reports whether it changed
// anything. Updates passed together to UpdateUser are applied atomically.
type UserUpdate func(u *User) bool

// RankingUpdate is the ranking counterpart of UserUpdate.
type RankingUpdate func(r *Ranking) bool

// AddFollowing adds id to the following set. The count moves only when the
// set changed, so repeating the update is a no-op.
func AddFollowing(id string) UserUpdate {
	return func(u *User) bool {
		var added bool
		if u.Following, added = union(u.Following, id); added {
			u.FollowingCount++
		}
		return added
	}
}

func RemoveFollowing(id string) UserUpdate {
	return func(u *User) bool {
		var removed bool
		if u.Following, removed = remove(u.Following, id); removed {
			u.FollowingCount--
		}
		return removed
	}
}

func AddFollower(id string) UserUpdate {
	return func(u *User) bool {
		var added bool
		if u.Followers, added = union(u.Followers, id); added {
			u.FollowerCount++
		}
		return added
	}
}

func RemoveFollower(id string) UserUpdate {
	return func(u *User) bool {
		var removed bool
		if u.Followers, removed = remove(u.Followers, id); removed {
			u.FollowerCount--
		}
		return removed
	}
}

// SetFollowGraph overwrites both edge sets and recomputes the counts from
// their lengths.
func SetFollowGraph(followers, following []string) UserUpdate {
	return func(u *User) bool {
		u.Followers = append([]string{}, followers...)
		u.Following = append([]string{}, following...)
		u.FollowerCount = len(u.Followers)
		u.FollowingCount = len(u.Following)
		return true
	}
}

func AddBlocked(id string) UserUpdate {
	return func(u *User) bool {
		var added bool
		u.BlockedUsers, added = union(u.BlockedUsers, id)
		return added
	}
}

func RemoveBlocked(id string) UserUpdate {
	return func(u *User) bool {
		var removed bool
		u.BlockedUsers, removed = remove(u.BlockedUsers, id)
		return removed
	}
}

func SetPushToken(token string) UserUpdate {
	return func(u *User) bool {
		if u.PushToken == token {
			return false
		}
		u.PushToken = token
		return true
	}
}

func SetBadWordsMode(on bool) UserUpdate {
	return func(u *User) bool {
		if u.BadWordsMode == on {
			return false
		}
		u.BadWordsMode = on
		return true
	}
}

// AcceptTerms records the first acceptance time; later calls keep it.
func AcceptTerms(at time.Time) UserUpdate {
	return func(u *User) bool {
		if u.AcceptedTerms {
			return false
		}
		u.AcceptedTerms = true
		u.AcceptedTermsDate = &at
		return true
	}
}

func IncrementShareCount() UserUpdate {
	return func(u *User) bool {
		u.ShareCount++
		return true
	}
}

func IncrementSecretButtonIndex() UserUpdate {
	return func(u *User) bool {
		u.SecretButtonIndex++
		return true
	}
}

// SetReaction moves userID into the set for kind, removing it from every
// other set first.
func SetReaction(userID string, kind ReactionKind) RankingUpdate {
	return func(r *Ranking) bool {
		if r.Reactions == nil {
			r.Reactions = EmptyReactions()
		}
		changed := clearReactions(r, userID)
		var added bool
		r.Reactions[kind], added = union(r.Reactions[kind], userID)
		return changed || added
	}
}

func ClearReaction(userID string) RankingUpdate {
	return func(r *Ranking) bool {
		return clearReactions(r, userID)
	}
}

func clearReactions(r *Ranking, userID string) bool {
	var changed bool
	for _, kind := range ReactionKinds {
		var removed bool
		r.Reactions[kind], removed = remove(r.Reactions[kind], userID)
		if r.Reactions[kind] == nil {
			r.Reactions[kind] = []string{}
		}
		changed = changed || removed
	}
	return changed
}

func AppendComment(c *Comment) RankingUpdate {
	return func(r *Ranking) bool {
		r.Comments = append(r.Comments, c)
		return true
	}
}

// RemoveComment drops the comment with the given id. Replies that point at
// it are left in place.
func RemoveComment(id string) RankingUpdate {
	return func(r *Ranking) bool {
		kept := r.Comments[:0]
		for _, c := range r.Comments {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		changed := len(kept) != len(r.Comments)
		r.Comments = kept
		return changed
	}
}

// SetContent replaces the editable fields of a ranking.
func SetContent(title string, items []RankingItem, visibility Visibility) RankingUpdate {
	return func(r *Ranking) bool {
		r.Title = title
		r.Items = items
		r.Visibility = visibility
		return true
	}
}

// Set helpers

func contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func union(set []string, id string) ([]string, bool) {
	if contains(set, id) {
		return set, false
	}
	return append(set, id), true
}

func remove(set []string, id string) ([]string, bool) {
	if !contains(set, id) {
		return set, false
	}
	out := make([]string, 0, len(set)-1)
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out, true
}
