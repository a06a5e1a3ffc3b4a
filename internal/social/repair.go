package social

import (
	"context"
	"fmt"

	"github.com/alphabot-ai/ranked/internal/store"
)

// RepairReport summarizes one CleanupFollowerCounts sweep.
type RepairReport struct {
	Scanned  int      `json:"scanned"`
	Repaired int      `json:"repaired"`
	UserIDs  []string `json:"userIds"`
}

// CleanupFollowerCounts drops follower and following ids that point at
// deleted users and resets both counts to the new lengths. Users whose lists
// are intact are left alone, even if their counts drifted. All rewrites are
// committed as one batch.
func (s *Service) CleanupFollowerCounts(ctx context.Context) (*RepairReport, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	exists := make(map[string]bool, len(users))
	for _, u := range users {
		exists[u.ID] = true
	}

	report := &RepairReport{Scanned: len(users), UserIDs: []string{}}
	batch := s.store.NewBatch()
	for _, u := range users {
		followers := existing(u.Followers, exists)
		following := existing(u.Following, exists)
		if len(followers) == len(u.Followers) && len(following) == len(u.Following) {
			continue
		}
		batch.UpdateUser(u.ID, store.SetFollowGraph(followers, following))
		report.UserIDs = append(report.UserIDs, u.ID)
	}
	report.Repaired = len(report.UserIDs)

	if err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit follower repair: %w", err)
	}

	s.log.Info().Int("scanned", report.Scanned).Int("repaired", report.Repaired).Msg("follower counts cleaned up")
	return report, nil
}

func existing(ids []string, exists map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if exists[id] {
			out = append(out, id)
		}
	}
	return out
}
