package challenge

import (
	"sort"

	"github.com/bloom-health/bloom/internal/domain"
)

// Leaderboard ranks a challenge's participants. The order is a strict
// total order so that two renders of the same state are identical:
// total points desc, completed days desc, earlier join first, then
// user ID. Terminal participants stay on the board; abandoning does
// not erase earned points.
func (s *Service) Leaderboard(challengeID string, limit int) ([]domain.LeaderboardEntry, error) {
	if _, err := s.Get(challengeID); err != nil {
		return nil, err
	}
	participants, err := s.db.ListParticipants(challengeID)
	if err != nil {
		return nil, domain.Infra("list participants", err)
	}

	sort.Slice(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if len(a.CompletedTasks) != len(b.CompletedTasks) {
			return len(a.CompletedTasks) > len(b.CompletedTasks)
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})

	if limit > 0 && len(participants) > limit {
		participants = participants[:limit]
	}

	entries := make([]domain.LeaderboardEntry, len(participants))
	for i, p := range participants {
		name := p.DisplayName
		if name == "" {
			name = p.UserID
		}
		entries[i] = domain.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        p.UserID,
			Name:          name,
			CompletedDays: len(p.CompletedTasks),
			CurrentStreak: p.CurrentStreak,
			TotalPoints:   p.TotalPoints,
		}
	}
	return entries, nil
}
