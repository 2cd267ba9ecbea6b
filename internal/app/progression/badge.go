package progression

import "github.com/bloom-health/bloom/internal/domain"

// Evaluator checks badge criteria against a post-credit snapshot.
// Evaluation is stateless; the append-only unlocked set makes unlocking
// idempotent by construction.
type Evaluator struct {
	defs []domain.BadgeDef
}

// NewEvaluator creates an evaluator over the given definitions.
func NewEvaluator(defs []domain.BadgeDef) *Evaluator {
	return &Evaluator{defs: defs}
}

// Evaluate returns every badge whose predicate holds and that is not in
// the unlocked set, in catalog order.
func (e *Evaluator) Evaluate(stats domain.BadgeStats, unlocked map[string]bool) []domain.BadgeDef {
	var newly []domain.BadgeDef
	for _, def := range e.defs {
		if unlocked[def.ID] {
			continue
		}
		if def.Predicate != nil && def.Predicate(stats) {
			newly = append(newly, def)
		}
	}
	return newly
}

// Definitions returns all badge definitions (for display).
func (e *Evaluator) Definitions() []domain.BadgeDef {
	return e.defs
}

// DefaultBadges returns the full badge catalog.
func DefaultBadges() []domain.BadgeDef {
	cat := func(s domain.BadgeStats, category string) int64 {
		return s.ActionsByCategory[category]
	}
	return []domain.BadgeDef{
		// ── Getting started ────────────────────────────────────────────
		{
			ID: "first_step", Name: "First Step", Icon: "🌱", RewardXP: 10,
			Predicate: func(s domain.BadgeStats) bool { return s.ActionsTotal >= 1 },
		},
		{
			ID: "first_journal", Name: "Dear Diary", Icon: "📓", RewardXP: 15,
			Predicate: func(s domain.BadgeStats) bool { return cat(s, "journaling") >= 1 },
		},
		{
			ID: "first_session", Name: "Brave Start", Icon: "🤝", RewardXP: 25,
			Predicate: func(s domain.BadgeStats) bool { return cat(s, "therapy") >= 1 },
		},

		// ── Streaks ────────────────────────────────────────────────────
		{
			ID: "streak_7", Name: "Week of Calm", Icon: "🔥", RewardXP: 50,
			Predicate: func(s domain.BadgeStats) bool { return s.CurrentStreak >= 7 },
		},
		{
			ID: "streak_30", Name: "Month of Calm", Icon: "🌊", RewardXP: 200,
			Predicate: func(s domain.BadgeStats) bool { return s.CurrentStreak >= 30 },
		},
		{
			ID: "streak_100", Name: "Steady Mind", Icon: "🧘", RewardXP: 1000,
			Predicate: func(s domain.BadgeStats) bool { return s.CurrentStreak >= 100 },
		},
		{
			ID: "longest_14", Name: "Two Good Weeks", Icon: "📅", RewardXP: 75,
			Predicate: func(s domain.BadgeStats) bool { return s.LongestStreak >= 14 },
		},

		// ── Practice volume ────────────────────────────────────────────
		{
			ID: "journal_10", Name: "Ten Pages", Icon: "✍️", RewardXP: 50,
			Predicate: func(s domain.BadgeStats) bool { return cat(s, "journaling") >= 10 },
		},
		{
			ID: "journal_100", Name: "Chronicler", Icon: "📚", RewardXP: 250,
			Predicate: func(s domain.BadgeStats) bool { return cat(s, "journaling") >= 100 },
		},
		{
			ID: "tracker_30", Name: "Self Aware", Icon: "📈", RewardXP: 100,
			Predicate: func(s domain.BadgeStats) bool { return cat(s, "tracking") >= 30 },
		},
		{
			ID: "practice_25", Name: "Deep Breather", Icon: "🌬️", RewardXP: 100,
			Predicate: func(s domain.BadgeStats) bool { return cat(s, "practice") >= 25 },
		},
		{
			ID: "community_10", Name: "Community Voice", Icon: "💬", RewardXP: 50,
			Predicate: func(s domain.BadgeStats) bool { return cat(s, "community") >= 10 },
		},

		// ── Levels and XP ──────────────────────────────────────────────
		{
			ID: "level_5", Name: "Taking Root", Icon: "🌿", RewardXP: 50,
			Predicate: func(s domain.BadgeStats) bool { return s.Level >= 5 },
		},
		{
			ID: "level_10", Name: "In Bloom", Icon: "🌸", RewardXP: 100,
			Predicate: func(s domain.BadgeStats) bool { return s.Level >= 10 },
		},
		{
			ID: "level_25", Name: "Flourishing", Icon: "🌳", RewardXP: 250,
			Predicate: func(s domain.BadgeStats) bool { return s.Level >= 25 },
		},
		{
			ID: "xp_1000", Name: "Milestone Mind", Icon: "⭐", RewardXP: 100,
			Predicate: func(s domain.BadgeStats) bool { return s.XP >= 1000 },
		},

		// ── Challenges ─────────────────────────────────────────────────
		{
			ID: "challenge_first", Name: "Finisher", Icon: "🏁", RewardXP: 100,
			Predicate: func(s domain.BadgeStats) bool { return s.ChallengesCompleted >= 1 },
		},
		{
			ID: "challenge_5", Name: "Challenge Champion", Icon: "🏆", RewardXP: 300,
			Predicate: func(s domain.BadgeStats) bool { return s.ChallengesCompleted >= 5 },
		},
	}
}
