// Package domain holds the engagement engine's pure types.
// The engine converts discrete user actions into XP, levels, streaks,
// badges, and challenge progress. All day-boundary logic runs on UTC
// calendar days owned by the engine clock — never the client's.
package domain

import "time"

// ─── Calendar Days ──────────────────────────────────────────────────────────

// DayFormat is the wire/storage form of a calendar day.
const DayFormat = "2006-01-02"

// Day is a UTC calendar day in YYYY-MM-DD form.
// The zero value "" means "never".
type Day string

// DayOf returns the UTC calendar day containing t.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(DayFormat))
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool { return d == "" }

// Time returns midnight UTC of the day. Zero time for an unset day.
func (d Day) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	t, err := time.Parse(DayFormat, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Before reports whether d is strictly earlier than other.
// ISO dates compare correctly as strings.
func (d Day) Before(other Day) bool {
	return !d.IsZero() && !other.IsZero() && d < other
}

// DaysUntil returns the number of calendar days from d to other.
// Negative if other is earlier.
func (d Day) DaysUntil(other Day) int {
	if d.IsZero() || other.IsZero() {
		return 0
	}
	return int(other.Time().Sub(d.Time()) / (24 * time.Hour))
}

// ─── Progression ────────────────────────────────────────────────────────────

// Progression is the per-user engagement state. Owned and mutated
// exclusively by the engine; callers submit events and read snapshots.
type Progression struct {
	UserID         string `json:"user_id"`
	XP             int64  `json:"xp"`
	Level          int    `json:"level"`
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
	LastActionDate Day    `json:"last_action_date,omitempty"`
	ActionsTotal   int64  `json:"actions_total"`
}

// ActionDef is one entry of the action catalog: a known action type
// with its XP value and category.
type ActionDef struct {
	Type     string `json:"type" toml:"type"`
	XP       int64  `json:"xp" toml:"xp"`
	Category string `json:"category" toml:"category"`
}

// ActionEvent is one credited action. Retained for retry de-duplication
// and for badge criteria that inspect event history.
type ActionEvent struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	ActionType     string    `json:"action_type"`
	Category       string    `json:"category"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	OccurredOn     Day       `json:"occurred_on"`
	XPAwarded      int64     `json:"xp_awarded"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreditResult is the outcome of crediting one action. A retried call
// with the same idempotency key returns the original result unchanged.
type CreditResult struct {
	XP        int64      `json:"xp"`
	XPAwarded int64      `json:"xp_awarded"`
	Level     int        `json:"level"`
	LeveledUp bool       `json:"leveled_up"`
	NewBadges []BadgeDef `json:"new_badges,omitempty"`
	Replayed  bool       `json:"replayed,omitempty"`
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// BadgeDef defines a one-time unlockable badge with a stat-based predicate.
type BadgeDef struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Icon      string               `json:"icon"`
	RewardXP  int64                `json:"reward_xp"`
	Predicate func(BadgeStats) bool `json:"-"`
}

// UnlockedBadge records when a badge was earned.
type UnlockedBadge struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// BadgeStats is the post-credit snapshot fed to badge predicates.
type BadgeStats struct {
	XP                  int64
	Level               int
	CurrentStreak       int
	LongestStreak       int
	ActionsTotal        int64
	ActionsByCategory   map[string]int64
	ChallengesCompleted int
}

// ─── Snapshots ──────────────────────────────────────────────────────────────

// ProgressionSnapshot is the read projection served to clients. It is
// recomputed from the authoritative state on every read, never cached.
type ProgressionSnapshot struct {
	Progression
	XPToNextLevel int64           `json:"xp_to_next_level"`
	Badges        []UnlockedBadge `json:"badges"`
}
