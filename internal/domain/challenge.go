package domain

import "time"

// ─── Challenge Types ────────────────────────────────────────────────────────

// Challenge is a fixed-duration, multi-day program with per-day tasks.
type Challenge struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	DurationDays    int         `json:"duration_days"`
	DailyTasks      []DailyTask `json:"daily_tasks"`
	DailyPoints     int64       `json:"daily_points"`
	CompletionBonus int64       `json:"completion_bonus"`
	MaxParticipants int         `json:"max_participants"`
}

// DailyTask is one task of a challenge, indexed 1..DurationDays.
type DailyTask struct {
	Day   int    `json:"day"`
	Title string `json:"title"`
}

// ParticipantStatus is the state-machine state of one enrollment.
// Completed and Abandoned are terminal.
type ParticipantStatus string

const (
	ParticipantActive    ParticipantStatus = "active"
	ParticipantCompleted ParticipantStatus = "completed"
	ParticipantAbandoned ParticipantStatus = "abandoned"
)

// Terminal reports whether no further transitions are allowed.
func (s ParticipantStatus) Terminal() bool {
	return s == ParticipantCompleted || s == ParticipantAbandoned
}

// CompletedTask records one finished challenge day. Each day appears
// at most once per participant.
type CompletedTask struct {
	Day         int       `json:"day"`
	CompletedAt time.Time `json:"completed_at"`
}

// ParticipantProgress is one user's enrollment in one challenge.
type ParticipantProgress struct {
	UserID         string            `json:"user_id"`
	ChallengeID    string            `json:"challenge_id"`
	DisplayName    string            `json:"display_name,omitempty"`
	JoinedAt       time.Time         `json:"joined_at"`
	Status         ParticipantStatus `json:"status"`
	CompletedTasks []CompletedTask   `json:"completed_tasks"`
	TotalPoints    int64             `json:"total_points"`
	CurrentStreak  int               `json:"current_streak"`
	LongestStreak  int               `json:"longest_streak"`
	LastTaskDate   Day               `json:"last_task_date,omitempty"`
}

// HasDay reports whether the given day is already completed.
func (p ParticipantProgress) HasDay(day int) bool {
	for _, t := range p.CompletedTasks {
		if t.Day == day {
			return true
		}
	}
	return false
}

// CompleteDayResult is the outcome of completing one challenge day.
type CompleteDayResult struct {
	Participant ParticipantProgress `json:"participant"`
	PointsDelta int64               `json:"points_delta"`
	Completed   bool                `json:"challenge_completed"`
}

// ─── Leaderboard ────────────────────────────────────────────────────────────

// LeaderboardEntry is one ranked row of a challenge leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	CompletedDays int    `json:"completed_days"`
	CurrentStreak int    `json:"current_streak"`
	TotalPoints   int64  `json:"total_points"`
}

// ─── Certificates ───────────────────────────────────────────────────────────

// Certificate is an immutable proof of challenge completion.
// At most one exists per (user, challenge); issuance is idempotent.
// Signature is the issuer's Ed25519 signature over the certificate
// payload, hex encoded. Empty when the daemon runs without a keypair.
type Certificate struct {
	CertificateID string           `json:"certificate_id"`
	UserID        string           `json:"user_id"`
	ChallengeID   string           `json:"challenge_id"`
	IssuedAt      time.Time        `json:"issued_at"`
	Stats         CertificateStats `json:"stats"`
	Signature     string           `json:"signature,omitempty"`
}

// CertificateStats is the stats snapshot frozen at issuance time.
type CertificateStats struct {
	DurationDays  int   `json:"duration_days"`
	TotalPoints   int64 `json:"total_points"`
	LongestStreak int   `json:"longest_streak"`
}
