package domain

import "time"

// ─── Notification Types ─────────────────────────────────────────────────────
// Wellness product rule: notifications celebrate, never nag. There is no
// "streak at risk" notification type on purpose.

// NotificationType categorizes notifications.
type NotificationType string

const (
	NotifyBadge              NotificationType = "badge_unlocked"
	NotifyLevelUp            NotificationType = "level_up"
	NotifyChallengeCompleted NotificationType = "challenge_completed"
)

// Notification is a user-facing message produced by the engine.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy governs how often notifications are created.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day" toml:"max_per_day"`
	QuietStart string `json:"quiet_start" toml:"quiet_start"` // "21:00"
	QuietEnd   string `json:"quiet_end" toml:"quiet_end"`     // "09:00"
}

// DefaultNotificationPolicy returns the product default: at most two
// celebratory notifications per day, none late at night.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		MaxPerDay:  2,
		QuietStart: "21:00",
		QuietEnd:   "09:00",
	}
}
