// Package notify creates celebratory notifications under the product
// policy: a small per-user daily cap, quiet hours overnight, and only
// positive events. There is deliberately no "streak at risk" nudge.
package notify

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/infra/sqlite"
)

// Service applies the notification policy and stores what passes it.
type Service struct {
	db     *sqlite.DB
	policy domain.NotificationPolicy
	clock  domain.Clock
}

// NewService creates a notification service.
func NewService(db *sqlite.DB, policy domain.NotificationPolicy, clock domain.Clock) *Service {
	return &Service{db: db, policy: policy, clock: clock}
}

// Policy returns the active policy.
func (s *Service) Policy() domain.NotificationPolicy { return s.policy }

// Create stores a notification if the policy allows it. Returns the
// notification ID, or 0 when the policy suppressed it.
func (s *Service) Create(n domain.Notification) (int64, error) {
	now := s.clock.Now()

	if s.policy.MaxPerDay > 0 {
		midnight := now.UTC().Truncate(24 * time.Hour)
		count, err := s.db.NotificationCountSince(n.UserID, midnight)
		if err != nil {
			return 0, fmt.Errorf("count notifications: %w", err)
		}
		if count >= s.policy.MaxPerDay {
			return 0, nil
		}
	}
	if s.isQuietHour(now) {
		return 0, nil
	}

	n.CreatedAt = now
	n.Shown = false
	id, err := s.db.InsertNotification(n)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// Pending returns a user's unshown notifications, oldest first.
func (s *Service) Pending(userID string, limit int) ([]domain.Notification, error) {
	return s.db.ListPendingNotifications(userID, limit)
}

// MarkShown marks a notification as delivered.
func (s *Service) MarkShown(id int64) error {
	return s.db.MarkNotificationShown(id)
}

// ─── Engine Hooks ───────────────────────────────────────────────────────────
// These satisfy the progression and challenge notifier interfaces. They
// run outside write locks and swallow their own errors; a lost
// notification must never fail a credit.

// LeveledUp celebrates a level boundary crossing.
func (s *Service) LeveledUp(userID string, level int) {
	s.create(domain.Notification{
		UserID: userID,
		Type:   domain.NotifyLevelUp,
		Title:  fmt.Sprintf("Level %d reached", level),
		Body:   fmt.Sprintf("Your steady practice brought you to level %d. Keep going at your own pace.", level),
	})
}

// BadgeUnlocked celebrates a new badge.
func (s *Service) BadgeUnlocked(userID string, badge domain.BadgeDef) {
	s.create(domain.Notification{
		UserID: userID,
		Type:   domain.NotifyBadge,
		Title:  fmt.Sprintf("%s %s unlocked", badge.Icon, badge.Name),
		Body:   fmt.Sprintf("You earned the %s badge.", badge.Name),
	})
}

// ChallengeCompleted celebrates finishing a challenge.
func (s *Service) ChallengeCompleted(userID string, ch domain.Challenge) {
	s.create(domain.Notification{
		UserID: userID,
		Type:   domain.NotifyChallengeCompleted,
		Title:  fmt.Sprintf("%s completed", ch.Name),
		Body:   fmt.Sprintf("All %d days of %s, done. That took real commitment.", ch.DurationDays, ch.Name),
	})
}

func (s *Service) create(n domain.Notification) {
	if _, err := s.Create(n); err != nil {
		log.Printf("[notify] create %s for %s: %v", n.Type, n.UserID, err)
	}
}

// isQuietHour reports whether t falls inside the quiet window.
func (s *Service) isQuietHour(t time.Time) bool {
	startHour, startMin := parseHHMM(s.policy.QuietStart)
	endHour, endMin := parseHHMM(s.policy.QuietEnd)

	minutes := t.UTC().Hour()*60 + t.UTC().Minute()
	start := startHour*60 + startMin
	end := endHour*60 + endMin

	if start == end {
		return false
	}
	if start > end {
		// Window wraps midnight, e.g. 21:00 to 09:00.
		return minutes >= start || minutes < end
	}
	return minutes >= start && minutes < end
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(v string) (int, int) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m
}
