package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/bloom-health/bloom/internal/domain"
)

// ─── Progressions ───────────────────────────────────────────────────────────

// GetProgression loads one user's progression. Returns a fresh zero-state
// record (level 1) when the user has never been credited.
func (d *DB) GetProgression(userID string) (domain.Progression, error) {
	row := d.db.QueryRow(
		`SELECT user_id, xp, level, current_streak, longest_streak, last_action_date, actions_total
		 FROM progressions WHERE user_id = ?`, userID,
	)
	p, err := scanProgression(row)
	if err == sql.ErrNoRows {
		return domain.Progression{UserID: userID, Level: 1}, nil
	}
	return p, err
}

// UpsertProgression writes the full progression row.
func (t *Tx) UpsertProgression(p domain.Progression) error {
	_, err := t.tx.Exec(
		`INSERT INTO progressions (user_id, xp, level, current_streak, longest_streak, last_action_date, actions_total)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			xp=excluded.xp,
			level=excluded.level,
			current_streak=excluded.current_streak,
			longest_streak=excluded.longest_streak,
			last_action_date=excluded.last_action_date,
			actions_total=excluded.actions_total`,
		p.UserID, p.XP, p.Level, p.CurrentStreak, p.LongestStreak,
		string(p.LastActionDate), p.ActionsTotal,
	)
	return err
}

// ─── Action Events ──────────────────────────────────────────────────────────

// ErrDuplicateKey is returned by InsertActionEvent when the idempotency
// key was already recorded for the user.
var ErrDuplicateKey = errors.New("idempotency key already recorded")

// InsertActionEvent appends a credited event. A repeated (user, key) pair
// yields ErrDuplicateKey so the caller can replay the stored result.
func (t *Tx) InsertActionEvent(ev domain.ActionEvent, resultJSON string) (int64, error) {
	var key any
	if ev.IdempotencyKey != "" {
		key = ev.IdempotencyKey
	}
	res, err := t.tx.Exec(
		`INSERT INTO action_events (user_id, action_type, category, idempotency_key, occurred_on, xp_awarded, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.UserID, ev.ActionType, ev.Category, key,
		string(ev.OccurredOn), ev.XPAwarded, resultJSON, ev.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateKey
		}
		return 0, err
	}
	return res.LastInsertId()
}

// EventResultByKey returns the stored result JSON for a previously
// credited (user, idempotency key) pair. ok is false when unseen.
func (d *DB) EventResultByKey(userID, key string) (string, bool, error) {
	var result string
	err := d.db.QueryRow(
		`SELECT result_json FROM action_events WHERE user_id = ? AND idempotency_key = ?`,
		userID, key,
	).Scan(&result)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return result, true, nil
}

// RecentEvents returns the user's latest credited events, newest first.
func (d *DB) RecentEvents(userID string, limit int) ([]domain.ActionEvent, error) {
	rows, err := d.db.Query(
		`SELECT id, user_id, action_type, category, COALESCE(idempotency_key, ''), occurred_on, xp_awarded, created_at
		 FROM action_events WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.ActionEvent
	for rows.Next() {
		var ev domain.ActionEvent
		var occurredOn string
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.ActionType, &ev.Category,
			&ev.IdempotencyKey, &occurredOn, &ev.XPAwarded, &createdAt); err != nil {
			return nil, err
		}
		ev.OccurredOn = domain.Day(occurredOn)
		ev.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// EventCountsByCategory returns the user's credited-event counts per category.
func (d *DB) EventCountsByCategory(userID string) (map[string]int64, error) {
	rows, err := d.db.Query(
		`SELECT category, COUNT(*) FROM action_events WHERE user_id = ? GROUP BY category`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// UnlockBadge records a badge as unlocked. Returns false if it already was.
func (t *Tx) UnlockBadge(userID, badgeID string, at time.Time) (bool, error) {
	res, err := t.tx.Exec(
		`INSERT OR IGNORE INTO badges (user_id, badge_id, unlocked_at) VALUES (?, ?, ?)`,
		userID, badgeID, at.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListBadges returns the user's unlocked badges, newest first.
func (d *DB) ListBadges(userID string) ([]domain.UnlockedBadge, error) {
	rows, err := d.db.Query(
		`SELECT badge_id, unlocked_at FROM badges WHERE user_id = ? ORDER BY unlocked_at DESC, badge_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []domain.UnlockedBadge
	for rows.Next() {
		var b domain.UnlockedBadge
		var unlockedAt int64
		if err := rows.Scan(&b.ID, &unlockedAt); err != nil {
			return nil, err
		}
		b.UnlockedAt = time.Unix(unlockedAt, 0)
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// BadgeIDs returns the set of unlocked badge IDs for quick membership checks.
func (d *DB) BadgeIDs(userID string) (map[string]bool, error) {
	badges, err := d.ListBadges(userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(badges))
	for _, b := range badges {
		ids[b.ID] = true
	}
	return ids, nil
}

// ─── Scanners ───────────────────────────────────────────────────────────────

func scanProgression(s scanner) (domain.Progression, error) {
	var p domain.Progression
	var lastDate string
	err := s.Scan(&p.UserID, &p.XP, &p.Level, &p.CurrentStreak,
		&p.LongestStreak, &lastDate, &p.ActionsTotal)
	p.LastActionDate = domain.Day(lastDate)
	return p, err
}
