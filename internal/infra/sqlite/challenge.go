package sqlite

import (
	"database/sql"
	"time"

	"github.com/bloom-health/bloom/internal/domain"
)

// ─── Challenge Catalog ──────────────────────────────────────────────────────

// UpsertChallenge writes a challenge definition and its daily tasks.
func (t *Tx) UpsertChallenge(c domain.Challenge) error {
	_, err := t.tx.Exec(
		`INSERT INTO challenges (id, name, description, duration_days, daily_points, completion_bonus, max_participants)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			description=excluded.description,
			duration_days=excluded.duration_days,
			daily_points=excluded.daily_points,
			completion_bonus=excluded.completion_bonus,
			max_participants=excluded.max_participants`,
		c.ID, c.Name, c.Description, c.DurationDays,
		c.DailyPoints, c.CompletionBonus, c.MaxParticipants,
	)
	if err != nil {
		return err
	}

	if _, err := t.tx.Exec(`DELETE FROM challenge_tasks WHERE challenge_id = ?`, c.ID); err != nil {
		return err
	}
	for _, task := range c.DailyTasks {
		_, err := t.tx.Exec(
			`INSERT INTO challenge_tasks (challenge_id, day, title) VALUES (?, ?, ?)`,
			c.ID, task.Day, task.Title,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetChallenge retrieves a challenge with its tasks. Nil when unknown.
func (d *DB) GetChallenge(id string) (*domain.Challenge, error) {
	row := d.db.QueryRow(
		`SELECT id, name, description, duration_days, daily_points, completion_bonus, max_participants
		 FROM challenges WHERE id = ?`, id,
	)
	var c domain.Challenge
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.DurationDays,
		&c.DailyPoints, &c.CompletionBonus, &c.MaxParticipants)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query(
		`SELECT day, title FROM challenge_tasks WHERE challenge_id = ? ORDER BY day`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var task domain.DailyTask
		if err := rows.Scan(&task.Day, &task.Title); err != nil {
			return nil, err
		}
		c.DailyTasks = append(c.DailyTasks, task)
	}
	return &c, rows.Err()
}

// ListChallenges returns all challenge definitions (without tasks).
func (d *DB) ListChallenges() ([]domain.Challenge, error) {
	rows, err := d.db.Query(
		`SELECT id, name, description, duration_days, daily_points, completion_bonus, max_participants
		 FROM challenges ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		var c domain.Challenge
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.DurationDays,
			&c.DailyPoints, &c.CompletionBonus, &c.MaxParticipants); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// ─── Participants ───────────────────────────────────────────────────────────

// InsertParticipant creates a new enrollment row.
func (t *Tx) InsertParticipant(p domain.ParticipantProgress) error {
	_, err := t.tx.Exec(
		`INSERT INTO participants (user_id, challenge_id, display_name, joined_at, status, total_points, current_streak, longest_streak, last_task_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.ChallengeID, p.DisplayName, p.JoinedAt.Unix(),
		string(p.Status), p.TotalPoints, p.CurrentStreak, p.LongestStreak,
		string(p.LastTaskDate),
	)
	return err
}

// UpdateParticipant rewrites the mutable fields of an enrollment row.
func (t *Tx) UpdateParticipant(p domain.ParticipantProgress) error {
	_, err := t.tx.Exec(
		`UPDATE participants SET status = ?, total_points = ?, current_streak = ?, longest_streak = ?, last_task_date = ?
		 WHERE user_id = ? AND challenge_id = ?`,
		string(p.Status), p.TotalPoints, p.CurrentStreak, p.LongestStreak,
		string(p.LastTaskDate), p.UserID, p.ChallengeID,
	)
	return err
}

// GetParticipant loads one enrollment with its completed tasks.
// Nil when the user never joined.
func (d *DB) GetParticipant(userID, challengeID string) (*domain.ParticipantProgress, error) {
	row := d.db.QueryRow(
		`SELECT user_id, challenge_id, display_name, joined_at, status, total_points, current_streak, longest_streak, last_task_date
		 FROM participants WHERE user_id = ? AND challenge_id = ?`,
		userID, challengeID,
	)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tasks, err := d.completedTasks(userID, challengeID)
	if err != nil {
		return nil, err
	}
	p.CompletedTasks = tasks
	return &p, nil
}

// ListParticipants returns every enrollment of a challenge with completed
// task lists attached. Backs the leaderboard projection.
func (d *DB) ListParticipants(challengeID string) ([]domain.ParticipantProgress, error) {
	rows, err := d.db.Query(
		`SELECT user_id, challenge_id, display_name, joined_at, status, total_points, current_streak, longest_streak, last_task_date
		 FROM participants WHERE challenge_id = ? ORDER BY user_id`,
		challengeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.ParticipantProgress
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range participants {
		tasks, err := d.completedTasks(participants[i].UserID, challengeID)
		if err != nil {
			return nil, err
		}
		participants[i].CompletedTasks = tasks
	}
	return participants, nil
}

// CountParticipants returns the current enrollment count of a challenge.
func (d *DB) CountParticipants(challengeID string) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM participants WHERE challenge_id = ?`, challengeID,
	).Scan(&n)
	return n, err
}

// ChallengesCompleted returns how many challenges the user has completed.
func (d *DB) ChallengesCompleted(userID string) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM participants WHERE user_id = ? AND status = ?`,
		userID, string(domain.ParticipantCompleted),
	).Scan(&n)
	return n, err
}

// ─── Completed Tasks ────────────────────────────────────────────────────────

// InsertCompletedTask records one finished challenge day.
func (t *Tx) InsertCompletedTask(userID, challengeID string, day int, at time.Time) error {
	_, err := t.tx.Exec(
		`INSERT INTO completed_tasks (user_id, challenge_id, day, completed_at) VALUES (?, ?, ?, ?)`,
		userID, challengeID, day, at.Unix(),
	)
	return err
}

func (d *DB) completedTasks(userID, challengeID string) ([]domain.CompletedTask, error) {
	rows, err := d.db.Query(
		`SELECT day, completed_at FROM completed_tasks
		 WHERE user_id = ? AND challenge_id = ? ORDER BY day`,
		userID, challengeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.CompletedTask
	for rows.Next() {
		var task domain.CompletedTask
		var completedAt int64
		if err := rows.Scan(&task.Day, &completedAt); err != nil {
			return nil, err
		}
		task.CompletedAt = time.Unix(completedAt, 0)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ─── Scanners ───────────────────────────────────────────────────────────────

func scanParticipant(s scanner) (domain.ParticipantProgress, error) {
	var p domain.ParticipantProgress
	var joinedAt int64
	var status, lastDate string
	err := s.Scan(&p.UserID, &p.ChallengeID, &p.DisplayName, &joinedAt,
		&status, &p.TotalPoints, &p.CurrentStreak, &p.LongestStreak, &lastDate)
	if err != nil {
		return p, err
	}
	p.JoinedAt = time.Unix(joinedAt, 0)
	p.Status = domain.ParticipantStatus(status)
	p.LastTaskDate = domain.Day(lastDate)
	return p, nil
}
