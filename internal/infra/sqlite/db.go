// Package sqlite provides SQLite-based persistent storage for Bloom.
// Uses WAL mode for concurrent reads and crash-safe writes. All engine
// mutations run inside transactions so a credit or challenge update is
// all-or-nothing.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// Update runs fn inside a transaction. Commit on nil, rollback otherwise.
// This is the only write path: every mutation an operation makes goes
// through one Update call, so failures leave the prior state untouched.
func (d *DB) Update(fn func(tx *Tx) error) error {
	sqlTx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Tx is an open write transaction.
type Tx struct {
	tx *sql.Tx
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Per-user progression state
		`CREATE TABLE IF NOT EXISTS progressions (
			user_id          TEXT PRIMARY KEY,
			xp               INTEGER NOT NULL DEFAULT 0,
			level            INTEGER NOT NULL DEFAULT 1,
			current_streak   INTEGER NOT NULL DEFAULT 0,
			longest_streak   INTEGER NOT NULL DEFAULT 0,
			last_action_date TEXT NOT NULL DEFAULT '',
			actions_total    INTEGER NOT NULL DEFAULT 0
		)`,

		// Credited action events. idempotency_key de-duplicates retries;
		// result_json is the stored CreditResult for idempotent replay.
		`CREATE TABLE IF NOT EXISTS action_events (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id         TEXT NOT NULL,
			action_type     TEXT NOT NULL,
			category        TEXT NOT NULL DEFAULT '',
			idempotency_key TEXT,
			occurred_on     TEXT NOT NULL,
			xp_awarded      INTEGER NOT NULL,
			result_json     TEXT NOT NULL DEFAULT '',
			created_at      INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_idem
			ON action_events(user_id, idempotency_key)
			WHERE idempotency_key IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_events_user ON action_events(user_id, created_at)`,

		// Unlocked badges — append-only set per user
		`CREATE TABLE IF NOT EXISTS badges (
			user_id     TEXT NOT NULL,
			badge_id    TEXT NOT NULL,
			unlocked_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, badge_id)
		)`,

		// Challenge catalog
		`CREATE TABLE IF NOT EXISTS challenges (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			duration_days    INTEGER NOT NULL,
			daily_points     INTEGER NOT NULL,
			completion_bonus INTEGER NOT NULL,
			max_participants INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS challenge_tasks (
			challenge_id TEXT NOT NULL,
			day          INTEGER NOT NULL,
			title        TEXT NOT NULL,
			PRIMARY KEY (challenge_id, day)
		)`,

		// Enrollment records
		`CREATE TABLE IF NOT EXISTS participants (
			user_id        TEXT NOT NULL,
			challenge_id   TEXT NOT NULL,
			display_name   TEXT NOT NULL DEFAULT '',
			joined_at      INTEGER NOT NULL,
			status         TEXT NOT NULL,
			total_points   INTEGER NOT NULL DEFAULT 0,
			current_streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			last_task_date TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, challenge_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_challenge ON participants(challenge_id)`,

		// One row per completed challenge day
		`CREATE TABLE IF NOT EXISTS completed_tasks (
			user_id      TEXT NOT NULL,
			challenge_id TEXT NOT NULL,
			day          INTEGER NOT NULL,
			completed_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, challenge_id, day)
		)`,

		// Immutable completion certificates, one per (user, challenge)
		`CREATE TABLE IF NOT EXISTS certificates (
			certificate_id TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			challenge_id   TEXT NOT NULL,
			issued_at      INTEGER NOT NULL,
			duration_days  INTEGER NOT NULL,
			total_points   INTEGER NOT NULL,
			longest_streak INTEGER NOT NULL,
			signature      TEXT NOT NULL DEFAULT '',
			UNIQUE (user_id, challenge_id)
		)`,

		// Notification log (policy: max N/day per user, quiet hours)
		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			shown      BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_user ON notifications(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
