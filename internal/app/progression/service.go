// Package progression implements the Bloom progression engine: the XP
// ledger, level calculator, streak tracker, and badge evaluator. One
// credited action updates all four inside a single transaction guarded
// by a per-user write lock.
package progression

import (
	"encoding/json"
	"time"

	"github.com/bloom-health/bloom/internal/app/catalog"
	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/infra/keylock"
	"github.com/bloom-health/bloom/internal/infra/metrics"
	"github.com/bloom-health/bloom/internal/infra/sqlite"
)

// DefaultLockTimeout bounds how long one credit waits for its user lock.
const DefaultLockTimeout = 2 * time.Second

// Notifier receives celebratory events after a credit commits.
// Implementations must not block; they run outside the user lock.
type Notifier interface {
	LeveledUp(userID string, level int)
	BadgeUnlocked(userID string, badge domain.BadgeDef)
}

// Service credits user actions and serves progression snapshots.
type Service struct {
	db          *sqlite.DB
	catalog     *catalog.Catalog
	curve       LevelCurve
	badges      *Evaluator
	locks       *keylock.Locker
	clock       domain.Clock
	notifier    Notifier
	lockTimeout time.Duration
}

// NewService creates a progression service.
func NewService(db *sqlite.DB, cat *catalog.Catalog, curve LevelCurve, badges *Evaluator, locks *keylock.Locker, clock domain.Clock) *Service {
	return &Service{
		db:          db,
		catalog:     cat,
		curve:       curve,
		badges:      badges,
		locks:       locks,
		clock:       clock,
		lockTimeout: DefaultLockTimeout,
	}
}

// SetNotifier attaches a notifier for level-up and badge events.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Curve returns the active level curve.
func (s *Service) Curve() LevelCurve { return s.curve }

// Catalog returns the action catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// BadgeDefinitions returns the badge catalog.
func (s *Service) BadgeDefinitions() []domain.BadgeDef {
	return s.badges.Definitions()
}

// ─── Credit ─────────────────────────────────────────────────────────────────

// Credit converts one user action into XP, level, streak, and badge
// updates as a single all-or-nothing unit. A repeated idempotency key
// replays the originally computed result with no further effect.
func (s *Service) Credit(userID, actionType, idempotencyKey string) (domain.CreditResult, error) {
	start := time.Now()
	defer func() { metrics.CreditLatency.Observe(time.Since(start).Seconds()) }()

	var zero domain.CreditResult
	if userID == "" {
		return zero, domain.Validationf("user id required")
	}
	def, err := s.catalog.Lookup(actionType)
	if err != nil {
		return zero, err
	}

	release, err := s.acquire("user:" + userID)
	if err != nil {
		return zero, err
	}
	result, err := s.creditLocked(userID, def, idempotencyKey)
	release()
	if err != nil {
		return zero, err
	}

	// Notifications run outside the lock: they are best-effort and must
	// not extend the critical section.
	if s.notifier != nil && !result.Replayed {
		if result.LeveledUp {
			s.notifier.LeveledUp(userID, result.Level)
		}
		for _, b := range result.NewBadges {
			s.notifier.BadgeUnlocked(userID, b)
		}
	}
	return result, nil
}

// acquire takes a per-key write lock, retrying once on contention
// before surfacing a concurrency error.
func (s *Service) acquire(key string) (func(), error) {
	waitStart := time.Now()
	release, err := s.locks.Acquire(key, s.lockTimeout)
	if err == keylock.ErrTimeout {
		release, err = s.locks.Acquire(key, s.lockTimeout)
	}
	metrics.LockWait.Observe(time.Since(waitStart).Seconds())
	if err == keylock.ErrTimeout {
		metrics.LockTimeouts.Inc()
		return nil, domain.Concurrencyf("write lock for %s timed out", key)
	}
	if err != nil {
		return nil, domain.Infra("acquire write lock", err)
	}
	return release, nil
}

func (s *Service) creditLocked(userID string, def domain.ActionDef, idempotencyKey string) (domain.CreditResult, error) {
	var zero domain.CreditResult

	if idempotencyKey != "" {
		if result, ok, err := s.storedResult(userID, idempotencyKey); err != nil {
			return zero, err
		} else if ok {
			return result, nil
		}
	}

	p, err := s.db.GetProgression(userID)
	if err != nil {
		return zero, domain.Infra("load progression", err)
	}

	now := s.clock.Now()
	day := domain.DayOf(now)
	if day.Before(p.LastActionDate) {
		return zero, domain.Validationf("action day %s precedes last action date %s", day, p.LastActionDate)
	}

	counts, err := s.db.EventCountsByCategory(userID)
	if err != nil {
		return zero, domain.Infra("load category counts", err)
	}
	unlocked, err := s.db.BadgeIDs(userID)
	if err != nil {
		return zero, domain.Infra("load badges", err)
	}
	challengesDone, err := s.db.ChallengesCompleted(userID)
	if err != nil {
		return zero, domain.Infra("load challenge completions", err)
	}

	oldLevel := p.Level
	streak := domain.StreakState{
		Current: p.CurrentStreak,
		Longest: p.LongestStreak,
		LastDay: p.LastActionDate,
	}.Advance(day)

	p.XP += def.XP
	p.ActionsTotal++
	p.CurrentStreak = streak.Current
	p.LongestStreak = streak.Longest
	p.LastActionDate = streak.LastDay
	counts[def.Category]++

	// One evaluation pass against the post-credit snapshot. Badge reward
	// XP lands before the final level computation; unlocks it would
	// itself trigger surface on the next credit.
	stats := domain.BadgeStats{
		XP:                  p.XP,
		Level:               s.curve.LevelForXP(p.XP),
		CurrentStreak:       p.CurrentStreak,
		LongestStreak:       p.LongestStreak,
		ActionsTotal:        p.ActionsTotal,
		ActionsByCategory:   counts,
		ChallengesCompleted: challengesDone,
	}
	newBadges := s.badges.Evaluate(stats, unlocked)
	awarded := def.XP
	for _, b := range newBadges {
		p.XP += b.RewardXP
		awarded += b.RewardXP
	}
	p.Level = s.curve.LevelForXP(p.XP)

	result := domain.CreditResult{
		XP:        p.XP,
		XPAwarded: awarded,
		Level:     p.Level,
		LeveledUp: p.Level > oldLevel,
		NewBadges: newBadges,
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return zero, domain.Infra("encode result", err)
	}

	ev := domain.ActionEvent{
		UserID:         userID,
		ActionType:     def.Type,
		Category:       def.Category,
		IdempotencyKey: idempotencyKey,
		OccurredOn:     day,
		XPAwarded:      def.XP,
		CreatedAt:      now,
	}

	err = s.db.Update(func(tx *sqlite.Tx) error {
		if _, err := tx.InsertActionEvent(ev, string(resultJSON)); err != nil {
			return err
		}
		if err := tx.UpsertProgression(p); err != nil {
			return err
		}
		for _, b := range newBadges {
			if _, err := tx.UnlockBadge(userID, b.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err == sqlite.ErrDuplicateKey {
		// The unique index is the backstop for duplicate keys that
		// slipped past the fast path.
		if result, ok, err := s.storedResult(userID, idempotencyKey); err == nil && ok {
			return result, nil
		}
		return zero, domain.Conflictf("idempotency key %s already used", idempotencyKey)
	}
	if err != nil {
		return zero, domain.Infra("credit transaction", err)
	}

	metrics.ActionsCredited.WithLabelValues(def.Type).Inc()
	metrics.XPAwarded.Add(float64(awarded))
	if result.LeveledUp {
		metrics.LevelUps.Inc()
	}
	for _, b := range newBadges {
		metrics.BadgesUnlocked.WithLabelValues(b.ID).Inc()
	}
	return result, nil
}

// storedResult replays the CreditResult recorded for an idempotency key.
func (s *Service) storedResult(userID, key string) (domain.CreditResult, bool, error) {
	var zero domain.CreditResult
	stored, ok, err := s.db.EventResultByKey(userID, key)
	if err != nil {
		return zero, false, domain.Infra("lookup idempotency key", err)
	}
	if !ok {
		return zero, false, nil
	}
	var result domain.CreditResult
	if err := json.Unmarshal([]byte(stored), &result); err != nil {
		return zero, false, domain.Infra("decode stored result", err)
	}
	result.Replayed = true
	metrics.ActionsReplayed.Inc()
	return result, true, nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────
// Reads are lock-free projections over the authoritative state. They may
// trail an in-flight credit by one mutation but never block writers.

// Snapshot returns the user's progression with derived fields attached.
func (s *Service) Snapshot(userID string) (domain.ProgressionSnapshot, error) {
	var snap domain.ProgressionSnapshot
	if userID == "" {
		return snap, domain.Validationf("user id required")
	}

	p, err := s.db.GetProgression(userID)
	if err != nil {
		return snap, domain.Infra("load progression", err)
	}
	badges, err := s.db.ListBadges(userID)
	if err != nil {
		return snap, domain.Infra("load badges", err)
	}

	snap.Progression = p
	snap.XPToNextLevel = s.curve.XPToNext(p.XP)
	snap.Badges = badges
	return snap, nil
}

// History returns the user's recent credited events, newest first.
func (s *Service) History(userID string, limit int) ([]domain.ActionEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	events, err := s.db.RecentEvents(userID, limit)
	if err != nil {
		return nil, domain.Infra("load events", err)
	}
	return events, nil
}
