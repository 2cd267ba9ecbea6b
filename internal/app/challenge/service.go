// Package challenge implements the challenge progress state machine:
// enrollment, daily task completion with challenge-scoped points and
// streaks, leaderboards, and completion certificates.
//
// Enrollment moves through active -> completed or active -> abandoned;
// both end states are terminal. Per-(user, challenge) write locks
// serialize mutations, and the challenge-wide lock guards the capacity
// check on join.
package challenge

import (
	"fmt"
	"log"
	"time"

	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/infra/keylock"
	"github.com/bloom-health/bloom/internal/infra/metrics"
	"github.com/bloom-health/bloom/internal/infra/sqlite"
)

// DefaultLockTimeout bounds how long one mutation waits for its lock.
const DefaultLockTimeout = 2 * time.Second

// XPCrediter lets the challenge engine feed completed tasks into the XP
// ledger. The idempotency key makes the grant safe to retry.
type XPCrediter interface {
	Credit(userID, actionType, idempotencyKey string) (domain.CreditResult, error)
}

// Notifier receives challenge completion events after commit.
type Notifier interface {
	ChallengeCompleted(userID string, ch domain.Challenge)
}

// CertificateSigner signs certificates at issuance. Optional; without
// one, certificates are issued unsigned.
type CertificateSigner interface {
	SignCertificate(c domain.Certificate) string
}

// Service runs the challenge state machine over persistent storage.
type Service struct {
	db          *sqlite.DB
	locks       *keylock.Locker
	clock       domain.Clock
	xp          XPCrediter
	notifier    Notifier
	signer      CertificateSigner
	lockTimeout time.Duration
}

// NewService creates a challenge service.
func NewService(db *sqlite.DB, locks *keylock.Locker, clock domain.Clock) *Service {
	return &Service{
		db:          db,
		locks:       locks,
		clock:       clock,
		lockTimeout: DefaultLockTimeout,
	}
}

// SetXPCrediter attaches the XP ledger for task-completion grants.
func (s *Service) SetXPCrediter(xp XPCrediter) { s.xp = xp }

// SetNotifier attaches a notifier for completion events.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetSigner attaches the certificate signer.
func (s *Service) SetSigner(signer CertificateSigner) { s.signer = signer }

// ─── Challenge Catalog ──────────────────────────────────────────────────────

// Define validates and stores a challenge definition. Existing
// definitions are replaced wholesale; participant state is untouched.
func (s *Service) Define(c domain.Challenge) error {
	if c.ID == "" || c.Name == "" {
		return domain.Validationf("challenge id and name required")
	}
	if c.DurationDays < 1 {
		return domain.Validationf("challenge %s: duration must be at least 1 day", c.ID)
	}
	if c.DailyPoints < 0 || c.CompletionBonus < 0 {
		return domain.Validationf("challenge %s: points must not be negative", c.ID)
	}
	for _, task := range c.DailyTasks {
		if task.Day < 1 || task.Day > c.DurationDays {
			return domain.Validationf("challenge %s: task day %d outside 1..%d", c.ID, task.Day, c.DurationDays)
		}
	}
	err := s.db.Update(func(tx *sqlite.Tx) error {
		return tx.UpsertChallenge(c)
	})
	if err != nil {
		return domain.Infra("store challenge", err)
	}
	return nil
}

// List returns all challenge definitions.
func (s *Service) List() ([]domain.Challenge, error) {
	challenges, err := s.db.ListChallenges()
	if err != nil {
		return nil, domain.Infra("list challenges", err)
	}
	return challenges, nil
}

// Get returns one challenge definition.
func (s *Service) Get(challengeID string) (domain.Challenge, error) {
	ch, err := s.db.GetChallenge(challengeID)
	if err != nil {
		return domain.Challenge{}, domain.Infra("load challenge", err)
	}
	if ch == nil {
		return domain.Challenge{}, domain.NotFoundf("challenge %s not found", challengeID)
	}
	return *ch, nil
}

// ─── Enrollment ─────────────────────────────────────────────────────────────

// Join enrolls a user into a challenge. The challenge-wide lock makes
// the capacity check and the insert one atomic step, so a full
// challenge never oversubscribes under concurrent joins.
func (s *Service) Join(userID, challengeID, displayName string) (domain.ParticipantProgress, error) {
	var zero domain.ParticipantProgress
	if userID == "" {
		return zero, domain.Validationf("user id required")
	}
	ch, err := s.Get(challengeID)
	if err != nil {
		return zero, err
	}

	release, err := s.acquire("challenge:" + challengeID)
	if err != nil {
		return zero, err
	}
	defer release()

	existing, err := s.db.GetParticipant(userID, challengeID)
	if err != nil {
		return zero, domain.Infra("load participant", err)
	}
	if existing != nil {
		if existing.Status == domain.ParticipantActive {
			return zero, domain.Conflictf("user %s already joined challenge %s", userID, challengeID)
		}
		return zero, domain.Conflictf("user %s already finished challenge %s (%s)", userID, challengeID, existing.Status)
	}

	if ch.MaxParticipants > 0 {
		count, err := s.db.CountParticipants(challengeID)
		if err != nil {
			return zero, domain.Infra("count participants", err)
		}
		if count >= ch.MaxParticipants {
			return zero, domain.Conflictf("challenge %s is full (%d participants)", challengeID, ch.MaxParticipants)
		}
	}

	p := domain.ParticipantProgress{
		UserID:      userID,
		ChallengeID: challengeID,
		DisplayName: displayName,
		JoinedAt:    s.clock.Now(),
		Status:      domain.ParticipantActive,
	}
	err = s.db.Update(func(tx *sqlite.Tx) error {
		return tx.InsertParticipant(p)
	})
	if err != nil {
		return zero, domain.Infra("store participant", err)
	}

	metrics.ChallengeJoins.WithLabelValues(challengeID).Inc()
	return p, nil
}

// Progress returns one user's enrollment state.
func (s *Service) Progress(userID, challengeID string) (domain.ParticipantProgress, error) {
	var zero domain.ParticipantProgress
	p, err := s.db.GetParticipant(userID, challengeID)
	if err != nil {
		return zero, domain.Infra("load participant", err)
	}
	if p == nil {
		return zero, domain.NotFoundf("user %s has not joined challenge %s", userID, challengeID)
	}
	return *p, nil
}

// ─── Daily Completion ───────────────────────────────────────────────────────

// CompleteDay marks one challenge day done for a participant. The day
// must be within the schedule, reachable from the join date, and not
// already completed. Callers who never joined get a permission error.
// Completing the final day transitions the enrollment to its terminal
// Completed state and grants the bonus.
func (s *Service) CompleteDay(userID, challengeID string, dayNum int) (domain.CompleteDayResult, error) {
	var zero domain.CompleteDayResult
	ch, err := s.Get(challengeID)
	if err != nil {
		return zero, err
	}
	if dayNum < 1 || dayNum > ch.DurationDays {
		return zero, domain.Validationf("day %d outside challenge schedule 1..%d", dayNum, ch.DurationDays)
	}

	release, err := s.acquire(fmt.Sprintf("challenge:%s:%s", challengeID, userID))
	if err != nil {
		return zero, err
	}
	result, err := s.completeDayLocked(userID, ch, dayNum)
	release()
	if err != nil {
		return zero, err
	}

	// The XP ledger grant and the completion notification run outside
	// the lock. The day is already committed, so a failed grant must not
	// fail the call; the deterministic key keeps a later retry safe.
	if s.xp != nil {
		key := fmt.Sprintf("challenge:%s:%s:day:%d", challengeID, userID, dayNum)
		if _, err := s.xp.Credit(userID, "challenge_task", key); err != nil {
			log.Printf("[challenge] xp grant for %s failed: %v", key, err)
		}
	}
	if result.Completed && s.notifier != nil {
		s.notifier.ChallengeCompleted(userID, ch)
	}
	return result, nil
}

func (s *Service) completeDayLocked(userID string, ch domain.Challenge, dayNum int) (domain.CompleteDayResult, error) {
	var zero domain.CompleteDayResult

	p, err := s.db.GetParticipant(userID, ch.ID)
	if err != nil {
		return zero, domain.Infra("load participant", err)
	}
	if p == nil {
		return zero, domain.Permissionf("user %s is not a participant of challenge %s", userID, ch.ID)
	}
	if p.Status.Terminal() {
		return zero, domain.Conflictf("challenge %s already %s for user %s", ch.ID, p.Status, userID)
	}
	if p.HasDay(dayNum) {
		return zero, domain.Conflictf("day %d already completed", dayNum)
	}

	now := s.clock.Now()
	today := domain.DayOf(now)
	// The join day is day 1; day N unlocks N-1 calendar days later.
	elapsed := domain.DayOf(p.JoinedAt).DaysUntil(today) + 1
	if dayNum > elapsed {
		return zero, domain.Validationf("day %d not yet reached (challenge day %d)", dayNum, elapsed)
	}

	streak := domain.StreakState{
		Current: p.CurrentStreak,
		Longest: p.LongestStreak,
		LastDay: p.LastTaskDate,
	}.Advance(today)

	p.CompletedTasks = append(p.CompletedTasks, domain.CompletedTask{Day: dayNum, CompletedAt: now})
	p.TotalPoints += ch.DailyPoints
	p.CurrentStreak = streak.Current
	p.LongestStreak = streak.Longest
	p.LastTaskDate = streak.LastDay
	delta := ch.DailyPoints

	completed := len(p.CompletedTasks) >= ch.DurationDays
	if completed {
		p.Status = domain.ParticipantCompleted
		p.TotalPoints += ch.CompletionBonus
		delta += ch.CompletionBonus
	}

	err = s.db.Update(func(tx *sqlite.Tx) error {
		if err := tx.InsertCompletedTask(userID, ch.ID, dayNum, now); err != nil {
			return err
		}
		return tx.UpdateParticipant(*p)
	})
	if err != nil {
		return zero, domain.Infra("store completed day", err)
	}

	metrics.ChallengeDaysCompleted.WithLabelValues(ch.ID).Inc()
	if completed {
		metrics.ChallengesCompleted.WithLabelValues(ch.ID).Inc()
	}
	return domain.CompleteDayResult{
		Participant: *p,
		PointsDelta: delta,
		Completed:   completed,
	}, nil
}

// ─── Abandonment ────────────────────────────────────────────────────────────

// Abandon moves an active enrollment to its terminal Abandoned state.
// Accumulated points and completed days are kept for the record; only
// the status changes.
func (s *Service) Abandon(userID, challengeID string) (domain.ParticipantProgress, error) {
	var zero domain.ParticipantProgress
	if _, err := s.Get(challengeID); err != nil {
		return zero, err
	}

	release, err := s.acquire(fmt.Sprintf("challenge:%s:%s", challengeID, userID))
	if err != nil {
		return zero, err
	}
	defer release()

	p, err := s.db.GetParticipant(userID, challengeID)
	if err != nil {
		return zero, domain.Infra("load participant", err)
	}
	if p == nil {
		return zero, domain.Permissionf("user %s is not a participant of challenge %s", userID, challengeID)
	}
	if p.Status.Terminal() {
		return zero, domain.Conflictf("challenge %s already %s for user %s", challengeID, p.Status, userID)
	}

	p.Status = domain.ParticipantAbandoned
	err = s.db.Update(func(tx *sqlite.Tx) error {
		return tx.UpdateParticipant(*p)
	})
	if err != nil {
		return zero, domain.Infra("store participant", err)
	}
	return *p, nil
}

// acquire takes a per-key write lock, retrying once on contention.
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
