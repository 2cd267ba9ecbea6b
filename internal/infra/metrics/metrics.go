// Package metrics provides Prometheus metrics for the Bloom engagement
// engine: counters, gauges, and histograms for credits, streaks, badges,
// challenges, certificates, locks, and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Credits ────────────────────────────────────────────────────────────────

// ActionsCredited tracks credited actions by type.
var ActionsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "actions_credited_total",
	Help:      "Total credited actions by action type.",
}, []string{"action_type"})

// ActionsReplayed tracks idempotent replays (duplicate idempotency keys).
var ActionsReplayed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "actions_replayed_total",
	Help:      "Total credit calls answered from a stored result.",
})

// XPAwarded tracks total XP granted, including badge rewards.
var XPAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded across all users.",
})

// LevelUps tracks level-boundary crossings.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "level_ups_total",
	Help:      "Total level-up events.",
})

// CreditLatency tracks end-to-end credit operation duration.
var CreditLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "bloom",
	Name:      "credit_latency_seconds",
	Help:      "Credit operation duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
})

// ─── Badges ─────────────────────────────────────────────────────────────────

// BadgesUnlocked tracks badge unlocks by badge ID.
var BadgesUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "badges_unlocked_total",
	Help:      "Total badge unlocks by badge.",
}, []string{"badge"})

// ─── Challenges ─────────────────────────────────────────────────────────────

// ChallengeJoins tracks enrollments by challenge.
var ChallengeJoins = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "challenge_joins_total",
	Help:      "Total challenge enrollments.",
}, []string{"challenge"})

// ChallengeDaysCompleted tracks completed challenge days.
var ChallengeDaysCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "challenge_days_completed_total",
	Help:      "Total completed challenge days.",
}, []string{"challenge"})

// ChallengesCompleted tracks participants reaching the terminal Completed state.
var ChallengesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "challenges_completed_total",
	Help:      "Total challenge completions.",
}, []string{"challenge"})

// CertificatesIssued tracks freshly issued certificates (replays excluded).
var CertificatesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "certificates_issued_total",
	Help:      "Total certificates issued.",
}, []string{"challenge"})

// ─── Concurrency ────────────────────────────────────────────────────────────

// LockWait tracks time spent waiting for a per-key write lock.
var LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "bloom",
	Name:      "lock_wait_seconds",
	Help:      "Time spent acquiring per-key write locks.",
	Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 2},
})

// LockTimeouts tracks lock acquisitions that timed out.
var LockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bloom",
	Name:      "lock_timeouts_total",
	Help:      "Total per-key lock acquisition timeouts.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "bloom",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
