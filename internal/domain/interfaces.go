package domain

import "time"

// ─── Boundary Interfaces ────────────────────────────────────────────────────
// Infrastructure implements these; the application layer depends on them.

// Clock is the engine's authoritative time source. Day-boundary logic
// must never trust client timestamps; an injectable clock keeps the
// boundary deterministic under test.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns wall-clock time.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}
