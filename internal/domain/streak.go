package domain

// StreakState is the day-boundary continuity counter shared by the
// per-user streak tracker and the challenge-scoped streaks.
type StreakState struct {
	Current int
	Longest int
	LastDay Day
}

// Advance applies one qualifying action on the given day and returns the
// next state. The rule:
//   - same day as LastDay: no change
//   - exactly the next calendar day: Current += 1
//   - any larger gap (or first ever action): Current = 1
//
// Longest never decreases and is always >= Current. Days earlier than
// LastDay must be rejected by the caller before Advance is reached.
func (s StreakState) Advance(day Day) StreakState {
	next := s
	switch {
	case day == s.LastDay:
		return s
	case !s.LastDay.IsZero() && s.LastDay.DaysUntil(day) == 1:
		next.Current++
	default:
		next.Current = 1
	}
	next.LastDay = day
	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	return next
}
