package progression

import "math"

// LevelCurve maps cumulative XP to a level. The curve is exponential:
// cumulative XP required for level n is BaseXP * Growth^(n-1) for n >= 2,
// level 1 is free. Both knobs come from config; the thresholds themselves
// are data, not architecture.
type LevelCurve struct {
	BaseXP   int64
	Growth   float64
	MaxLevel int
}

// DefaultCurve returns the product default: 100 * 1.2^(n-1), capped at L100.
func DefaultCurve() LevelCurve {
	return LevelCurve{BaseXP: 100, Growth: 1.2, MaxLevel: 100}
}

// XPForLevel returns the cumulative XP required to reach a given level.
func (c LevelCurve) XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(float64(c.BaseXP) * math.Pow(c.Growth, float64(level-1)))
}

// LevelForXP returns the level for a given cumulative XP amount.
// Pure and monotonically non-decreasing in xp. Always recomputed from
// the full XP total — never patched incrementally — so a single credit
// crossing several thresholds lands on the right level with no drift.
func (c LevelCurve) LevelForXP(xp int64) int {
	level := 1
	for level < c.MaxLevel {
		if xp < c.XPForLevel(level+1) {
			return level
		}
		level++
	}
	return c.MaxLevel
}

// XPToNext returns XP remaining until the next level. Zero at the cap.
func (c LevelCurve) XPToNext(xp int64) int64 {
	level := c.LevelForXP(xp)
	if level >= c.MaxLevel {
		return 0
	}
	remaining := c.XPForLevel(level+1) - xp
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
