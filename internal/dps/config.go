// Package dps computes the derived damage metrics that need more than
// summation: coordination, chunk and carrion damage around enemy downs,
// burst windows and damage attributed to boon stacks.
package dps

// DefaultWindows is the largest chunk and burst window in seconds.
const DefaultWindows = 20

// DefaultSkipRatio is the combat-time share under which a player who died
// is left out of the fight's derived metrics.
const DefaultSkipRatio = 0.4

// Config tunes the derived metrics.
type Config struct {
	// SplitByRole keys derived stats by (name, profession, role) instead of
	// (name, profession).
	SplitByRole bool
	// Windows is the largest chunk/burst window. Zero means DefaultWindows.
	Windows int
	// SiegeSkillIDs marks skills whose use excludes a player from burst.
	SiegeSkillIDs []int
	// SkipRatio overrides DefaultSkipRatio when positive.
	SkipRatio float64
}

func (c Config) windows() int {
	if c.Windows <= 0 {
		return DefaultWindows
	}
	return c.Windows
}

func (c Config) skipRatio() float64 {
	if c.SkipRatio <= 0 {
		return DefaultSkipRatio
	}
	return c.SkipRatio
}

func (c Config) siegeSet() map[int]struct{} {
	set := make(map[int]struct{}, len(c.SiegeSkillIDs))
	for _, id := range c.SiegeSkillIDs {
		set[id] = struct{}{}
	}
	return set
}
