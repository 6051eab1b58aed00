package dps

import (
	"github.com/eitopstats/topstats/pkg/core"
)

// Fight is the per-fight precomputation every derived metric reads: the
// damage each player dealt to enemy players, who is skipped, and the squad
// series. It is built once and then only read.
type Fight struct {
	Log   *core.Log
	Ticks int

	// Damage[i] is player i's cumulative damage to enemy players.
	Damage [][]float64
	// Skip[i] excludes player i from squad sums and derived metrics.
	Skip []bool
	// Keys[i] is the derived-stats key of player i.
	Keys []core.RoleKey

	CombatTimeMS []float64

	Squad      []float64
	SquadMA    []float64
	SquadMASum float64
	SquadTotal float64
}

// NewFight precomputes the shared series. roles is indexed like
// l.Players; missing entries count as RoleDPS.
func NewFight(l *core.Log, roles []core.Role, cfg Config) *Fight {
	f := &Fight{
		Log:          l,
		Ticks:        l.Ticks(),
		Damage:       make([][]float64, len(l.Players)),
		Skip:         make([]bool, len(l.Players)),
		Keys:         make([]core.RoleKey, len(l.Players)),
		CombatTimeMS: make([]float64, len(l.Players)),
		Squad:        make([]float64, l.Ticks()),
	}

	for i := range l.Players {
		p := &l.Players[i]
		f.Damage[i] = enemyDamage(l, p, f.Ticks)
		f.CombatTimeMS[i] = CombatTimeMS(p, l.DurationMS)
		f.Skip[i] = skipPlayer(p, f.CombatTimeMS[i], l.DurationMS, cfg.skipRatio())

		role := core.RoleDPS
		if i < len(roles) {
			role = roles[i]
		}
		f.Keys[i] = core.NewRoleKey(p.Key(), role, cfg.SplitByRole)
	}

	for i := range l.Players {
		if f.Skip[i] {
			continue
		}
		for t, d := range Deltas(f.Damage[i]) {
			f.Squad[t] += d
		}
	}
	f.SquadTotal = sum(f.Squad)
	f.SquadMA = MovingAverage(f.Squad, 1)
	f.SquadMASum = sum(f.SquadMA)
	return f
}

// enemyDamage sums the player's cumulative damage against every enemy
// player target into one series of length ticks.
func enemyDamage(l *core.Log, p *core.Player, ticks int) []float64 {
	out := make([]float64, ticks)
	for idx := range l.Targets {
		if !l.Targets[idx].EnemyPlayer {
			continue
		}
		series := p.DamageOnTarget(idx)
		if series == nil {
			continue
		}
		for t := range out {
			out[t] += at(series, t)
		}
	}
	return out
}

func skipPlayer(p *core.Player, combatMS, fightMS, ratio float64) bool {
	if p.NotInSquad {
		return true
	}
	if !p.HasDied() || fightMS <= 0 {
		return false
	}
	return combatMS/fightMS < ratio
}

// CombatTimeMS is the time the player was present and alive: active time
// minus the parts of the fight spent dead or disconnected.
func CombatTimeMS(p *core.Player, fightMS float64) float64 {
	active := p.ActiveTimeMS()
	if active == 0 {
		active = fightMS
	}
	for _, iv := range Breakpoints(p, fightMS) {
		active -= iv.Length()
	}
	return max(active, 0)
}

// Breakpoints returns the player's dead and disconnected spans, clipped to
// the fight and sorted by start.
func Breakpoints(p *core.Player, fightMS float64) []core.Interval {
	if p.CombatReplay == nil {
		return nil
	}
	var spans []core.Interval
	for _, tl := range []core.Timeline{p.CombatReplay.Dead, p.CombatReplay.DC} {
		for _, iv := range tl.Spans() {
			iv.Start = max(iv.Start, 0)
			iv.End = min(iv.End, fightMS)
			if iv.Length() > 0 {
				spans = append(spans, iv)
			}
		}
	}
	return mergeSpans(spans)
}

func mergeSpans(spans []core.Interval) []core.Interval {
	if len(spans) < 2 {
		return spans
	}
	sortIntervals(spans)
	out := []core.Interval{spans[0]}
	for _, iv := range spans[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			last.End = max(last.End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}
