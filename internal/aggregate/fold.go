package aggregate

import (
	"strconv"

	"github.com/eitopstats/topstats/pkg/core"
)

// FoldByKey adds a single-level stat block under TotalKey.
func FoldByKey(acc Accumulator, c Category, s core.Stats) {
	acc.AddStats(c, TotalKey, s)
}

// FoldByTarget sums the phase-0 block of every target into TotalKey.
func FoldByTarget(acc Accumulator, c Category, targets [][]core.Stats) {
	for _, target := range targets {
		if len(target) == 0 {
			continue
		}
		acc.AddStats(c, TotalKey, target[0])
	}
}

// FoldByTargetAndSkill folds [target][phase][]skill into per-skill stats.
func FoldByTargetAndSkill(acc Accumulator, c Category, targets [][][]core.Stats) {
	for _, target := range targets {
		if len(target) == 0 {
			continue
		}
		for _, skill := range target[0] {
			if len(skill) == 0 {
				continue
			}
			acc.AddStats(c, strconv.Itoa(skill.ID()), skill)
		}
	}
}

// FoldBySkill folds [phase][]skill into per-skill stats.
func FoldBySkill(acc Accumulator, c Category, phases [][]core.Stats) {
	if len(phases) == 0 {
		return
	}
	for _, skill := range phases[0] {
		if len(skill) == 0 {
			continue
		}
		acc.AddStats(c, strconv.Itoa(skill.ID()), skill)
	}
}

// FoldBuffUptimes adds uptime_ms per buff. Presence, when non-zero, is
// scaled by base; otherwise the uptime percentage is scaled by the fight
// duration.
func FoldBuffUptimes(acc Accumulator, c Category, buffs []core.BuffUptime, base, fightMS float64) {
	for _, b := range buffs {
		if len(b.BuffData) == 0 {
			continue
		}
		acc.Add(c, strconv.Itoa(b.ID), "uptime_ms", UptimeMS(b.BuffData[0], base, fightMS))
	}
}

// UptimeMS applies the presence-over-uptime selection rule.
func UptimeMS(d core.BuffData, base, fightMS float64) float64 {
	if d.Presence != 0 {
		return d.Presence * base / 100
	}
	return d.Uptime * fightMS / 100
}

// FoldBuffGeneration converts generation and waste into milliseconds.
// recipients is the number of players other than the caster; pass 1 for
// self buffs.
func FoldBuffGeneration(acc Accumulator, c Category, buffs []core.BuffGeneration, stacking func(int) bool, durationMS float64, recipients int) {
	for _, b := range buffs {
		if len(b.BuffData) == 0 {
			continue
		}
		d := b.BuffData[0]
		key := strconv.Itoa(b.ID)
		st := stacking(b.ID)
		acc.Add(c, key, "generation", GenerationMS(d.Generation, st, durationMS, recipients))
		acc.Add(c, key, "wasted", GenerationMS(d.Wasted, st, durationMS, recipients))
	}
}

// GenerationMS scales a raw generation value. Intensity buffs report stacks
// and are used as is; duration buffs report a percentage.
func GenerationMS(raw float64, stacking bool, durationMS float64, recipients int) float64 {
	if recipients < 0 {
		recipients = 0
	}
	if !stacking {
		raw /= 100
	}
	return raw * durationMS * float64(recipients)
}

// FoldTargetBuffs credits the player with the time each target buff they
// applied was active, and with how many times it went from off to on.
// Open intervals are closed at fightMS.
func FoldTargetBuffs(acc Accumulator, c Category, targets []core.Target, player string, fightMS float64) {
	for _, t := range targets {
		for _, b := range t.Buffs {
			states, ok := b.StatesPerSource[player]
			if !ok {
				continue
			}
			generated, applied := TargetBuffTime(states, fightMS)
			key := strconv.Itoa(b.ID)
			acc.Add(c, key, "generated", generated)
			acc.Add(c, key, "applied_counts", float64(applied))
		}
	}
}

// TargetBuffTime walks [time, stacks] transitions and returns the total
// time with at least one stack and the number of off to on transitions.
func TargetBuffTime(states core.Timeline, endMS float64) (float64, int) {
	var (
		total   float64
		applied int
		on      bool
		since   float64
	)
	for _, s := range states {
		if len(s) < 2 {
			continue
		}
		switch {
		case s[1] >= 1 && !on:
			on, since = true, s[0]
			applied++
		case s[1] == 0 && on:
			on = false
			total += s[0] - since
		}
	}
	if on && endMS > since {
		total += endMS - since
	}
	return total, applied
}

// FoldHealing adds outgoing and downed healing, both in total and per
// recipient. Recipients are resolved by index into players.
func FoldHealing(acc Accumulator, c Category, allies [][]core.Stats, players []core.Player) {
	for i, ally := range allies {
		if len(ally) == 0 {
			continue
		}
		downed := ally[0].Get("downedHealing")
		outgoing := ally[0].Get("healing") - downed
		if outgoing == 0 && downed == 0 {
			continue
		}
		acc.Add(c, TotalKey, "outgoing_healing", outgoing)
		acc.Add(c, TotalKey, "downed_healing", downed)
		if i < len(players) {
			acc.Add(HealingTargets, players[i].Name, "outgoing_healing", outgoing)
			acc.Add(HealingTargets, players[i].Name, "downed_healing", downed)
		}
	}
}

// FoldBarrier adds outgoing barrier in total and per recipient.
func FoldBarrier(acc Accumulator, c Category, allies [][]core.Stats, players []core.Player) {
	for i, ally := range allies {
		if len(ally) == 0 {
			continue
		}
		barrier := ally[0].Get("barrier")
		if barrier == 0 {
			continue
		}
		acc.Add(c, TotalKey, "outgoing_barrier", barrier)
		if i < len(players) {
			acc.Add(BarrierTargets, players[i].Name, "outgoing_barrier", barrier)
		}
	}
}

// FoldRecipientSkills folds [recipient][phase][]skill into per-skill
// healing or barrier stats. Healing skills also get healing =
// totalHealing - totalDownedHealing.
func FoldRecipientSkills(acc Accumulator, c Category, dist [][][]core.Stats) {
	for _, recipient := range dist {
		if len(recipient) == 0 {
			continue
		}
		for _, skill := range recipient[0] {
			if len(skill) == 0 {
				continue
			}
			key := strconv.Itoa(skill.ID())
			acc.Add(c, key, "hits", skill.Get("hits"))
			if c == BarrierSkills {
				acc.Add(c, key, "totalBarrier", skill.Get("totalBarrier"))
				continue
			}
			total, downed := skill.Get("totalHealing"), skill.Get("totalDownedHealing")
			acc.Add(c, key, "totalHealing", total)
			acc.Add(c, key, "downedHealing", downed)
			acc.Add(c, key, "healing", total-downed)
		}
	}
}

var damageModStats = []string{"hitCount", "totalHitCount", "damageGain", "totalDamage"}

// FoldDamageModifiers adds the phase-0 counters of every modifier.
func FoldDamageModifiers(acc Accumulator, c Category, mods []core.DamageModifier) {
	for _, m := range mods {
		if len(m.DamageModifiers) == 0 {
			continue
		}
		key := strconv.Itoa(m.ID)
		for _, stat := range damageModStats {
			acc.Add(c, key, stat, m.DamageModifiers[0].Get(stat))
		}
	}
}

// FoldRotation counts casts per skill.
func FoldRotation(acc Accumulator, c Category, rotation []core.RotationSkill) {
	for _, r := range rotation {
		acc.Add(c, strconv.Itoa(r.ID), "casts", float64(len(r.Skills)))
	}
}
