// Package classify infers player roles and keeps the bounded high-score
// leaderboards.
package classify

import (
	"github.com/eitopstats/topstats/internal/util"
	"github.com/eitopstats/topstats/pkg/core"
)

// SupportCritRate is the crit percentage at or below which a player counts
// as support.
const SupportCritRate = 40.0

// RoleInput holds the single-fight numbers role inference reads.
type RoleInput struct {
	Healing     float64
	Barrier     float64
	Damage      float64
	PowerDamage float64
	CondiDamage float64
	// CritRate is a percentage. Use CritRate to derive it.
	CritRate float64
}

// InferRole classifies a player for one fight.
func InferRole(in RoleInput) core.Role {
	switch {
	case in.Healing > in.Damage, in.Barrier > in.Damage, in.CritRate <= SupportCritRate:
		return core.RoleSupport
	case in.CondiDamage > in.PowerDamage:
		return core.RoleCondi
	default:
		return core.RoleDPS
	}
}

// CritRate returns crits as a percentage of critable hits. A player without
// critable hits reports 100 so the crit rule alone never marks them as
// support.
func CritRate(crits, critable float64) float64 {
	return util.SafeDiv(crits*100, critable, 100)
}

// RoleInputFor reads the role inputs from a player's fight data. Damage
// figures are taken from dpsAll, crits from the statsTargets sum and
// healing from the healing addon blocks when present.
func RoleInputFor(p *core.Player) RoleInput {
	var in RoleInput
	if len(p.DpsAll) > 0 {
		in.Damage = p.DpsAll[0].Get("damage")
		in.PowerDamage = p.DpsAll[0].Get("powerDamage")
		in.CondiDamage = p.DpsAll[0].Get("condiDamage")
	}

	var crits, critable float64
	for _, t := range p.StatsTargets {
		if len(t) == 0 {
			continue
		}
		crits += t[0].Get("criticalRate")
		critable += t[0].Get("critableDirectDamageCount")
	}
	in.CritRate = CritRate(crits, critable)

	if p.ExtHealingStats != nil {
		for _, ally := range p.ExtHealingStats.OutgoingHealingAllies {
			if len(ally) > 0 {
				in.Healing += ally[0].Get("healing") - ally[0].Get("downedHealing")
			}
		}
	}
	if p.ExtBarrierStats != nil {
		for _, ally := range p.ExtBarrierStats.OutgoingBarrierAllies {
			if len(ally) > 0 {
				in.Barrier += ally[0].Get("barrier")
			}
		}
	}
	return in
}

// Roles infers the role of every player of a fight, indexed like
// l.Players.
func Roles(l *core.Log) []core.Role {
	out := make([]core.Role, len(l.Players))
	for i := range l.Players {
		out[i] = InferRole(RoleInputFor(&l.Players[i]))
	}
	return out
}
