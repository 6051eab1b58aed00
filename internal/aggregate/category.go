package aggregate

import (
	"sort"

	"github.com/eitopstats/topstats/pkg/core"
)

// Category names one stat group of the export. The set is closed: every
// category is registered below with its traversal shape.
type Category string

const (
	Defenses          Category = "defenses"
	Support           Category = "support"
	StatsAll          Category = "statsAll"
	DpsAll            Category = "dpsAll"
	StatsTargets      Category = "statsTargets"
	DpsTargets        Category = "dpsTargets"
	TargetDamageDist  Category = "targetDamageDist"
	TotalDamageDist   Category = "totalDamageDist"
	TotalDamageTaken  Category = "totalDamageTaken"
	BuffUptimes       Category = "buffUptimes"
	BuffUptimesActive Category = "buffUptimesActive"
	SelfBuffs         Category = "selfBuffs"
	GroupBuffs        Category = "groupBuffs"
	SquadBuffs        Category = "squadBuffs"
	SelfBuffsActive   Category = "selfBuffsActive"
	GroupBuffsActive  Category = "groupBuffsActive"
	SquadBuffsActive  Category = "squadBuffsActive"
	TargetBuffs       Category = "targetBuffs"
	ExtHealingStats   Category = "extHealingStats"
	ExtBarrierStats   Category = "extBarrierStats"
	HealingTargets    Category = "healingTargets"
	BarrierTargets    Category = "barrierTargets"
	HealingSkills     Category = "healingSkills"
	BarrierSkills     Category = "barrierSkills"
	DamageModifiers   Category = "damageModifiers"
	Rotation          Category = "rotation"
)

// Shape is the traversal pattern a category's data follows.
type Shape int

const (
	ShapeByKey Shape = iota
	ShapeByTarget
	ShapeByTargetAndSkill
	ShapeBySkill
	ShapeBuffUptime
	ShapeBuffGeneration
	ShapeTargetBuff
	ShapeRecipient
	ShapeRecipientSkill
	ShapeDamageModifier
	ShapeRotation
)

// Input is everything a fold reads for one player in one fight.
type Input struct {
	Log    *core.Log
	Player *core.Player

	// SquadCount and GroupCount are the recipient counts used to turn
	// generation percentages into durations.
	SquadCount int
	GroupCount int

	// Stacking reports whether a buff stacks in intensity.
	Stacking func(buffID int) bool
}

func (in Input) fightMS() float64 {
	if in.Log == nil {
		return 0
	}
	return in.Log.DurationMS
}

func (in Input) stacking(id int) bool {
	return in.Stacking != nil && in.Stacking(id)
}

// entry binds a category to its shape. Categories filled as a side effect
// of another category's fold have a nil fold.
type entry struct {
	shape Shape
	fold  func(acc Accumulator, c Category, in Input)
}

var registry = map[Category]entry{
	Defenses: {ShapeByKey, func(acc Accumulator, c Category, in Input) {
		FoldByKey(acc, c, firstStats(in.Player.Defenses))
	}},
	Support: {ShapeByKey, func(acc Accumulator, c Category, in Input) {
		FoldByKey(acc, c, firstStats(in.Player.Support))
	}},
	StatsAll: {ShapeByKey, func(acc Accumulator, c Category, in Input) {
		FoldByKey(acc, c, firstStats(in.Player.StatsAll))
	}},
	DpsAll: {ShapeByKey, func(acc Accumulator, c Category, in Input) {
		FoldByKey(acc, c, firstStats(in.Player.DpsAll))
	}},
	StatsTargets: {ShapeByTarget, func(acc Accumulator, c Category, in Input) {
		FoldByTarget(acc, c, in.Player.StatsTargets)
	}},
	DpsTargets: {ShapeByTarget, func(acc Accumulator, c Category, in Input) {
		FoldByTarget(acc, c, in.Player.DpsTargets)
	}},
	TargetDamageDist: {ShapeByTargetAndSkill, func(acc Accumulator, c Category, in Input) {
		FoldByTargetAndSkill(acc, c, in.Player.TargetDamageDist)
	}},
	TotalDamageDist: {ShapeBySkill, func(acc Accumulator, c Category, in Input) {
		FoldBySkill(acc, c, in.Player.TotalDamageDist)
	}},
	TotalDamageTaken: {ShapeBySkill, func(acc Accumulator, c Category, in Input) {
		FoldBySkill(acc, c, in.Player.TotalDamageTaken)
	}},
	BuffUptimes: {ShapeBuffUptime, func(acc Accumulator, c Category, in Input) {
		FoldBuffUptimes(acc, c, in.Player.BuffUptimes, in.fightMS(), in.fightMS())
	}},
	BuffUptimesActive: {ShapeBuffUptime, func(acc Accumulator, c Category, in Input) {
		FoldBuffUptimes(acc, c, in.Player.BuffUptimesActive, in.Player.ActiveTimeMS(), in.fightMS())
	}},
	SelfBuffs: {ShapeBuffGeneration, func(acc Accumulator, c Category, in Input) {
		FoldBuffGeneration(acc, c, in.Player.SelfBuffs, in.stacking, in.fightMS(), 1)
	}},
	GroupBuffs: {ShapeBuffGeneration, func(acc Accumulator, c Category, in Input) {
		FoldBuffGeneration(acc, c, in.Player.GroupBuffs, in.stacking, in.fightMS(), in.GroupCount-1)
	}},
	SquadBuffs: {ShapeBuffGeneration, func(acc Accumulator, c Category, in Input) {
		FoldBuffGeneration(acc, c, in.Player.SquadBuffs, in.stacking, in.fightMS(), in.SquadCount-1)
	}},
	SelfBuffsActive: {ShapeBuffGeneration, func(acc Accumulator, c Category, in Input) {
		FoldBuffGeneration(acc, c, in.Player.SelfBuffsActive, in.stacking, in.Player.ActiveTimeMS(), 1)
	}},
	GroupBuffsActive: {ShapeBuffGeneration, func(acc Accumulator, c Category, in Input) {
		FoldBuffGeneration(acc, c, in.Player.GroupBuffsActive, in.stacking, in.Player.ActiveTimeMS(), in.GroupCount-1)
	}},
	SquadBuffsActive: {ShapeBuffGeneration, func(acc Accumulator, c Category, in Input) {
		FoldBuffGeneration(acc, c, in.Player.SquadBuffsActive, in.stacking, in.Player.ActiveTimeMS(), in.SquadCount-1)
	}},
	TargetBuffs: {ShapeTargetBuff, func(acc Accumulator, c Category, in Input) {
		if in.Log != nil {
			FoldTargetBuffs(acc, c, in.Log.Targets, in.Player.Name, in.fightMS())
		}
	}},
	ExtHealingStats: {ShapeRecipient, func(acc Accumulator, c Category, in Input) {
		if in.Player.ExtHealingStats != nil && in.Log != nil {
			FoldHealing(acc, c, in.Player.ExtHealingStats.OutgoingHealingAllies, in.Log.Players)
		}
	}},
	ExtBarrierStats: {ShapeRecipient, func(acc Accumulator, c Category, in Input) {
		if in.Player.ExtBarrierStats != nil && in.Log != nil {
			FoldBarrier(acc, c, in.Player.ExtBarrierStats.OutgoingBarrierAllies, in.Log.Players)
		}
	}},
	HealingTargets: {ShapeRecipient, nil},
	BarrierTargets: {ShapeRecipient, nil},
	HealingSkills: {ShapeRecipientSkill, func(acc Accumulator, c Category, in Input) {
		if in.Player.ExtHealingStats != nil {
			FoldRecipientSkills(acc, c, in.Player.ExtHealingStats.AlliedHealingDist)
		}
	}},
	BarrierSkills: {ShapeRecipientSkill, func(acc Accumulator, c Category, in Input) {
		if in.Player.ExtBarrierStats != nil {
			FoldRecipientSkills(acc, c, in.Player.ExtBarrierStats.AlliedBarrierDist)
		}
	}},
	DamageModifiers: {ShapeDamageModifier, func(acc Accumulator, c Category, in Input) {
		FoldDamageModifiers(acc, c, in.Player.DamageModifiers)
	}},
	Rotation: {ShapeRotation, func(acc Accumulator, c Category, in Input) {
		FoldRotation(acc, c, in.Player.Rotation)
	}},
}

// Shape returns the traversal shape of c. Unknown categories report
// ShapeByKey.
func (c Category) Shape() Shape {
	return registry[c].shape
}

// Categories returns every registered category in name order.
func Categories() []Category {
	out := make([]Category, 0, len(registry))
	for c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FoldPlayer runs every registered category over one player's fight data.
func FoldPlayer(acc Accumulator, in Input) {
	if in.Player == nil {
		return
	}
	for _, c := range Categories() {
		if fold := registry[c].fold; fold != nil {
			fold(acc, c, in)
		}
	}
}

func firstStats(list []core.Stats) core.Stats {
	if len(list) == 0 {
		return nil
	}
	return list[0]
}
