package aggregate

import (
	"math"
	"testing"

	"github.com/eitopstats/topstats/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *core.Log {
	ayla := core.Player{
		Name: "Ayla", Profession: "Firebrand", Group: 1, ActiveTimes: []float64{50000},
		Defenses: []core.Stats{{"dodgeCount": 3, "damageTaken": 1200}},
		StatsTargets: [][]core.Stats{
			{{"killed": 1, "downed": 2}},
			{{"killed": 0, "downed": 1}},
			{},
		},
		TargetDamageDist: [][][]core.Stats{
			{{{"id": 100, "totalDamage": 500, "max": 300, "hits": 2}}},
			{{{"id": 100, "totalDamage": 250, "max": 250, "hits": 1}, {"id": 200, "totalDamage": 50}}},
		},
		TotalDamageTaken: [][]core.Stats{{{"id": 7, "totalDamage": 90}}},
		BuffUptimes: []core.BuffUptime{
			{ID: 740, BuffData: []core.BuffData{{Uptime: 50}}},
			{ID: 1187, BuffData: []core.BuffData{{Uptime: 50, Presence: 20}}},
		},
		SquadBuffs: []core.BuffGeneration{
			{ID: 740, BuffData: []core.BuffGenerationData{{Generation: 2, Wasted: 1}}},
			{ID: 1187, BuffData: []core.BuffGenerationData{{Generation: 10}}},
		},
		ExtHealingStats: &core.ExtHealingStats{
			OutgoingHealingAllies: [][]core.Stats{
				{{"healing": 1000, "downedHealing": 200}},
				{{"healing": 0, "downedHealing": 0}},
			},
			AlliedHealingDist: [][][]core.Stats{
				{{{"id": 9, "hits": 4, "totalHealing": 800, "totalDownedHealing": 100, "min": 1, "max": 400}}},
			},
		},
		DamageModifiers: []core.DamageModifier{
			{ID: -12, DamageModifiers: []core.Stats{{"hitCount": 3, "totalHitCount": 5, "damageGain": 40, "totalDamage": 400}}},
		},
		Rotation: []core.RotationSkill{{ID: 41258, Skills: make([]core.SkillCast, 3)}},
	}
	bram := core.Player{Name: "Bram", Profession: "Reaper", Group: 1}
	return &core.Log{
		DurationMS: 60000,
		Players:    []core.Player{ayla, bram},
		Targets: []core.Target{{
			Buffs: []core.TargetBuff{{ID: 737, StatesPerSource: map[string]core.Timeline{
				"Ayla": {{1000, 1}, {3000, 0}, {5000, 2}},
			}}},
		}},
	}
}

func testInput(l *core.Log, p int) Input {
	return Input{
		Log:        l,
		Player:     &l.Players[p],
		SquadCount: 5,
		GroupCount: 3,
		Stacking:   func(id int) bool { return id == 740 },
	}
}

func TestFoldPlayer_Shapes(t *testing.T) {
	l := testLog()
	s := NewScopes()
	acc := s.For(1, l.Players[0].Key())
	FoldPlayer(acc, testInput(l, 0))

	o := s.Overall
	assert.Equal(t, 3.0, o.Get(Defenses, TotalKey, "dodgeCount"))
	assert.Equal(t, 1.0, o.Get(StatsTargets, TotalKey, "killed"))
	assert.Equal(t, 3.0, o.Get(StatsTargets, TotalKey, "downed"))

	assert.Equal(t, 750.0, o.Get(TargetDamageDist, "100", "totalDamage"))
	assert.Equal(t, 3.0, o.Get(TargetDamageDist, "100", "hits"))
	assert.Equal(t, 50.0, o.Get(TargetDamageDist, "200", "totalDamage"))
	assert.NotContains(t, o[TargetDamageDist]["100"], "max")
	assert.NotContains(t, o[TargetDamageDist]["100"], "id")
	assert.Equal(t, 90.0, o.Get(TotalDamageTaken, "7", "totalDamage"))

	assert.Equal(t, 30000.0, o.Get(BuffUptimes, "740", "uptime_ms"))
	assert.Equal(t, 12000.0, o.Get(BuffUptimes, "1187", "uptime_ms"))

	// stacking: 2 * 60000 * 4; duration: 10/100 * 60000 * 4
	assert.Equal(t, 480000.0, o.Get(SquadBuffs, "740", "generation"))
	assert.Equal(t, 240000.0, o.Get(SquadBuffs, "740", "wasted"))
	assert.InDelta(t, 24000.0, o.Get(SquadBuffs, "1187", "generation"), 1e-9)

	assert.Equal(t, 800.0, o.Get(ExtHealingStats, TotalKey, "outgoing_healing"))
	assert.Equal(t, 200.0, o.Get(ExtHealingStats, TotalKey, "downed_healing"))
	assert.Equal(t, 800.0, o.Get(HealingTargets, "Ayla", "outgoing_healing"))
	assert.NotContains(t, o[HealingTargets], "Bram")
	assert.Equal(t, 700.0, o.Get(HealingSkills, "9", "healing"))
	assert.Equal(t, 4.0, o.Get(HealingSkills, "9", "hits"))

	assert.Equal(t, 40.0, o.Get(DamageModifiers, "-12", "damageGain"))
	assert.Equal(t, 3.0, o.Get(Rotation, "41258", "casts"))

	// on 1000..3000 and 5000..end
	assert.Equal(t, 57000.0, o.Get(TargetBuffs, "737", "generated"))
	assert.Equal(t, 2.0, o.Get(TargetBuffs, "737", "applied_counts"))
}

func TestFoldPlayer_MissingBlocksAreSkipped(t *testing.T) {
	l := testLog()
	s := NewScopes()
	assert.NotPanics(t, func() {
		FoldPlayer(s.For(1, l.Players[1].Key()), testInput(l, 1))
		FoldPlayer(s.For(1, core.PlayerKey{}), Input{})
	})
	assert.Empty(t, s.Overall[Defenses])
	for _, c := range Categories() {
		assert.Contains(t, s.Overall, c)
	}
}

func TestScopes_PerFightSumsEqualOverall(t *testing.T) {
	s := NewScopes()
	for fight := 1; fight <= 3; fight++ {
		l := testLog()
		for i := range l.Players {
			FoldPlayer(s.For(fight, l.Players[i].Key()), testInput(l, i))
		}
	}

	sum := New()
	for _, f := range s.Fights {
		sum.Merge(f)
	}
	s.Overall.Walk(func(c Category, key, stat string, v float64) {
		assert.InDelta(t, v, sum.Get(c, key, stat), 1e-6, "%s/%s/%s", c, key, stat)
	})

	players := New()
	for _, p := range s.Players {
		players.Merge(p)
	}
	assert.Equal(t, s.Overall, players)
}

func TestAggregate_MergeIsCommutative(t *testing.T) {
	a := New()
	a.Add(Defenses, TotalKey, "dodgeCount", 2)
	b := New()
	b.Add(Defenses, TotalKey, "dodgeCount", 5)
	b.Add(Rotation, "1", "casts", 1)

	ab, ba := New(), New()
	ab.Merge(a)
	ab.Merge(b)
	ba.Merge(b)
	ba.Merge(a)

	assert.Equal(t, ab, ba)
	assert.Equal(t, 7.0, ab.Get(Defenses, TotalKey, "dodgeCount"))
}

func TestAggregate_Sanitize(t *testing.T) {
	a := New()
	a.Add(DpsAll, TotalKey, "damage", math.NaN())
	a.Add(DpsAll, TotalKey, "dps", math.Inf(1))
	a.Add(DpsAll, TotalKey, "ok", 3)

	require.Equal(t, 2, a.Sanitize())
	assert.Equal(t, 0.0, a.Get(DpsAll, TotalKey, "damage"))
	assert.Equal(t, 0.0, a.Get(DpsAll, TotalKey, "dps"))
	assert.Equal(t, 3.0, a.Get(DpsAll, TotalKey, "ok"))
	assert.Equal(t, 0, a.Sanitize())
}

func TestTargetBuffTime(t *testing.T) {
	tests := []struct {
		name        string
		states      core.Timeline
		wantTime    float64
		wantApplied int
	}{
		{"empty", nil, 0, 0},
		{"single interval", core.Timeline{{1000, 1}, {4000, 0}}, 3000, 1},
		{"restack does not reapply", core.Timeline{{1000, 1}, {2000, 3}, {4000, 0}}, 3000, 1},
		{"open until end", core.Timeline{{9000, 2}}, 1000, 1},
		{"starts at zero", core.Timeline{{0, 1}, {500, 0}}, 500, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, applied := TargetBuffTime(tt.states, 10000)
			assert.Equal(t, tt.wantTime, got)
			assert.Equal(t, tt.wantApplied, applied)
		})
	}
}

func TestGenerationMS(t *testing.T) {
	assert.Equal(t, 6000.0, GenerationMS(10, false, 60000, 1))
	assert.Equal(t, 120000.0, GenerationMS(2, true, 60000, 1))
	assert.Equal(t, 0.0, GenerationMS(10, false, 60000, -1))
}

func TestCategory_Shape(t *testing.T) {
	assert.Equal(t, ShapeByTargetAndSkill, TargetDamageDist.Shape())
	assert.Equal(t, ShapeBuffGeneration, SquadBuffsActive.Shape())
	assert.Contains(t, Categories(), Rotation)
	assert.NotContains(t, Categories(), Category("nope"))
}
