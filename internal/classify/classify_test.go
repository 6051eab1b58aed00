package classify

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/eitopstats/topstats/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferRole(t *testing.T) {
	tests := []struct {
		name string
		in   RoleInput
		want core.Role
	}{
		{"healer", RoleInput{Healing: 5000, Damage: 1000, CritRate: 80}, core.RoleSupport},
		{"barrier", RoleInput{Barrier: 5000, Damage: 1000, CritRate: 80}, core.RoleSupport},
		{"low crit", RoleInput{Damage: 1000, PowerDamage: 1000, CritRate: 40}, core.RoleSupport},
		{"condi", RoleInput{Damage: 1000, CondiDamage: 700, PowerDamage: 300, CritRate: 60}, core.RoleCondi},
		{"power", RoleInput{Damage: 1000, CondiDamage: 300, PowerDamage: 700, CritRate: 60}, core.RoleDPS},
		{"idle", RoleInput{CritRate: CritRate(0, 0)}, core.RoleDPS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferRole(tt.in))
		})
	}
}

func TestCritRate(t *testing.T) {
	assert.Equal(t, 50.0, CritRate(5, 10))
	assert.Equal(t, 100.0, CritRate(0, 0))
}

func TestRoles_FromPlayerData(t *testing.T) {
	l := &core.Log{Players: []core.Player{
		{
			DpsAll:       []core.Stats{{"damage": 100, "powerDamage": 100}},
			StatsTargets: [][]core.Stats{{{"criticalRate": 9, "critableDirectDamageCount": 10}}},
			ExtHealingStats: &core.ExtHealingStats{OutgoingHealingAllies: [][]core.Stats{
				{{"healing": 500, "downedHealing": 50}},
			}},
		},
		{
			DpsAll:       []core.Stats{{"damage": 1000, "powerDamage": 200, "condiDamage": 800}},
			StatsTargets: [][]core.Stats{{{"criticalRate": 5, "critableDirectDamageCount": 10}}, {}},
		},
		{
			DpsAll:       []core.Stats{{"damage": 1000, "powerDamage": 900, "condiDamage": 100}},
			StatsTargets: [][]core.Stats{{{"criticalRate": 3, "critableDirectDamageCount": 10}}},
		},
	}}
	assert.Equal(t, []core.Role{core.RoleSupport, core.RoleCondi, core.RoleSupport}, Roles(l))
}

func TestHighScores_Bound(t *testing.T) {
	h := NewHighScores()
	r := rand.New(rand.NewSource(42))
	var evicted []float64
	for i := 0; i < 200; i++ {
		before := h.Top("dps")
		v := r.Float64() * 1000
		h.Update("dps", fmt.Sprint(i), v)
		after := h.Top("dps")
		require.LessOrEqual(t, len(after), TopN)

		if len(before) == TopN {
			evicted = append(evicted, before[len(before)-1].Value)
		}
		if len(evicted) > 0 {
			for _, s := range after {
				assert.GreaterOrEqual(t, s.Value, evicted[len(evicted)-1])
			}
		}
	}
}

func TestHighScores_FullBoardRequiresStrictlyGreater(t *testing.T) {
	h := NewHighScores()
	for i, v := range []float64{10, 20, 30, 40, 50} {
		assert.True(t, h.Update("kills", fmt.Sprint(i), v))
	}
	assert.False(t, h.Update("kills", "tie", 10))
	assert.False(t, h.Update("kills", "low", 5))
	assert.True(t, h.Update("kills", "high", 60))

	top := h.Top("kills")
	require.Len(t, top, TopN)
	assert.Equal(t, Score{Key: "high", Value: 60}, top[0])
	assert.Equal(t, 20.0, top[TopN-1].Value)
	assert.Empty(t, h.Top("missing"))
}

func TestHighScores_Merge(t *testing.T) {
	a, b := NewHighScores(), NewHighScores()
	for i := 0; i < 4; i++ {
		a.Update("hit", fmt.Sprint("a", i), float64(i))
		b.Update("hit", fmt.Sprint("b", i), float64(i+10))
	}
	a.Merge(b)
	top := a.Top("hit")
	require.Len(t, top, TopN)
	assert.Equal(t, 13.0, top[0].Value)
	assert.Equal(t, 3.0, top[4].Value)
	assert.Equal(t, []string{"hit"}, a.Metrics())
}
