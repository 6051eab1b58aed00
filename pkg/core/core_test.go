package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_UnmarshalKeepsNumbersOnly(t *testing.T) {
	var s Stats
	err := json.Unmarshal([]byte(`{"id": 123, "totalDamage": 4500.5, "indirectDamage": true, "name": "x", "nested": {"a": 1}, "neg": -2}`), &s)
	require.NoError(t, err)

	assert.Equal(t, Stats{"id": 123, "totalDamage": 4500.5, "neg": -2}, s)
	assert.Equal(t, 123, s.ID())
	assert.Equal(t, []string{"id", "neg", "totalDamage"}, s.Keys())
}

func TestStats_UnmarshalNull(t *testing.T) {
	var list []Stats
	require.NoError(t, json.Unmarshal([]byte(`[null, {"a": 1}]`), &list))
	require.Len(t, list, 2)
	assert.Empty(t, list[0])
	assert.Equal(t, 1.0, list[1].Get("a"))
}

func TestTimeline_PairsDedupesLikeAMap(t *testing.T) {
	tl := Timeline{{1000, 2000}, {5000, 6000}, {1000, 3000}, {7}}
	assert.Equal(t, []Pair{{Key: 1000, Value: 3000}, {Key: 5000, Value: 6000}}, tl.Pairs())
	assert.Nil(t, Timeline(nil).Pairs())
}

func TestTimeline_StateIntervals(t *testing.T) {
	tests := []struct {
		name string
		tl   Timeline
		end  float64
		want []Interval
	}{
		{
			name: "transitions",
			tl:   Timeline{{0, 0}, {1000, 5}, {2500, 10}},
			end:  4000,
			want: []Interval{{0, 1000, 0}, {1000, 2500, 5}, {2500, 4000, 10}},
		},
		{
			name: "clamped to end",
			tl:   Timeline{{0, 1}, {5000, 0}},
			end:  3000,
			want: []Interval{{0, 3000, 1}},
		},
		{
			name: "explicit intervals",
			tl:   Timeline{{0, 500, 3}, {500, 500, 1}},
			end:  3000,
			want: []Interval{{0, 500, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tl.StateIntervals(tt.end))
		})
	}
}

func TestRole_StringAndParse(t *testing.T) {
	for _, r := range []Role{RoleDPS, RoleCondi, RoleSupport} {
		got, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	assert.Equal(t, "Unknown", Role(9).String())

	_, err := ParseRole("Healer")
	assert.Error(t, err)
}

func TestRoleKey_String(t *testing.T) {
	pk := PlayerKey{Name: "Ayla", Profession: "Firebrand"}

	assert.Equal(t, "Ayla|Firebrand", NewRoleKey(pk, RoleSupport, false).String())
	assert.Equal(t, "Ayla|Firebrand|Support", NewRoleKey(pk, RoleSupport, true).String())
	assert.Equal(t, RoleDPS, NewRoleKey(pk, RoleSupport, false).Role)
}

func TestLog_DecodesPlayerArrays(t *testing.T) {
	raw := `{
		"durationMS": 65000,
		"players": [{
			"name": "Ayla", "profession": "Firebrand", "activeTimes": [64000],
			"damage1S": [[0, 10, 20]],
			"targetDamage1S": [[[0, 5, 15]]],
			"combatReplayData": {"dead": [[30000, 31000]]}
		}],
		"targets": [{"enemyPlayer": true, "combatReplayData": {"down": [[1000, 2000]]}}]
	}`
	var l Log
	require.NoError(t, json.Unmarshal([]byte(raw), &l))

	assert.Equal(t, 65.0, l.DurationSeconds())
	assert.Equal(t, 3, l.Ticks())
	p := l.Players[0]
	assert.Equal(t, 64000.0, p.ActiveTimeMS())
	assert.True(t, p.HasDied())
	assert.Equal(t, []float64{0, 5, 15}, p.DamageOnTarget(0))
	assert.Nil(t, p.DamageOnTarget(3))
	assert.Equal(t, []Pair{{1000, 2000}}, l.Targets[0].Downs())
	assert.Empty(t, l.Targets[0].Deaths())
}

func TestKeys_UsableAsJSONMapKeys(t *testing.T) {
	in := map[RoleKey]int{
		NewRoleKey(PlayerKey{Name: "Ayla", Profession: "Firebrand"}, RoleSupport, true): 1,
		NewRoleKey(PlayerKey{Name: "Bram", Profession: "Reaper"}, RoleDPS, false):       2,
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ayla|Firebrand|Support": 1, "Bram|Reaper": 2}`, string(data))

	var out map[RoleKey]int
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	var pk PlayerKey
	assert.Error(t, pk.UnmarshalText([]byte("nobar")))
}
