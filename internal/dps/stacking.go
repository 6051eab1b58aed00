package dps

import (
	"sort"

	"github.com/eitopstats/topstats/pkg/core"
)

// MaxStacks is the highest tracked stack count; larger counts share its
// bucket.
const MaxStacks = 25

// Boon ids whose uptime is tracked against damage dealt.
var trackedBoons = map[int]string{
	1122:  "stability",
	717:   "protection",
	743:   "aegis",
	740:   "might",
	725:   "fury",
	26980: "resistance",
	873:   "resolution",
	1187:  "quickness",
	719:   "swiftness",
	30328: "alacrity",
	726:   "vigor",
	718:   "regeneration",
}

// TrackedBoons returns the names of the boons with damage_with buckets.
func TrackedBoons() []string {
	out := make([]string, 0, len(trackedBoons))
	for _, name := range trackedBoons {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// StackingUptime tracks time spent at each might and stability stack count
// and the damage dealt while each tracked boon was up.
type StackingUptime struct {
	Account    string    `json:"account"`
	Name       string    `json:"name"`
	Profession string    `json:"profession"`
	Role       core.Role `json:"role"`

	DurationMight     float64                `json:"duration_might"`
	DurationStability float64                `json:"duration_stability"`
	Might             [MaxStacks + 1]float64 `json:"might"`
	Stability         [MaxStacks + 1]float64 `json:"stability"`

	// DamageWith maps a boon name to damage per stack bucket: 26 buckets
	// for might, present/absent for the others.
	DamageWith map[string][]float64 `json:"damage_with"`
}

func newStackingUptime(p *core.Player, role core.Role) *StackingUptime {
	s := &StackingUptime{
		Account:    p.Account,
		Name:       p.Name,
		Profession: p.Profession,
		Role:       role,
		DamageWith: make(map[string][]float64, len(trackedBoons)),
	}
	for _, name := range trackedBoons {
		if name == "might" {
			s.DamageWith[name] = make([]float64, MaxStacks+1)
		} else {
			s.DamageWith[name] = make([]float64, 2)
		}
	}
	return s
}

func (t *Table) stacking(f *Fight) {
	l := f.Log
	for i := range l.Players {
		if f.Skip[i] {
			continue
		}
		p := &l.Players[i]
		key := f.Keys[i]
		s, ok := t.Stacking[key]
		if !ok {
			s = newStackingUptime(p, key.Role)
			t.Stacking[key] = s
		}

		deltas := Deltas(f.Damage[i])
		cuts := Breakpoints(p, l.DurationMS)
		seen := make(map[string]bool, len(trackedBoons))
		for _, b := range p.BuffUptimesActive {
			name, ok := trackedBoons[b.ID]
			if !ok {
				continue
			}
			states := SplitStates(b.States.StateIntervals(l.DurationMS), cuts)
			if len(states) == 0 {
				continue
			}
			s.add(name, states, deltas)
			seen[name] = true
		}

		// A boon without states was at zero stacks the whole fight.
		total := sum(deltas)
		for _, name := range TrackedBoons() {
			if !seen[name] {
				s.DamageWith[name][0] += total
			}
		}
	}
}

func (s *StackingUptime) add(name string, states []core.Interval, deltas []float64) {
	damage := Attribute(deltas, states)
	buckets := s.DamageWith[name]
	for k, st := range states {
		stacks := min(max(st.Stacks, 0), MaxStacks)
		switch name {
		case "might":
			s.Might[stacks] += st.Length()
			s.DurationMight += st.Length()
		case "stability":
			s.Stability[stacks] += st.Length()
			s.DurationStability += st.Length()
		}
		bucket := min(stacks, len(buckets)-1)
		buckets[bucket] += damage[k]
	}
}

// Attribute apportions per-second damage to state intervals by overlap.
// Damage before the first state goes to the first, after the last to the
// last, and a gap between two states to the earlier one, so the result
// always sums to the total of deltas.
func Attribute(deltas []float64, states []core.Interval) []float64 {
	out := make([]float64, len(states))
	if len(states) == 0 {
		return out
	}
	prefix := make([]float64, len(deltas)+1)
	for i, d := range deltas {
		prefix[i+1] = prefix[i] + d
	}
	end := float64(len(deltas))
	// integral of the damage rate from 0 to x seconds
	integral := func(x float64) float64 {
		x = min(max(x, 0), end)
		s := int(x)
		v := prefix[s]
		if s < len(deltas) {
			v += deltas[s] * (x - float64(s))
		}
		return v
	}

	from := 0.0
	for k := range states {
		to := end
		if k+1 < len(states) {
			to = max(states[k+1].Start/1000, from)
		}
		out[k] = integral(to) - integral(from)
		from = to
	}
	return out
}

// SplitStates removes the cut spans from the state intervals. An interval
// straddling a cut is split in two.
func SplitStates(states, cuts []core.Interval) []core.Interval {
	if len(cuts) == 0 {
		return states
	}
	var out []core.Interval
	for _, st := range states {
		pieces := []core.Interval{st}
		for _, c := range cuts {
			var next []core.Interval
			for _, p := range pieces {
				if c.End <= p.Start || c.Start >= p.End {
					next = append(next, p)
					continue
				}
				if c.Start > p.Start {
					next = append(next, core.Interval{Start: p.Start, End: c.Start, Stacks: p.Stacks})
				}
				if c.End < p.End {
					next = append(next, core.Interval{Start: c.End, End: p.End, Stacks: p.Stacks})
				}
			}
			pieces = next
		}
		out = append(out, pieces...)
	}
	sortIntervals(out)
	return out
}

func sortIntervals(iv []core.Interval) {
	sort.SliceStable(iv, func(i, j int) bool { return iv[i].Start < iv[j].Start })
}
