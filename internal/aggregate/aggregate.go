// Package aggregate folds per-fight player data into running totals kept in
// three parallel scopes: per player, per fight and overall.
package aggregate

import (
	"sort"

	"github.com/eitopstats/topstats/internal/util"
	"github.com/eitopstats/topstats/pkg/core"
)

// TotalKey is the key used by categories without a natural sub-key.
const TotalKey = "total"

// Stats maps a stat name to its accumulated value.
type Stats map[string]float64

// Table maps a key (skill id, buff id, recipient, TotalKey) to its stats.
type Table map[string]Stats

// Aggregate is category -> key -> stat -> value.
type Aggregate map[Category]Table

// New returns an aggregate with an empty table for every known category.
func New() Aggregate {
	a := make(Aggregate, len(registry))
	for _, c := range Categories() {
		a[c] = make(Table)
	}
	return a
}

// Add adds v to (c, key, stat), creating missing levels.
func (a Aggregate) Add(c Category, key, stat string, v float64) {
	t, ok := a[c]
	if !ok {
		t = make(Table)
		a[c] = t
	}
	s, ok := t[key]
	if !ok {
		s = make(Stats)
		t[key] = s
	}
	s[stat] += v
}

// Get returns the value at (c, key, stat) or zero.
func (a Aggregate) Get(c Category, key, stat string) float64 {
	return a[c][key][stat]
}

// Total sums stat over every key of c.
func (a Aggregate) Total(c Category, stat string) float64 {
	var sum float64
	for _, s := range a[c] {
		sum += s[stat]
	}
	return sum
}

// Merge adds every value of b into a. Merging is associative and
// commutative, so partial aggregates can be combined in any order.
func (a Aggregate) Merge(b Aggregate) {
	b.Walk(func(c Category, key, stat string, v float64) {
		a.Add(c, key, stat, v)
	})
	for c := range b {
		if _, ok := a[c]; !ok {
			a[c] = make(Table)
		}
	}
}

// Walk visits every leaf in deterministic order.
func (a Aggregate) Walk(fn func(c Category, key, stat string, v float64)) {
	cats := make([]Category, 0, len(a))
	for c := range a {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	for _, c := range cats {
		t := a[c]
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s := t[k]
			stats := make([]string, 0, len(s))
			for st := range s {
				stats = append(stats, st)
			}
			sort.Strings(stats)
			for _, st := range stats {
				fn(c, k, st, s[st])
			}
		}
	}
}

// Sanitize replaces every non-finite leaf with zero and returns how many
// were replaced.
func (a Aggregate) Sanitize() int {
	n := 0
	for _, t := range a {
		for _, s := range t {
			for k, v := range s {
				if !util.Finite(v) {
					s[k] = 0
					n++
				}
			}
		}
	}
	return n
}

// Scopes holds the three parallel aggregates of a run.
type Scopes struct {
	Players map[core.PlayerKey]Aggregate `json:"player"`
	Fights  map[int]Aggregate            `json:"fight"`
	Overall Aggregate                    `json:"overall"`
}

// NewScopes returns empty scopes.
func NewScopes() *Scopes {
	return &Scopes{
		Players: make(map[core.PlayerKey]Aggregate),
		Fights:  make(map[int]Aggregate),
		Overall: New(),
	}
}

// For returns the accumulator writing into the player's, the fight's and
// the overall aggregate at once.
func (s *Scopes) For(fight int, player core.PlayerKey) Accumulator {
	p, ok := s.Players[player]
	if !ok {
		p = New()
		s.Players[player] = p
	}
	f, ok := s.Fights[fight]
	if !ok {
		f = New()
		s.Fights[fight] = f
	}
	return Accumulator{player: p, fight: f, overall: s.Overall}
}

// Sanitize sanitizes every aggregate and returns the number of replaced
// leaves.
func (s *Scopes) Sanitize() int {
	n := s.Overall.Sanitize()
	for _, a := range s.Players {
		n += a.Sanitize()
	}
	for _, a := range s.Fights {
		n += a.Sanitize()
	}
	return n
}

// Accumulator adds one value to three aggregates in one call.
type Accumulator struct {
	player  Aggregate
	fight   Aggregate
	overall Aggregate
}

// Add adds v to (c, key, stat) in all three scopes.
func (a Accumulator) Add(c Category, key, stat string, v float64) {
	a.player.Add(c, key, stat, v)
	a.fight.Add(c, key, stat, v)
	a.overall.Add(c, key, stat, v)
}

// AddStats adds every stat of s under key.
func (a Accumulator) AddStats(c Category, key string, s core.Stats) {
	for stat, v := range s {
		if skipStat(stat) {
			continue
		}
		a.Add(c, key, stat, v)
	}
}

// skipStat filters fields that are identifiers or extremes rather than
// additive counters.
func skipStat(stat string) bool {
	switch stat {
	case "id", "min", "max":
		return true
	}
	return false
}
