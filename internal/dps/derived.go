package dps

import (
	"github.com/eitopstats/topstats/internal/util"
	"github.com/eitopstats/topstats/pkg/core"
)

// Stats is the running derived-metric record of one (player, role) key.
// Sums accumulate across fights; burst arrays keep the best fight.
type Stats struct {
	Account    string    `json:"account"`
	Name       string    `json:"name"`
	Profession string    `json:"profession"`
	Role       core.Role `json:"role"`

	Fights      int     `json:"fights"`
	DurationS   float64 `json:"duration"`
	CombatTimeS float64 `json:"combatTime"`

	CoordinationDamage float64   `json:"coordinationDamage"`
	ChunkDamage        []float64 `json:"chunkDamage"`
	ChunkDamageTotal   []float64 `json:"chunkDamageTotal"`
	CarrionDamage      float64   `json:"carrionDamage"`
	CarrionDamageTotal float64   `json:"carrionDamageTotal"`
	DamageTotal        float64   `json:"damageTotal"`
	SquadDamageTotal   float64   `json:"squadDamageTotal"`
	BurstDamage        []float64 `json:"burstDamage"`
	Ch5CaBurstDamage   []float64 `json:"ch5CaBurstDamage"`
	Downs              float64   `json:"downs"`
	Kills              float64   `json:"kills"`
}

func newStats(p *core.Player, role core.Role, windows int) *Stats {
	return &Stats{
		Account:          p.Account,
		Name:             p.Name,
		Profession:       p.Profession,
		Role:             role,
		ChunkDamage:      make([]float64, windows+1),
		ChunkDamageTotal: make([]float64, windows+1),
		BurstDamage:      make([]float64, windows+1),
		Ch5CaBurstDamage: make([]float64, windows+1),
	}
}

// Result holds one player's derived values for a single fight. Index w of
// the window slices is the w-second window; index 0 is unused.
type Result struct {
	Skipped bool
	Siege   bool

	Damage       float64
	Coordination float64
	Chunk        []float64
	ChunkTotal   []float64
	Carrion      float64
	CarrionTotal float64
	Burst        []float64
	Ch5CaBurst   []float64
	Downs        float64
	Kills        float64

	// Ch5Ca is the per-tick damage that led to a down (5 s chunk) or
	// landed between a down and its death.
	Ch5Ca []float64
}

// Table is the run-wide derived-metric state.
type Table struct {
	cfg   Config
	siege map[int]struct{}

	Stats    map[core.RoleKey]*Stats            `json:"stats"`
	Stacking map[core.RoleKey]*StackingUptime   `json:"stackingUptime"`
	Pages    map[core.PlayerKey]*FirebrandPages `json:"firebrandPages"`
}

// NewTable returns an empty table.
func NewTable(cfg Config) *Table {
	return &Table{
		cfg:      cfg,
		siege:    cfg.siegeSet(),
		Stats:    make(map[core.RoleKey]*Stats),
		Stacking: make(map[core.RoleKey]*StackingUptime),
		Pages:    make(map[core.PlayerKey]*FirebrandPages),
	}
}

// Windows is the largest window tracked.
func (t *Table) Windows() int {
	return t.cfg.windows()
}

// Process computes every derived metric for one fight, merges them into the
// table and returns the per-player values indexed like f.Log.Players.
func (t *Table) Process(f *Fight) []Result {
	w := t.cfg.windows()
	l := f.Log
	results := make([]Result, len(l.Players))
	for i := range results {
		results[i] = Result{
			Skipped:    f.Skip[i],
			Chunk:      make([]float64, w+1),
			ChunkTotal: make([]float64, w+1),
			Burst:      make([]float64, w+1),
			Ch5CaBurst: make([]float64, w+1),
			Ch5Ca:      make([]float64, f.Ticks),
		}
	}

	for i := range l.Players {
		if f.Skip[i] {
			continue
		}
		p := &l.Players[i]
		r := &results[i]
		r.Damage = at(f.Damage[i], f.Ticks-1)
		r.Coordination = Coordination(f.Damage[i], f.SquadMA, f.SquadMASum, l.DurationSeconds())
		for _, st := range p.StatsTargets {
			if len(st) == 0 {
				continue
			}
			r.Downs += st[0].Get("downed")
			r.Kills += st[0].Get("killed")
		}
		r.Siege = t.usedSiege(p)
	}

	for idx := range l.Targets {
		target := &l.Targets[idx]
		if !target.EnemyPlayer || target.CombatReplay == nil {
			continue
		}
		t.chunk(f, idx, w, results)
		t.carrion(f, idx, results)
	}

	for i := range results {
		r := &results[i]
		if r.Skipped || r.Siege {
			continue
		}
		ch5ca := CumSum(r.Ch5Ca)
		for win := 1; win <= w; win++ {
			// A longer window never bursts less than a shorter one, even
			// past the end of a short fight.
			r.Burst[win] = max(BurstMax(f.Damage[i], win), r.Burst[win-1])
			r.Ch5CaBurst[win] = max(BurstMax(ch5ca, win), r.Ch5CaBurst[win-1])
		}
	}

	t.merge(f, results)
	t.stacking(f)
	t.firebrand(f)
	return results
}

// Coordination weights each smoothed damage tick by the squad's share of
// smoothed damage at that tick. Ticks where either side is zero add
// nothing.
func Coordination(cum, squadMA []float64, squadMASum, fightSeconds float64) float64 {
	if squadMASum == 0 {
		return 0
	}
	ma := MovingAverage(Deltas(cum), 1)
	var total float64
	for t, v := range ma {
		if t >= len(squadMA) {
			break
		}
		if v == 0 || squadMA[t] == 0 {
			continue
		}
		total += v * (squadMA[t] / squadMASum) * fightSeconds
	}
	return total
}

// chunk credits damage dealt in the window seconds before each down of
// target idx.
func (t *Table) chunk(f *Fight, idx, windows int, results []Result) {
	downs := f.Log.Targets[idx].Downs()
	if len(downs) == 0 {
		return
	}
	for w := 1; w <= windows; w++ {
		for k, down := range downs {
			downIndex := util.CeilSecond(down.Key)
			start := max(0, downIndex-w)
			if k > 0 {
				last := util.CeilSecond(downs[k-1].Key)
				if last == downIndex {
					continue
				}
				start = max(start, last)
			}

			var squad float64
			for i := range f.Log.Players {
				if f.Skip[i] {
					continue
				}
				series := f.Log.Players[i].DamageOnTarget(idx)
				dmg := at(series, downIndex) - at(series, start)
				results[i].Chunk[w] += dmg
				squad += dmg
				if w == 5 {
					addDeltas(results[i].Ch5Ca, series, start, downIndex)
				}
			}
			for i := range f.Log.Players {
				if !f.Skip[i] {
					results[i].ChunkTotal[w] += squad
				}
			}
		}
	}
}

// carrion credits damage dealt between a down and the death it led to. A
// death is paired with the down whose end equals the death's start.
func (t *Table) carrion(f *Fight, idx int, results []Result) {
	target := &f.Log.Targets[idx]
	deaths := target.Deaths()
	downs := target.Downs()
	for _, death := range deaths {
		for _, down := range downs {
			if death.Key != down.Value {
				continue
			}
			start := util.CeilSecond(down.Key)
			end := util.CeilSecond(death.Key)

			var total float64
			for i := range f.Log.Players {
				if f.Skip[i] {
					continue
				}
				series := f.Log.Players[i].DamageOnTarget(idx)
				dmg := at(series, end) - at(series, start)
				results[i].Carrion += dmg
				total += dmg
				addDeltas(results[i].Ch5Ca, series, start, end)
			}
			for i := range f.Log.Players {
				if !f.Skip[i] {
					results[i].CarrionTotal += total
				}
			}
		}
	}
}

// addDeltas adds the per-tick increase of cum over [from, to) into dst.
func addDeltas(dst, cum []float64, from, to int) {
	for i := max(from, 0); i < to && i < len(dst); i++ {
		dst[i] += at(cum, i+1) - at(cum, i)
	}
}

func (t *Table) usedSiege(p *core.Player) bool {
	if len(t.siege) == 0 {
		return false
	}
	hit := func(dist [][]core.Stats) bool {
		if len(dist) == 0 {
			return false
		}
		for _, s := range dist[0] {
			if _, ok := t.siege[s.ID()]; ok && len(s) > 0 {
				return true
			}
		}
		return false
	}
	if hit(p.TotalDamageDist) {
		return true
	}
	for _, m := range p.Minions {
		if hit(m.TotalDamageDist) {
			return true
		}
	}
	return false
}

func (t *Table) merge(f *Fight, results []Result) {
	for i := range results {
		r := &results[i]
		if r.Skipped {
			continue
		}
		p := &f.Log.Players[i]
		key := f.Keys[i]
		s, ok := t.Stats[key]
		if !ok {
			s = newStats(p, key.Role, t.cfg.windows())
			t.Stats[key] = s
		}
		s.Fights++
		s.DurationS += f.Log.DurationSeconds()
		s.CombatTimeS += f.CombatTimeMS[i] / 1000
		s.DamageTotal += r.Damage
		s.SquadDamageTotal += f.SquadTotal
		s.CoordinationDamage += r.Coordination
		s.CarrionDamage += r.Carrion
		s.CarrionDamageTotal += r.CarrionTotal
		s.Downs += r.Downs
		s.Kills += r.Kills
		for w := range r.Chunk {
			s.ChunkDamage[w] += r.Chunk[w]
			s.ChunkDamageTotal[w] += r.ChunkTotal[w]
			s.BurstDamage[w] = max(s.BurstDamage[w], r.Burst[w])
			s.Ch5CaBurstDamage[w] = max(s.Ch5CaBurstDamage[w], r.Ch5CaBurst[w])
		}
	}
}

// Sanitize zeroes non-finite values and returns how many were replaced.
func (t *Table) Sanitize() int {
	n := 0
	fix := func(v *float64) {
		if !util.Finite(*v) {
			*v = 0
			n++
		}
	}
	fixAll := func(vs []float64) {
		for i := range vs {
			fix(&vs[i])
		}
	}
	for _, s := range t.Stats {
		for _, v := range []*float64{&s.DurationS, &s.CombatTimeS, &s.CoordinationDamage, &s.CarrionDamage,
			&s.CarrionDamageTotal, &s.DamageTotal, &s.SquadDamageTotal, &s.Downs, &s.Kills} {
			fix(v)
		}
		fixAll(s.ChunkDamage)
		fixAll(s.ChunkDamageTotal)
		fixAll(s.BurstDamage)
		fixAll(s.Ch5CaBurstDamage)
	}
	for _, s := range t.Stacking {
		fix(&s.DurationMight)
		fix(&s.DurationStability)
		fixAll(s.Might[:])
		fixAll(s.Stability[:])
		for _, b := range s.DamageWith {
			fixAll(b)
		}
	}
	for _, p := range t.Pages {
		fix(&p.FightTimeS)
	}
	return n
}
