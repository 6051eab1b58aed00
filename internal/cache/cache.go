package cache

import (
	"sort"
	"strconv"
	"sync"

	"github.com/eitopstats/topstats/internal/util"
	"github.com/eitopstats/topstats/pkg/core"
)

// Catalog collects the skill, buff and damage modifier dictionaries of every
// log in a run so labels survive after the logs themselves are dropped.
type Catalog struct {
	m            sync.RWMutex
	Skills       map[int]core.SkillInfo     `json:"skills"`
	Buffs        map[int]core.BuffInfo      `json:"buffs"`
	DamageMods   map[int]core.DamageModInfo `json:"damageMods"`
	PersonalMods map[string][]int           `json:"personalDamageMods"`
}

func NewCatalog() *Catalog {
	return &Catalog{
		Skills:       make(map[int]core.SkillInfo),
		Buffs:        make(map[int]core.BuffInfo),
		DamageMods:   make(map[int]core.DamageModInfo),
		PersonalMods: make(map[string][]int),
	}
}

// AddLog merges the dictionaries of l. Keys that do not carry a numeric
// id are ignored and the first entry seen for an id is kept.
func (c *Catalog) AddLog(l *core.Log) {
	c.m.Lock()
	defer c.m.Unlock()

	for k, v := range l.SkillMap {
		if id, ok := util.TrimIDPrefix(k); ok {
			if _, seen := c.Skills[id]; !seen {
				c.Skills[id] = v
			}
		}
	}
	for k, v := range l.BuffMap {
		if id, ok := util.TrimIDPrefix(k); ok {
			if _, seen := c.Buffs[id]; !seen {
				c.Buffs[id] = v
			}
		}
	}
	for k, v := range l.DamageModMap {
		if id, ok := util.TrimIDPrefix(k); ok {
			if _, seen := c.DamageMods[id]; !seen {
				c.DamageMods[id] = v
			}
		}
	}
	for prof, ids := range l.PersonalDamageMods {
		c.PersonalMods[prof] = mergeIDs(c.PersonalMods[prof], ids)
		c.PersonalMods["total"] = mergeIDs(c.PersonalMods["total"], ids)
	}
}

func mergeIDs(have, add []int) []int {
	seen := make(map[int]struct{}, len(have)+len(add))
	for _, id := range have {
		seen[id] = struct{}{}
	}
	for _, id := range add {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			have = append(have, id)
		}
	}
	sort.Ints(have)
	return have
}

// Stacking reports whether the buff stacks in intensity. Unknown buffs do
// not stack.
func (c *Catalog) Stacking(id int) bool {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.Buffs[id].Stacking
}

func (c *Catalog) GetSkill(id int) (core.SkillInfo, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	s, ok := c.Skills[id]
	return s, ok
}

func (c *Catalog) GetBuff(id int) (core.BuffInfo, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	b, ok := c.Buffs[id]
	return b, ok
}

// SkillName returns the skill's name or its raw id.
func (c *Catalog) SkillName(id int) string {
	if s, ok := c.GetSkill(id); ok && s.Name != "" {
		return s.Name
	}
	return strconv.Itoa(id)
}

// BuffName returns the buff's name or its raw id.
func (c *Catalog) BuffName(id int) string {
	if b, ok := c.GetBuff(id); ok && b.Name != "" {
		return b.Name
	}
	return strconv.Itoa(id)
}

// DamageModName returns the modifier's name or its raw id.
func (c *Catalog) DamageModName(id int) string {
	c.m.RLock()
	defer c.m.RUnlock()
	if d, ok := c.DamageMods[id]; ok && d.Name != "" {
		return d.Name
	}
	return strconv.Itoa(id)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

// Inc increments and returns the new value.
func (c *SafeCounter) Inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v++
	return c.v
}
