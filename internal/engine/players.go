package engine

import (
	"fmt"

	"github.com/eitopstats/topstats/internal/util"
	"github.com/eitopstats/topstats/pkg/core"
)

// PlayerSummary is the run-level bookkeeping of one character.
type PlayerSummary struct {
	Account         string            `json:"account"`
	Name            string            `json:"name"`
	Profession      string            `json:"profession"`
	GuildStatus     string            `json:"guildStatus,omitempty"`
	Fights          int               `json:"fights"`
	FightTimeMS     float64           `json:"fightTime"`
	ActiveTimeMS    float64           `json:"activeTime"`
	CommanderFights int               `json:"commanderFights"`
	Roles           map[core.Role]int `json:"roles"`
	HealingAddon    bool              `json:"healingAddon"`
}

func (e *Engine) bookPlayer(p *core.Player, role core.Role, l *core.Log) {
	ps, ok := e.players[p.Key()]
	if !ok {
		ps = &PlayerSummary{
			Account:    p.Account,
			Name:       p.Name,
			Profession: p.Profession,
			Roles:      map[core.Role]int{},
		}
		if rank, member := e.roster.Get(p.Account); member {
			ps.GuildStatus = rank
		}
		e.players[p.Key()] = ps
	}
	ps.Fights++
	ps.FightTimeMS += l.DurationMS
	ps.ActiveTimeMS += p.ActiveTimeMS()
	if p.HasCommanderTag {
		ps.CommanderFights++
	}
	ps.Roles[role]++
	if p.ExtHealingStats != nil {
		ps.HealingAddon = true
	}
}

// SkillCasts counts casts per skill for one (profession, role) pair.
type SkillCasts struct {
	Profession   string                 `json:"profession"`
	Role         core.Role              `json:"role"`
	Casts        map[int]int            `json:"casts"`
	PlayerCasts  map[string]map[int]int `json:"playerCasts"`
	ActiveTimeMS map[string]float64     `json:"activeTime"`
}

// CastsKey is the SkillCasts map key.
func CastsKey(profession string, role core.Role) string {
	return fmt.Sprintf("%s|%s", profession, role)
}

func (e *Engine) countCasts(p *core.Player, role core.Role) {
	key := CastsKey(p.Profession, role)
	sc, ok := e.casts[key]
	if !ok {
		sc = &SkillCasts{
			Profession:   p.Profession,
			Role:         role,
			Casts:        map[int]int{},
			PlayerCasts:  map[string]map[int]int{},
			ActiveTimeMS: map[string]float64{},
		}
		e.casts[key] = sc
	}
	sc.ActiveTimeMS[p.Name] += p.ActiveTimeMS()
	pc, ok := sc.PlayerCasts[p.Name]
	if !ok {
		pc = map[int]int{}
		sc.PlayerCasts[p.Name] = pc
	}
	for _, skill := range p.Rotation {
		n := len(skill.Skills)
		sc.Casts[skill.ID] += n
		pc[skill.ID] += n
	}
}

// ScoreKey is the high-score key of a player in a fight.
func ScoreKey(p *core.Player, fight int) string {
	return fmt.Sprintf("%s|%s|%d", p.Name, p.Profession, fight)
}

// statBlock returns the first of defenses, support and statsAll that holds
// stat.
func statBlock(p *core.Player, stat string) (float64, bool) {
	for _, list := range [][]core.Stats{p.Defenses, p.Support, p.StatsAll} {
		if len(list) == 0 {
			continue
		}
		if v, ok := list[0][stat]; ok {
			return v, true
		}
	}
	return 0, false
}

// maxSkillHit is the largest single hit over the player's skills.
func maxSkillHit(p *core.Player) float64 {
	var best float64
	if len(p.TotalDamageDist) == 0 {
		return 0
	}
	for _, skill := range p.TotalDamageDist[0] {
		best = max(best, skill.Get("max"))
	}
	return best
}

func (e *Engine) scorePlayer(p *core.Player, fight int, kills float64) {
	activeS := p.ActiveTimeMS() / 1000
	if activeS <= 0 {
		return
	}
	key := ScoreKey(p, fight)
	for _, stat := range e.cfg.HighScoreStats {
		v, ok := statBlock(p, stat)
		if !ok {
			continue
		}
		e.scores.Update(stat, key, util.SafeDiv(v, activeS, 0))
	}
	if hit := maxSkillHit(p); hit > 0 {
		e.scores.Update(ScoreSkillHit, key, hit)
	}
	e.scores.Update(ScoreKillsPerSecond, key, util.SafeDiv(kills, activeS, 0))
}

// High-score metrics that are not read from a stat block.
const (
	ScoreSkillHit       = "skillHit"
	ScoreKillsPerSecond = "killsPerSecond"
)
