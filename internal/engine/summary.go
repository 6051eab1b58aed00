package engine

import (
	"github.com/eitopstats/topstats/internal/parser"
	"github.com/eitopstats/topstats/pkg/core"
)

// Team colours of enemy targets.
const (
	TeamRed     = "Red"
	TeamGreen   = "Green"
	TeamBlue    = "Blue"
	TeamUnknown = "Unk"
)

var teamColors = map[int]string{
	705:  TeamRed,
	706:  TeamRed,
	882:  TeamRed,
	2520: TeamRed,
	2739: TeamGreen,
	2741: TeamGreen,
	2752: TeamGreen,
	2763: TeamGreen,
	432:  TeamBlue,
	1277: TeamBlue,
}

// TeamColor maps a target team id to its colour.
func TeamColor(teamID int) string {
	if c, ok := teamColors[teamID]; ok {
		return c
	}
	return TeamUnknown
}

// Summarize builds the fight-level bookkeeping of log l.
func Summarize(num int, file string, l *core.Log) core.FightSummary {
	logType, name := parser.DetermineLogType(l.FightName)
	s := core.FightSummary{
		Number:     num,
		File:       file,
		LogType:    logType,
		Name:       name,
		TimeStart:  l.TimeStart,
		TimeEnd:    l.TimeEnd,
		DurationMS: l.DurationMS,
		RecordedBy: l.RecordedBy,
		EnemyTeams: map[string]int{},
		Parties:    map[int][]string{},
	}
	if len(l.UploadLinks) > 0 {
		s.UploadLink = l.UploadLinks[0]
	}

	for i := range l.Players {
		p := &l.Players[i]
		if p.NotInSquad {
			s.NonSquadCount++
			continue
		}
		s.SquadCount++
		s.Parties[p.Group] = append(s.Parties[p.Group], p.Name)
		if p.HasCommanderTag && s.Commander == "" {
			s.Commander = p.Name
		}
		if len(p.DpsAll) > 0 {
			s.SquadDamage += p.DpsAll[0].Get("damage")
		}
		if len(p.Defenses) > 0 {
			s.SquadDowns += p.Defenses[0].Get("downCount")
			s.SquadDeaths += p.Defenses[0].Get("deadCount")
		}
		for _, st := range p.StatsTargets {
			if len(st) > 0 {
				s.EnemyDowns += st[0].Get("downed")
				s.EnemyKills += st[0].Get("killed")
			}
		}
		s.ShieldDamage += shieldDamage(p)
	}

	for i := range l.Targets {
		t := &l.Targets[i]
		if t.IsFake {
			continue
		}
		s.EnemyCount++
		s.EnemyTeams[TeamColor(t.TeamID)]++
	}
	return s
}

func shieldDamage(p *core.Player) float64 {
	var total float64
	for _, target := range p.TargetDamageDist {
		if len(target) == 0 {
			continue
		}
		for _, skill := range target[0] {
			total += skill.Get("shieldDamage")
		}
	}
	return total
}

// groupCounts counts squad members per party.
func groupCounts(l *core.Log) map[int]int {
	out := make(map[int]int)
	for i := range l.Players {
		if !l.Players[i].NotInSquad {
			out[l.Players[i].Group]++
		}
	}
	return out
}
