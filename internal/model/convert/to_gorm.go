// Package convert maps engine output onto the GORM models
package convert

import (
	"encoding/json"
	"sort"

	"github.com/eitopstats/topstats/internal/aggregate"
	"github.com/eitopstats/topstats/internal/classify"
	"github.com/eitopstats/topstats/internal/dps"
	"github.com/eitopstats/topstats/internal/model"
	"github.com/eitopstats/topstats/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v, falling back to empty when v is nil or unencodable.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// CoreToRun converts a core.Run to a GORM model.Run.
func CoreToRun(r *core.Run) model.Run {
	return model.Run{
		RunUID:    r.ID,
		StartedAt: r.StartedAt,
		InputDir:  r.InputDir,
		GuildName: r.GuildName,
		FileCount: len(r.Files),
	}
}

// CoreToFight converts a fight summary to a GORM model.Fight.
func CoreToFight(runID uint, s core.FightSummary) model.Fight {
	return model.Fight{
		RunID:         runID,
		Number:        s.Number,
		File:          s.File,
		LogType:       s.LogType,
		Name:          s.Name,
		TimeStart:     s.TimeStart,
		TimeEnd:       s.TimeEnd,
		DurationMS:    s.DurationMS,
		Commander:     s.Commander,
		RecordedBy:    s.RecordedBy,
		UploadLink:    s.UploadLink,
		SquadCount:    s.SquadCount,
		NonSquadCount: s.NonSquadCount,
		EnemyCount:    s.EnemyCount,
		EnemyTeams:    toJSON(s.EnemyTeams, "{}"),
		Parties:       toJSON(s.Parties, "{}"),
		SquadDamage:   s.SquadDamage,
		ShieldDamage:  s.ShieldDamage,
		EnemyDowns:    s.EnemyDowns,
		EnemyKills:    s.EnemyKills,
		SquadDowns:    s.SquadDowns,
		SquadDeaths:   s.SquadDeaths,
	}
}

// CoreToPlayerFight converts a player row to a GORM model.PlayerFight.
func CoreToPlayerFight(runID uint, r core.PlayerFight) model.PlayerFight {
	return model.PlayerFight{
		RunID:        runID,
		FightNumber:  r.Fight,
		Name:         r.Name,
		Profession:   r.Profession,
		Account:      r.Account,
		Role:         r.Role.String(),
		PartyGroup:   r.Group,
		InSquad:      r.InSquad,
		Skipped:      r.Skipped,
		Commander:    r.Commander,
		FightTimeMS:  r.FightTimeMS,
		ActiveTimeMS: r.ActiveTimeMS,
		Damage:       r.Damage,
		PowerDamage:  r.PowerDamage,
		CondiDamage:  r.CondiDamage,
		Downs:        r.Downs,
		Kills:        r.Kills,
		Healing:      r.Healing,
		Barrier:      r.Barrier,
		Coordination: r.Coordination,
		Carrion:      r.Carrion,
		Chunk5:       r.Chunk5,
		Burst5:       r.Burst5,
	}
}

// CoreToPlayerFights converts every row of a fight.
func CoreToPlayerFights(runID uint, rows []core.PlayerFight) []model.PlayerFight {
	out := make([]model.PlayerFight, 0, len(rows))
	for _, r := range rows {
		out = append(out, CoreToPlayerFight(runID, r))
	}
	return out
}

// ScopesToPlayerAggregates flattens the per-player scope into one row per
// non-empty (player, category), ordered by player then category.
func ScopesToPlayerAggregates(runID uint, s *aggregate.Scopes) []model.PlayerAggregate {
	if s == nil {
		return nil
	}
	keys := make([]core.PlayerKey, 0, len(s.Players))
	for k := range s.Players {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var out []model.PlayerAggregate
	for _, k := range keys {
		agg := s.Players[k]
		cats := make([]string, 0, len(agg))
		for c, t := range agg {
			if len(t) > 0 {
				cats = append(cats, string(c))
			}
		}
		sort.Strings(cats)
		for _, c := range cats {
			out = append(out, model.PlayerAggregate{
				RunID:      runID,
				Name:       k.Name,
				Profession: k.Profession,
				Category:   c,
				Stats:      toJSON(agg[aggregate.Category(c)], "{}"),
			})
		}
	}
	return out
}

// TableToDerivedStats converts the derived-metric table, ordered by key.
func TableToDerivedStats(runID uint, t *dps.Table) []model.DerivedStat {
	if t == nil {
		return nil
	}
	keys := make([]core.RoleKey, 0, len(t.Stats))
	for k := range t.Stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := make([]model.DerivedStat, 0, len(keys))
	for _, k := range keys {
		st := t.Stats[k]
		out = append(out, model.DerivedStat{
			RunID:              runID,
			Name:               st.Name,
			Profession:         st.Profession,
			Account:            st.Account,
			Role:               st.Role.String(),
			Fights:             st.Fights,
			DurationS:          st.DurationS,
			CombatTimeS:        st.CombatTimeS,
			CoordinationDamage: st.CoordinationDamage,
			CarrionDamage:      st.CarrionDamage,
			DamageTotal:        st.DamageTotal,
			Downs:              st.Downs,
			Kills:              st.Kills,
			ChunkDamage:        toJSON(st.ChunkDamage, "[]"),
			BurstDamage:        toJSON(st.BurstDamage, "[]"),
		})
	}
	return out
}

// HighScoresToModel converts the leaderboards. Rank starts at 1.
func HighScoresToModel(runID uint, hs map[string][]classify.Score) []model.HighScore {
	metrics := make([]string, 0, len(hs))
	for m := range hs {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	var out []model.HighScore
	for _, m := range metrics {
		for i, s := range hs[m] {
			out = append(out, model.HighScore{
				RunID:  runID,
				Metric: m,
				Rank:   i + 1,
				Key:    s.Key,
				Value:  s.Value,
			})
		}
	}
	return out
}
