package core

import "time"

// Log types reported in fight summaries.
const (
	LogTypeWvW = "WVW"
	LogTypePvE = "PVE"
)

// Run describes one aggregation pass over a directory of logs.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	InputDir  string    `json:"inputDir"`
	GuildName string    `json:"guildName,omitempty"`
	Files     []string  `json:"files"`
}

// FightSummary is the fight-level bookkeeping produced once per log.
type FightSummary struct {
	Number        int              `json:"number"`
	File          string           `json:"file"`
	LogType       string           `json:"logType"`
	Name          string           `json:"name"`
	TimeStart     string           `json:"timeStart"`
	TimeEnd       string           `json:"timeEnd"`
	DurationMS    float64          `json:"durationMs"`
	Commander     string           `json:"commander,omitempty"`
	RecordedBy    string           `json:"recordedBy,omitempty"`
	UploadLink    string           `json:"uploadLink,omitempty"`
	SquadCount    int              `json:"squadCount"`
	NonSquadCount int              `json:"nonSquadCount"`
	EnemyCount    int              `json:"enemyCount"`
	EnemyTeams    map[string]int   `json:"enemyTeams"`
	Parties       map[int][]string `json:"parties"`
	SquadDamage   float64          `json:"squadDamage"`
	ShieldDamage  float64          `json:"shieldDamage"`
	EnemyDowns    float64          `json:"enemyDowns"`
	EnemyKills    float64          `json:"enemyKills"`
	SquadDowns    float64          `json:"squadDowns"`
	SquadDeaths   float64          `json:"squadDeaths"`
}

// DurationSeconds returns the fight length in seconds.
func (f *FightSummary) DurationSeconds() float64 {
	return f.DurationMS / 1000
}

// PlayerFight is one player's line for one fight, the row shape shared by
// the row-oriented outputs.
type PlayerFight struct {
	Fight        int     `json:"fight"`
	Name         string  `json:"name"`
	Profession   string  `json:"profession"`
	Account      string  `json:"account"`
	Role         Role    `json:"role"`
	Group        int     `json:"group"`
	InSquad      bool    `json:"inSquad"`
	Skipped      bool    `json:"skipped"`
	Commander    bool    `json:"commander"`
	FightTimeMS  float64 `json:"fightTimeMs"`
	ActiveTimeMS float64 `json:"activeTimeMs"`
	Damage       float64 `json:"damage"`
	PowerDamage  float64 `json:"powerDamage"`
	CondiDamage  float64 `json:"condiDamage"`
	Downs        float64 `json:"downs"`
	Kills        float64 `json:"kills"`
	Healing      float64 `json:"healing"`
	Barrier      float64 `json:"barrier"`
	Coordination float64 `json:"coordinationDamage"`
	Carrion      float64 `json:"carrionDamage"`
	Chunk5       float64 `json:"chunkDamage5"`
	Burst5       float64 `json:"burstDamage5"`
}

// Key returns the player identity of the row.
func (p *PlayerFight) Key() PlayerKey {
	return PlayerKey{Name: p.Name, Profession: p.Profession}
}
