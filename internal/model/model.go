package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&Fight{},
	&PlayerFight{},
	&PlayerAggregate{},
	&DerivedStat{},
	&HighScore{},
}

// Run is one aggregation pass over a directory of logs
type Run struct {
	gorm.Model
	RunUID    string    `json:"runId" gorm:"size:36;uniqueIndex"`
	StartedAt time.Time `json:"startedAt" gorm:"index:idx_run_started_at"`
	InputDir  string    `json:"inputDir" gorm:"size:255"`
	GuildName string    `json:"guildName" gorm:"size:127;default:NULL"`
	FileCount int       `json:"fileCount"`
	LastFight int       `json:"lastFight"`
	Sanitized int       `json:"sanitized"`
	Fights    []Fight   `json:"-"`
}

func (*Run) TableName() string {
	return "runs"
}

// Fight is the summary of one log
type Fight struct {
	gorm.Model
	RunID         uint           `json:"runId" gorm:"index:idx_fight_run_number,unique"`
	Run           Run            `json:"-" gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Number        int            `json:"number" gorm:"index:idx_fight_run_number,unique"`
	File          string         `json:"file" gorm:"size:255"`
	LogType       string         `json:"logType" gorm:"size:8"`
	Name          string         `json:"name" gorm:"size:127"`
	TimeStart     string         `json:"timeStart" gorm:"size:32"`
	TimeEnd       string         `json:"timeEnd" gorm:"size:32"`
	DurationMS    float64        `json:"durationMs"`
	Commander     string         `json:"commander" gorm:"size:64;default:NULL"`
	RecordedBy    string         `json:"recordedBy" gorm:"size:64;default:NULL"`
	UploadLink    string         `json:"uploadLink" gorm:"size:255;default:NULL"`
	SquadCount    int            `json:"squadCount"`
	NonSquadCount int            `json:"nonSquadCount"`
	EnemyCount    int            `json:"enemyCount"`
	EnemyTeams    datatypes.JSON `json:"enemyTeams" gorm:"type:jsonb;default:'{}'"`
	Parties       datatypes.JSON `json:"parties" gorm:"type:jsonb;default:'{}'"`
	SquadDamage   float64        `json:"squadDamage"`
	ShieldDamage  float64        `json:"shieldDamage"`
	EnemyDowns    float64        `json:"enemyDowns"`
	EnemyKills    float64        `json:"enemyKills"`
	SquadDowns    float64        `json:"squadDowns"`
	SquadDeaths   float64        `json:"squadDeaths"`
}

func (*Fight) TableName() string {
	return "fights"
}

// PlayerFight is one squad member's line for one fight
type PlayerFight struct {
	ID           uint    `json:"id" gorm:"primarykey"`
	RunID        uint    `json:"runId" gorm:"index:idx_player_fight_run"`
	Run          Run     `json:"-" gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FightNumber  int     `json:"fight" gorm:"index:idx_player_fight_run"`
	Name         string  `json:"name" gorm:"size:64;index:idx_player_fight_name"`
	Profession   string  `json:"profession" gorm:"size:32"`
	Account      string  `json:"account" gorm:"size:64"`
	Role         string  `json:"role" gorm:"size:16"`
	PartyGroup   int     `json:"group"`
	InSquad      bool    `json:"inSquad" gorm:"default:true"`
	Skipped      bool    `json:"skipped" gorm:"default:false"`
	Commander    bool    `json:"commander" gorm:"default:false"`
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

func (*PlayerFight) TableName() string {
	return "player_fights"
}

// PlayerAggregate holds one category table of a player's run totals.
// Stats is keyed by the category's key (skill id, boon id, target) and then
// by stat name.
type PlayerAggregate struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	RunID      uint           `json:"runId" gorm:"index:idx_player_aggregate,unique"`
	Run        Run            `json:"-" gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Name       string         `json:"name" gorm:"size:64;index:idx_player_aggregate,unique"`
	Profession string         `json:"profession" gorm:"size:32;index:idx_player_aggregate,unique"`
	Category   string         `json:"category" gorm:"size:64;index:idx_player_aggregate,unique"`
	Stats      datatypes.JSON `json:"stats" gorm:"type:jsonb;default:'{}'"`
}

func (*PlayerAggregate) TableName() string {
	return "player_aggregates"
}

// DerivedStat is the run-wide derived damage profile of one player (and
// role, when roles are split)
type DerivedStat struct {
	ID                 uint           `json:"id" gorm:"primarykey"`
	RunID              uint           `json:"runId" gorm:"index:idx_derived_stat_run"`
	Run                Run            `json:"-" gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Name               string         `json:"name" gorm:"size:64"`
	Profession         string         `json:"profession" gorm:"size:32"`
	Account            string         `json:"account" gorm:"size:64"`
	Role               string         `json:"role" gorm:"size:16"`
	Fights             int            `json:"fights"`
	DurationS          float64        `json:"duration"`
	CombatTimeS        float64        `json:"combatTime"`
	CoordinationDamage float64        `json:"coordinationDamage"`
	CarrionDamage      float64        `json:"carrionDamage"`
	DamageTotal        float64        `json:"damageTotal"`
	Downs              float64        `json:"downs"`
	Kills              float64        `json:"kills"`
	ChunkDamage        datatypes.JSON `json:"chunkDamage" gorm:"type:jsonb;default:'[]'"`
	BurstDamage        datatypes.JSON `json:"burstDamage" gorm:"type:jsonb;default:'[]'"`
}

func (*DerivedStat) TableName() string {
	return "derived_stats"
}

// HighScore is one leaderboard entry
type HighScore struct {
	ID     uint    `json:"id" gorm:"primarykey"`
	RunID  uint    `json:"runId" gorm:"index:idx_high_score_run_metric"`
	Run    Run     `json:"-" gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Metric string  `json:"metric" gorm:"size:64;index:idx_high_score_run_metric"`
	Rank   int     `json:"rank"`
	Key    string  `json:"key" gorm:"size:160"`
	Value  float64 `json:"value"`
}

func (*HighScore) TableName() string {
	return "high_scores"
}
