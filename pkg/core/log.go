// Package core holds the in-memory shape of a parsed combat log and the
// identity and output types shared across the aggregation packages.
package core

// Log is one fight as exported by Elite Insights. Only the fields the
// aggregation reads are mapped; everything else in the export is ignored.
type Log struct {
	FightName          string                   `json:"fightName"`
	DurationMS         float64                  `json:"durationMS"`
	Duration           string                   `json:"duration"`
	TimeStart          string                   `json:"timeStart"`
	TimeEnd            string                   `json:"timeEnd"`
	TimeStartStd       string                   `json:"timeStartStd"`
	RecordedBy         string                   `json:"recordedBy"`
	UploadLinks        []string                 `json:"uploadLinks"`
	DetailedWvW        bool                     `json:"detailedWvW"`
	Players            []Player                 `json:"players"`
	Targets            []Target                 `json:"targets"`
	SkillMap           map[string]SkillInfo     `json:"skillMap"`
	BuffMap            map[string]BuffInfo      `json:"buffMap"`
	DamageModMap       map[string]DamageModInfo `json:"damageModMap"`
	PersonalDamageMods map[string][]int         `json:"personalDamageMods"`
	UsedExtensions     []Extension              `json:"usedExtensions"`
	Mechanics          []Mechanic               `json:"mechanics"`
}

// DurationSeconds returns the fight length in seconds.
func (l *Log) DurationSeconds() float64 {
	return l.DurationMS / 1000
}

// Ticks is the number of one-second samples in the per-second damage
// arrays, taken from the first player's damage1S series.
func (l *Log) Ticks() int {
	for _, p := range l.Players {
		if len(p.Damage1S) > 0 {
			return len(p.Damage1S[0])
		}
	}
	return 0
}

// SkillInfo describes an entry of skillMap.
type SkillInfo struct {
	Name       string `json:"name"`
	AutoAttack bool   `json:"autoAttack"`
	CanCrit    bool   `json:"canCrit"`
	Icon       string `json:"icon"`
	IsSwap     bool   `json:"isSwap"`
}

// BuffInfo describes an entry of buffMap.
type BuffInfo struct {
	Name           string   `json:"name"`
	Icon           string   `json:"icon"`
	Stacking       bool     `json:"stacking"`
	ConversionBuff bool     `json:"conversionBasedHealing"`
	Classification string   `json:"classification"`
	Descriptions   []string `json:"descriptions"`
}

// DamageModInfo describes an entry of damageModMap.
type DamageModInfo struct {
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	Description   string `json:"description"`
	NonMultiplier bool   `json:"nonMultiplier"`
	SkillBased    bool   `json:"skillBased"`
	Approximate   bool   `json:"approximate"`
}

// Extension is an arcdps addon that was active while the log was recorded.
type Extension struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	RunningExtension []string `json:"runningExtension"`
}

// Mechanic is a tracked mechanic with the actors that triggered it.
type Mechanic struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	MechanicsData []MechanicEvent `json:"mechanicsData"`
}

// MechanicEvent is one occurrence of a mechanic.
type MechanicEvent struct {
	Time  float64 `json:"time"`
	Actor string  `json:"actor"`
}

// Player is a squad member or ally captured in the log.
type Player struct {
	Name            string    `json:"name"`
	Account         string    `json:"account"`
	Profession      string    `json:"profession"`
	Group           int       `json:"group"`
	GuildID         string    `json:"guildID"`
	HasCommanderTag bool      `json:"hasCommanderTag"`
	NotInSquad      bool      `json:"notInSquad"`
	ActiveTimes     []float64 `json:"activeTimes"`
	Weapons         []string  `json:"weapons"`

	TargetDamage1S [][][]float64 `json:"targetDamage1S"`
	Damage1S       [][]float64   `json:"damage1S"`

	DpsAll       []Stats   `json:"dpsAll"`
	DpsTargets   [][]Stats `json:"dpsTargets"`
	StatsAll     []Stats   `json:"statsAll"`
	StatsTargets [][]Stats `json:"statsTargets"`
	Defenses     []Stats   `json:"defenses"`
	Support      []Stats   `json:"support"`

	TargetDamageDist [][][]Stats `json:"targetDamageDist"`
	TotalDamageDist  [][]Stats   `json:"totalDamageDist"`
	TotalDamageTaken [][]Stats   `json:"totalDamageTaken"`

	BuffUptimes       []BuffUptime     `json:"buffUptimes"`
	BuffUptimesActive []BuffUptime     `json:"buffUptimesActive"`
	SelfBuffs         []BuffGeneration `json:"selfBuffs"`
	GroupBuffs        []BuffGeneration `json:"groupBuffs"`
	SquadBuffs        []BuffGeneration `json:"squadBuffs"`
	SelfBuffsActive   []BuffGeneration `json:"selfBuffsActive"`
	GroupBuffsActive  []BuffGeneration `json:"groupBuffsActive"`
	SquadBuffsActive  []BuffGeneration `json:"squadBuffsActive"`

	Rotation        []RotationSkill   `json:"rotation"`
	ExtHealingStats *ExtHealingStats  `json:"extHealingStats"`
	ExtBarrierStats *ExtBarrierStats  `json:"extBarrierStats"`
	DamageModifiers []DamageModifier  `json:"damageModifiers"`
	Minions         []Minion          `json:"minions"`
	CombatReplay    *CombatReplayData `json:"combatReplayData"`
}

// Key returns the player's aggregation identity.
func (p *Player) Key() PlayerKey {
	return PlayerKey{Name: p.Name, Profession: p.Profession}
}

// ActiveTimeMS is the time the player was present in the fight. Zero when
// the export has no activeTimes entry.
func (p *Player) ActiveTimeMS() float64 {
	if len(p.ActiveTimes) == 0 {
		return 0
	}
	return p.ActiveTimes[0]
}

// HasDied reports whether the replay data carries at least one death.
func (p *Player) HasDied() bool {
	return p.CombatReplay != nil && len(p.CombatReplay.Dead) > 0
}

// DamageOnTarget returns the cumulative per-second damage series against
// the target at index, or nil when the export does not carry it.
func (p *Player) DamageOnTarget(index int) []float64 {
	if index < 0 || index >= len(p.TargetDamage1S) || len(p.TargetDamage1S[index]) == 0 {
		return nil
	}
	return p.TargetDamage1S[index][0]
}

// Target is an enemy or NPC the squad fought.
type Target struct {
	ID           int               `json:"id"`
	Name         string            `json:"name"`
	EnemyPlayer  bool              `json:"enemyPlayer"`
	IsFake       bool              `json:"isFake"`
	TeamID       int               `json:"teamID"`
	TotalHealth  float64           `json:"totalHealth"`
	Buffs        []TargetBuff      `json:"buffs"`
	CombatReplay *CombatReplayData `json:"combatReplayData"`
}

// Downs returns the target's down events. Empty when the replay is missing.
func (t *Target) Downs() []Pair {
	if t.CombatReplay == nil {
		return nil
	}
	return t.CombatReplay.Down.Pairs()
}

// Deaths returns the target's death events.
func (t *Target) Deaths() []Pair {
	if t.CombatReplay == nil {
		return nil
	}
	return t.CombatReplay.Dead.Pairs()
}

// TargetBuff holds the per-source states of one buff on a target.
type TargetBuff struct {
	ID              int                 `json:"id"`
	StatesPerSource map[string]Timeline `json:"statesPerSource"`
}

// CombatReplayData carries the down, death and disconnect intervals of an
// actor as [start, end] pairs in milliseconds.
type CombatReplayData struct {
	Down Timeline `json:"down"`
	Dead Timeline `json:"dead"`
	DC   Timeline `json:"dc"`
}

// BuffUptime is an entry of buffUptimes / buffUptimesActive.
type BuffUptime struct {
	ID       int        `json:"id"`
	BuffData []BuffData `json:"buffData"`
	States   Timeline   `json:"states"`
}

// BuffData holds the phase-level uptime figures of a buff.
type BuffData struct {
	Uptime   float64 `json:"uptime"`
	Presence float64 `json:"presence"`
}

// BuffGeneration is an entry of the self/group/squad buff generation lists.
type BuffGeneration struct {
	ID       int                  `json:"id"`
	BuffData []BuffGenerationData `json:"buffData"`
}

// BuffGenerationData holds generation and waste in EI units (percent for
// duration buffs, stacks for intensity buffs).
type BuffGenerationData struct {
	Generation  float64 `json:"generation"`
	Overstack   float64 `json:"overstack"`
	Wasted      float64 `json:"wasted"`
	ByExtension float64 `json:"byExtension"`
}

// RotationSkill lists every cast of one skill.
type RotationSkill struct {
	ID     int         `json:"id"`
	Skills []SkillCast `json:"skills"`
}

// SkillCast is one cast of a skill.
type SkillCast struct {
	CastTime   float64 `json:"castTime"`
	Duration   float64 `json:"duration"`
	TimeGained float64 `json:"timeGained"`
	Quickness  float64 `json:"quickness"`
}

// ExtHealingStats is the healing addon block.
type ExtHealingStats struct {
	OutgoingHealingAllies [][]Stats   `json:"outgoingHealingAllies"`
	AlliedHealingDist     [][][]Stats `json:"alliedHealingDist"`
}

// ExtBarrierStats is the barrier addon block.
type ExtBarrierStats struct {
	OutgoingBarrierAllies [][]Stats   `json:"outgoingBarrierAllies"`
	AlliedBarrierDist     [][][]Stats `json:"alliedBarrierDist"`
}

// DamageModifier is an entry of damageModifiers.
type DamageModifier struct {
	ID              int     `json:"id"`
	DamageModifiers []Stats `json:"damageModifiers"`
}

// Minion is a pet, clone or siege weapon controlled by a player.
type Minion struct {
	Name            string    `json:"name"`
	ID              int       `json:"id"`
	TotalDamageDist [][]Stats `json:"totalDamageDist"`
}
