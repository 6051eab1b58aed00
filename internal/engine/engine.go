// Package engine folds parsed fights into the run-wide aggregates. An
// Engine is created per run, fed one fight at a time and frozen by
// Finalize.
package engine

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/eitopstats/topstats/internal/aggregate"
	"github.com/eitopstats/topstats/internal/cache"
	"github.com/eitopstats/topstats/internal/classify"
	"github.com/eitopstats/topstats/internal/dps"
	"github.com/eitopstats/topstats/internal/logging"
	"github.com/eitopstats/topstats/pkg/core"
)

// ErrFinalized is returned when a finalized engine is fed another fight.
var ErrFinalized = errors.New("engine already finalized")

// Config holds the engine settings.
type Config struct {
	DPS            dps.Config
	HighScoreStats []string
}

// Engine is the mutable state of one run.
type Engine struct {
	cfg     Config
	logger  *slog.Logger
	fightCx *logging.FightContext
	catalog *cache.Catalog
	roster  *cache.Roster
	count   cache.SafeCounter

	mu        sync.Mutex
	finalized bool
	scopes    *aggregate.Scopes
	derived   *dps.Table
	scores    *classify.HighScores
	fights    []core.FightSummary
	players   map[core.PlayerKey]*PlayerSummary
	casts     map[string]*SkillCasts
	rows      []core.PlayerFight
}

// New creates an engine. roster may be nil when guild membership is not
// tracked.
func New(cfg Config, logger *slog.Logger, catalog *cache.Catalog, roster *cache.Roster) *Engine {
	if catalog == nil {
		catalog = cache.NewCatalog()
	}
	if roster == nil {
		roster = cache.NewRoster()
	}
	fc := &logging.FightContext{}
	return &Engine{
		cfg:     cfg,
		logger:  logging.WithFightContext(logger, fc),
		fightCx: fc,
		catalog: catalog,
		roster:  roster,
		scopes:  aggregate.NewScopes(),
		derived: dps.NewTable(cfg.DPS),
		scores:  classify.NewHighScores(),
		players: make(map[core.PlayerKey]*PlayerSummary),
		casts:   make(map[string]*SkillCasts),
	}
}

// FightResult is what one fight contributed, for the row-oriented outputs.
type FightResult struct {
	Summary core.FightSummary  `json:"summary"`
	Rows    []core.PlayerFight `json:"rows"`
}

// ProcessFight folds log l read from file into the run. Fights are numbered
// from 1 in call order.
func (e *Engine) ProcessFight(file string, l *core.Log) (*FightResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return nil, ErrFinalized
	}

	num := e.count.Inc()
	e.fightCx.Set(num, filepath.Base(file))
	defer e.fightCx.Clear()

	e.catalog.AddLog(l)
	summary := Summarize(num, filepath.Base(file), l)
	e.fights = append(e.fights, summary)

	roles := classify.Roles(l)
	groups := groupCounts(l)

	for i := range l.Players {
		p := &l.Players[i]
		if p.NotInSquad {
			continue
		}
		aggregate.FoldPlayer(e.scopes.For(num, p.Key()), aggregate.Input{
			Log:        l,
			Player:     p,
			SquadCount: summary.SquadCount,
			GroupCount: groups[p.Group],
			Stacking:   e.catalog.Stacking,
		})
		e.bookPlayer(p, roles[i], l)
		e.countCasts(p, roles[i])
	}

	fight := dps.NewFight(l, roles, e.cfg.DPS)
	if fight.Ticks == 0 {
		e.logger.Warn("no per-second damage series, derived metrics skipped")
	}
	derived := e.derived.Process(fight)

	res := &FightResult{Summary: summary}
	for i := range l.Players {
		p := &l.Players[i]
		if p.NotInSquad {
			continue
		}
		d := derived[i]
		e.scorePlayer(p, num, d.Kills)
		res.Rows = append(res.Rows, e.row(num, l, p, roles[i], d))
	}
	e.rows = append(e.rows, res.Rows...)

	e.logger.Info("fight processed",
		"type", summary.LogType,
		"name", summary.Name,
		"squad", summary.SquadCount,
		"enemies", summary.EnemyCount,
		"durationS", summary.DurationSeconds())
	return res, nil
}

func (e *Engine) row(num int, l *core.Log, p *core.Player, role core.Role, d dps.Result) core.PlayerFight {
	in := classify.RoleInputFor(p)
	r := core.PlayerFight{
		Fight:        num,
		Name:         p.Name,
		Profession:   p.Profession,
		Account:      p.Account,
		Role:         role,
		Group:        p.Group,
		InSquad:      !p.NotInSquad,
		Skipped:      d.Skipped,
		Commander:    p.HasCommanderTag,
		FightTimeMS:  l.DurationMS,
		ActiveTimeMS: p.ActiveTimeMS(),
		Damage:       in.Damage,
		PowerDamage:  in.PowerDamage,
		CondiDamage:  in.CondiDamage,
		Healing:      in.Healing,
		Barrier:      in.Barrier,
		Downs:        d.Downs,
		Kills:        d.Kills,
		Coordination: d.Coordination,
		Carrion:      d.Carrion,
	}
	if len(d.Chunk) > 5 {
		r.Chunk5 = d.Chunk[5]
		r.Burst5 = d.Burst[5]
	}
	return r
}

// Fights returns the number of fights processed so far.
func (e *Engine) Fights() int {
	return e.count.Value()
}

// Result is the frozen output of a run.
type Result struct {
	LastFight  int                               `json:"lastFight"`
	Fights     []core.FightSummary               `json:"fights"`
	Players    map[core.PlayerKey]*PlayerSummary `json:"players"`
	Aggregates *aggregate.Scopes                 `json:"aggregates"`
	Derived    *dps.Table                        `json:"derived"`
	HighScores map[string][]classify.Score       `json:"highScores"`
	SkillCasts map[string]*SkillCasts            `json:"skillCastsByRole"`
	Catalog    *cache.Catalog                    `json:"catalog"`
	Rows       []core.PlayerFight                `json:"rows"`
	Sanitized  int                               `json:"sanitized"`
}

// Finalize replaces every non-finite leaf with 0 and freezes the engine.
func (e *Engine) Finalize() (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return nil, ErrFinalized
	}
	e.finalized = true

	n := e.scopes.Sanitize() + e.derived.Sanitize()
	if n > 0 {
		e.logger.Warn("non-finite values replaced with 0", "count", n)
	}

	return &Result{
		LastFight:  e.count.Value(),
		Fights:     e.fights,
		Players:    e.players,
		Aggregates: e.scopes,
		Derived:    e.derived,
		HighScores: e.scores.Snapshot(),
		SkillCasts: e.casts,
		Catalog:    e.catalog,
		Rows:       e.rows,
		Sanitized:  n,
	}, nil
}
