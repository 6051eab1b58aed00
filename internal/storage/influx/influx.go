// Package influxstorage writes one point per fight and one per squad member
// and fight to InfluxDB.
package influxstorage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/influx"
	"github.com/eitopstats/topstats/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementFight       = "fight"
	MeasurementPlayerFight = "player_fight"
	MeasurementHighScore   = "high_score"
)

// ErrNoRun is returned when fights arrive before StartRun.
var ErrNoRun = errors.New("no run started")

var timeLayouts = []string{
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05 -07",
	time.RFC3339,
}

// FightTime parses the start stamp of a fight. Unparseable stamps fall back
// to the run start offset by the fight number in seconds, which keeps points
// of one run distinct.
func FightTime(s core.FightSummary, run *core.Run) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s.TimeStart); err == nil {
			return t
		}
	}
	return run.StartedAt.Add(time.Duration(s.Number) * time.Second)
}

// Backend implements storage.Backend over an influx.Manager.
type Backend struct {
	mgr    *influx.Manager
	bucket string
	run    *core.Run
	ts     map[int]time.Time
}

// New creates a new Influx storage backend.
func New(mgr *influx.Manager, bucket string) *Backend {
	return &Backend{mgr: mgr, bucket: bucket}
}

// Init connects to the server or opens the backup file.
func (b *Backend) Init() error {
	return b.mgr.Connect(context.Background())
}

// Close flushes and disconnects.
func (b *Backend) Close() error {
	return b.mgr.Close()
}

func (b *Backend) StartRun(_ context.Context, run *core.Run) error {
	b.run = run
	b.ts = make(map[int]time.Time)
	return nil
}

// FightPoint builds the fight-level point.
func FightPoint(run *core.Run, s core.FightSummary, ts time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementFight).
		AddTag("run", run.ID).
		AddTag("fight", strconv.Itoa(s.Number)).
		AddTag("logType", s.LogType).
		AddTag("map", s.Name).
		AddField("durationS", s.DurationSeconds()).
		AddField("squadCount", s.SquadCount).
		AddField("enemyCount", s.EnemyCount).
		AddField("squadDamage", s.SquadDamage).
		AddField("shieldDamage", s.ShieldDamage).
		AddField("enemyDowns", s.EnemyDowns).
		AddField("enemyKills", s.EnemyKills).
		AddField("squadDowns", s.SquadDowns).
		AddField("squadDeaths", s.SquadDeaths).
		SetTime(ts)
	if s.Commander != "" {
		p.AddTag("commander", s.Commander)
	}
	for team, n := range s.EnemyTeams {
		p.AddField("enemies"+team, n)
	}
	return p
}

// PlayerPoint builds the point of one player row.
func PlayerPoint(run *core.Run, r core.PlayerFight, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementPlayerFight).
		AddTag("run", run.ID).
		AddTag("fight", strconv.Itoa(r.Fight)).
		AddTag("name", r.Name).
		AddTag("profession", r.Profession).
		AddTag("role", r.Role.String()).
		AddField("account", r.Account).
		AddField("group", r.Group).
		AddField("commander", r.Commander).
		AddField("skipped", r.Skipped).
		AddField("activeTimeMs", r.ActiveTimeMS).
		AddField("damage", r.Damage).
		AddField("powerDamage", r.PowerDamage).
		AddField("condiDamage", r.CondiDamage).
		AddField("healing", r.Healing).
		AddField("barrier", r.Barrier).
		AddField("downs", r.Downs).
		AddField("kills", r.Kills).
		AddField("coordinationDamage", r.Coordination).
		AddField("carrionDamage", r.Carrion).
		AddField("chunkDamage5", r.Chunk5).
		AddField("burstDamage5", r.Burst5).
		SetTime(ts)
}

// RecordFight writes the fight point and every row point.
func (b *Backend) RecordFight(_ context.Context, f *engine.FightResult) error {
	if b.run == nil {
		return ErrNoRun
	}
	ts := FightTime(f.Summary, b.run)
	b.ts[f.Summary.Number] = ts

	if err := b.mgr.WritePoint(b.bucket, FightPoint(b.run, f.Summary, ts)); err != nil {
		return err
	}
	for _, r := range f.Rows {
		if err := b.mgr.WritePoint(b.bucket, PlayerPoint(b.run, r, ts)); err != nil {
			return err
		}
	}
	return nil
}

// EndRun writes the high-score tables and flushes.
func (b *Backend) EndRun(_ context.Context, res *engine.Result) error {
	if b.run == nil {
		return ErrNoRun
	}
	for metric, scores := range res.HighScores {
		for i, s := range scores {
			p := influxdb2_write.NewPointWithMeasurement(MeasurementHighScore).
				AddTag("run", b.run.ID).
				AddTag("metric", metric).
				AddTag("rank", strconv.Itoa(i+1)).
				AddField("key", s.Key).
				AddField("value", s.Value).
				SetTime(b.run.StartedAt)
			if err := b.mgr.WritePoint(b.bucket, p); err != nil {
				return err
			}
		}
	}
	return b.mgr.Flush()
}
