// Package clickhousestorage appends player rows and fights to ClickHouse
// MergeTree tables for cross-run analytics.
package clickhousestorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/pkg/core"
)

var ErrNoRun = errors.New("no run started")

// Conn is the subset of driver.Conn the backend uses.
type Conn interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Close() error
}

// Schema holds the table definitions, created on Init.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS fights (
		run_id String,
		number UInt32,
		file String,
		log_type LowCardinality(String),
		map String,
		time_start DateTime,
		duration_s Float64,
		commander String,
		squad_count UInt32,
		enemy_count UInt32,
		squad_damage Float64,
		enemy_kills Float64,
		squad_deaths Float64
	) ENGINE = MergeTree()
	ORDER BY (run_id, number)`,
	`CREATE TABLE IF NOT EXISTS player_fights (
		run_id String,
		fight UInt32,
		name String,
		profession LowCardinality(String),
		account String,
		role LowCardinality(String),
		party UInt8,
		commander Bool,
		skipped Bool,
		active_time_ms Float64,
		damage Float64,
		power_damage Float64,
		condi_damage Float64,
		downs Float64,
		kills Float64,
		healing Float64,
		barrier Float64,
		chunk_damage_5 Float64,
		burst_damage_5 Float64
	) ENGINE = MergeTree()
	ORDER BY (run_id, fight, name)`,
	`CREATE TABLE IF NOT EXISTS high_scores (
		run_id String,
		metric LowCardinality(String),
		rank UInt8,
		key String,
		value Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (run_id, metric, rank)`,
}

const (
	insertFight       = "INSERT INTO fights"
	insertPlayerFight = "INSERT INTO player_fights"
	insertHighScore   = "INSERT INTO high_scores"
)

// FightValues returns the column values of one fight row.
func FightValues(runID string, s core.FightSummary, ts time.Time) []any {
	return []any{
		runID, uint32(s.Number), s.File, s.LogType, s.Name, ts, s.DurationSeconds(),
		s.Commander, uint32(s.SquadCount), uint32(s.EnemyCount),
		s.SquadDamage, s.EnemyKills, s.SquadDeaths,
	}
}

// PlayerValues returns the column values of one player row.
func PlayerValues(runID string, r core.PlayerFight) []any {
	return []any{
		runID, uint32(r.Fight), r.Name, r.Profession, r.Account, r.Role.String(),
		uint8(r.Group), r.Commander, r.Skipped, r.ActiveTimeMS,
		r.Damage, r.PowerDamage, r.CondiDamage, r.Downs, r.Kills,
		r.Healing, r.Barrier, r.Chunk5, r.Burst5,
	}
}

// Backend implements storage.Backend over a ClickHouse connection.
type Backend struct {
	conn Conn
	run  *core.Run
}

// New opens a connection; the server is contacted on Init.
func New(cfg config.ClickHouseConfig) (*Backend, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	return NewWithConn(conn), nil
}

// NewWithConn wraps an existing connection.
func NewWithConn(conn Conn) *Backend {
	return &Backend{conn: conn}
}

// Init pings the server and creates the tables.
func (b *Backend) Init() error {
	ctx := context.Background()
	if err := b.conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	for _, ddl := range Schema {
		if err := b.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

func (b *Backend) Close() error {
	return b.conn.Close()
}

func (b *Backend) StartRun(_ context.Context, run *core.Run) error {
	b.run = run
	return nil
}

func (b *Backend) send(ctx context.Context, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := b.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %q: %w", query, err)
	}
	for _, r := range rows {
		if err := batch.Append(r...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to %q: %w", query, err)
		}
	}
	return batch.Send()
}

// RecordFight inserts the fight and its rows as two batches.
func (b *Backend) RecordFight(ctx context.Context, f *engine.FightResult) error {
	if b.run == nil {
		return ErrNoRun
	}
	ts := fightTime(f.Summary, b.run)
	if err := b.send(ctx, insertFight, [][]any{FightValues(b.run.ID, f.Summary, ts)}); err != nil {
		return err
	}
	rows := make([][]any, 0, len(f.Rows))
	for _, r := range f.Rows {
		rows = append(rows, PlayerValues(b.run.ID, r))
	}
	return b.send(ctx, insertPlayerFight, rows)
}

// EndRun inserts the high-score tables.
func (b *Backend) EndRun(ctx context.Context, res *engine.Result) error {
	if b.run == nil {
		return ErrNoRun
	}
	var rows [][]any
	for metric, scores := range res.HighScores {
		for i, s := range scores {
			rows = append(rows, []any{b.run.ID, metric, uint8(i + 1), s.Key, s.Value})
		}
	}
	err := b.send(ctx, insertHighScore, rows)
	b.run = nil
	return err
}

var timeLayouts = []string{
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05 -07",
	time.RFC3339,
}

func fightTime(s core.FightSummary, run *core.Run) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s.TimeStart); err == nil {
			return t.UTC()
		}
	}
	return run.StartedAt.UTC()
}
