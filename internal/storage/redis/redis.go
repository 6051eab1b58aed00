// Package redisstorage keeps live leaderboards of a run in Redis sorted sets.
package redisstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/pkg/core"
)

// ErrNoRun is returned when fights arrive before StartRun.
var ErrNoRun = errors.New("no run started")

// Keys builds the key names of one run.
type Keys struct {
	Prefix string
	RunID  string
}

func (k Keys) base() string {
	if k.Prefix == "" {
		return "run:" + k.RunID
	}
	return k.Prefix + ":run:" + k.RunID
}

// Latest holds the id of the most recent run.
func (k Keys) Latest() string {
	if k.Prefix == "" {
		return "latest"
	}
	return k.Prefix + ":latest"
}

// Run is the hash with the run metadata.
func (k Keys) Run() string { return k.base() }

// Fight is the hash of one fight summary.
func (k Keys) Fight(n int) string { return k.base() + ":fight:" + strconv.Itoa(n) }

// Damage is the running squad damage board.
func (k Keys) Damage() string { return k.base() + ":damage" }

// Kills is the running kill board.
func (k Keys) Kills() string { return k.base() + ":kills" }

// HighScore is the board of one high-score metric.
func (k Keys) HighScore(metric string) string { return k.base() + ":hs:" + metric }

// Member is the sorted-set member of a player row.
func Member(r core.PlayerFight) string {
	return r.Name + "|" + r.Profession
}

// FightFields flattens a summary into hash fields.
func FightFields(s core.FightSummary) (map[string]any, error) {
	teams, err := json.Marshal(s.EnemyTeams)
	if err != nil {
		return nil, fmt.Errorf("marshal enemy teams: %w", err)
	}
	return map[string]any{
		"file":        s.File,
		"logType":     s.LogType,
		"map":         s.Name,
		"timeStart":   s.TimeStart,
		"timeEnd":     s.TimeEnd,
		"durationS":   s.DurationSeconds(),
		"commander":   s.Commander,
		"squadCount":  s.SquadCount,
		"enemyCount":  s.EnemyCount,
		"enemyTeams":  string(teams),
		"squadDamage": s.SquadDamage,
		"enemyKills":  s.EnemyKills,
		"squadDeaths": s.SquadDeaths,
	}, nil
}

// Backend implements storage.Backend over a Redis client.
type Backend struct {
	client redis.UniversalClient
	prefix string
	keys   *Keys
}

// New creates a Redis backend from configuration.
func New(cfg config.RedisConfig) *Backend {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg.KeyPrefix)
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

// Init checks the server is reachable.
func (b *Backend) Init() error {
	if err := b.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) StartRun(ctx context.Context, run *core.Run) error {
	keys := &Keys{Prefix: b.prefix, RunID: run.ID}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keys.Run(),
			"startedAt", run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			"inputDir", run.InputDir,
			"guild", run.GuildName,
			"files", len(run.Files),
			"lastFight", 0,
		)
		pipe.Set(ctx, keys.Latest(), run.ID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	b.keys = keys
	return nil
}

// RecordFight stores the summary and bumps the running boards.
func (b *Backend) RecordFight(ctx context.Context, f *engine.FightResult) error {
	if b.keys == nil {
		return ErrNoRun
	}
	fields, err := FightFields(f.Summary)
	if err != nil {
		return err
	}
	_, err = b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.keys.Fight(f.Summary.Number), fields)
		pipe.HSet(ctx, b.keys.Run(), "lastFight", f.Summary.Number)
		for _, r := range f.Rows {
			if r.Skipped {
				continue
			}
			pipe.ZIncrBy(ctx, b.keys.Damage(), r.Damage, Member(r))
			if r.Kills > 0 {
				pipe.ZIncrBy(ctx, b.keys.Kills(), r.Kills, Member(r))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record fight %d: %w", f.Summary.Number, err)
	}
	return nil
}

// EndRun replaces the high-score boards with the final tables.
func (b *Backend) EndRun(ctx context.Context, res *engine.Result) error {
	if b.keys == nil {
		return ErrNoRun
	}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for metric, scores := range res.HighScores {
			key := b.keys.HighScore(metric)
			pipe.Del(ctx, key)
			if len(scores) == 0 {
				continue
			}
			members := make([]redis.Z, 0, len(scores))
			for _, s := range scores {
				members = append(members, redis.Z{Score: s.Value, Member: s.Key})
			}
			pipe.ZAdd(ctx, key, members...)
		}
		pipe.HSet(ctx, b.keys.Run(), "lastFight", res.LastFight, "players", len(res.Players), "sanitized", res.Sanitized)
		return nil
	})
	b.keys = nil
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	return nil
}
