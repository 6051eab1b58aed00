// Package postgres implements the storage.Backend interface on PostgreSQL.
// When the server cannot be reached it falls back to an in-memory SQLite
// database that is dumped to disk when the run ends.
package postgres

import (
	"context"
	"fmt"

	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/database"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/logging"
	gormstorage "github.com/eitopstats/topstats/internal/storage/gorm"
	"github.com/eitopstats/topstats/pkg/core"
	"github.com/rs/zerolog"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	Config         config.PostgresConfig
	FallbackPath   string
	BatchSize      int
	LogManager     *logging.SlogManager
	DatabaseLogger zerolog.Logger
}

// Backend connects through database.Manager and writes through the GORM
// backend.
type Backend struct {
	deps Dependencies
	mgr  *database.Manager
	gorm *gormstorage.Backend
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
		mgr:  database.NewManager(deps.DatabaseLogger, deps.Config, deps.FallbackPath),
	}
}

// Fallback reports whether the backend is writing to the SQLite fallback.
func (b *Backend) Fallback() bool {
	return b.mgr.ShouldSaveLocal
}

// Init connects, migrates and prepares the GORM writer.
func (b *Backend) Init() error {
	if err := b.mgr.Connect(); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.gorm = gormstorage.New(gormstorage.Dependencies{
		DB:         b.mgr.DB,
		LogManager: b.deps.LogManager,
		BatchSize:  b.deps.BatchSize,
	})
	return b.gorm.Init()
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	return b.mgr.Close()
}

func (b *Backend) StartRun(ctx context.Context, run *core.Run) error {
	return b.gorm.StartRun(ctx, run)
}

func (b *Backend) RecordFight(ctx context.Context, f *engine.FightResult) error {
	return b.gorm.RecordFight(ctx, f)
}

// EndRun writes the aggregates and, on the fallback, dumps the database.
func (b *Backend) EndRun(ctx context.Context, res *engine.Result) error {
	if err := b.gorm.EndRun(ctx, res); err != nil {
		return err
	}
	if err := b.mgr.DumpMemoryToDisk(); err != nil {
		return fmt.Errorf("failed to dump fallback DB: %w", err)
	}
	return nil
}

// ExportedFiles names the fallback dump when one was written.
func (b *Backend) ExportedFiles() []string {
	if !b.mgr.ShouldSaveLocal || b.deps.FallbackPath == "" {
		return nil
	}
	return []string{b.deps.FallbackPath}
}
