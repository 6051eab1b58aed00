// Package gormstorage implements the storage.Backend interface over any GORM
// dialect. Fight rows are queued and written in batched transactions; the
// run-level aggregates are written once when the run ends.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/eitopstats/topstats/internal/database"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/logging"
	"github.com/eitopstats/topstats/internal/model"
	"github.com/eitopstats/topstats/internal/model/convert"
	"github.com/eitopstats/topstats/internal/queue"
	"github.com/eitopstats/topstats/pkg/core"

	"gorm.io/gorm"
)

// DefaultBatchSize is the number of queued rows that triggers a write.
const DefaultBatchSize = 500

var (
	// ErrNoDB is returned by Init when no connection was injected.
	ErrNoDB = errors.New("no database connection")
	// ErrNoRun is returned when fights arrive before StartRun.
	ErrNoRun = errors.New("no run started")
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	BatchSize  int
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Fights       *queue.Queue[model.Fight]
	PlayerFights *queue.Queue[model.PlayerFight]
}

func newQueues() *queues {
	return &queues{
		Fights:       queue.New[model.Fight](),
		PlayerFights: queue.New[model.PlayerFight](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues
	runID  atomic.Uint64
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// RunID returns the database id of the current run, 0 before StartRun.
func (b *Backend) RunID() uint {
	return uint(b.runID.Load())
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (b *Backend) Close() error {
	return nil
}

// StartRun inserts the run row.
func (b *Backend) StartRun(ctx context.Context, run *core.Run) error {
	gormRun := convert.CoreToRun(run)
	if err := b.deps.DB.WithContext(ctx).Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	b.runID.Store(uint64(gormRun.ID))
	return nil
}

// RecordFight queues the fight and its player rows, writing once a batch
// is full.
func (b *Backend) RecordFight(ctx context.Context, f *engine.FightResult) error {
	runID := b.RunID()
	if runID == 0 {
		return ErrNoRun
	}
	b.queues.Fights.Push(convert.CoreToFight(runID, f.Summary))
	b.queues.PlayerFights.Push(convert.CoreToPlayerFights(runID, f.Rows)...)

	if b.queues.PlayerFights.Len() < b.deps.BatchSize {
		return nil
	}
	return b.flush(ctx)
}

// flush writes every queued row.
func (b *Backend) flush(ctx context.Context) error {
	db := b.deps.DB.WithContext(ctx)
	log := b.deps.LogManager.WriteLog
	if err := writeQueue(db, b.queues.Fights, "fights", b.deps.BatchSize, log); err != nil {
		return err
	}
	return writeQueue(db, b.queues.PlayerFights, "player fights", b.deps.BatchSize, log)
}

// EndRun flushes the queues and writes the aggregates, derived stats and
// high scores of the run in one transaction.
func (b *Backend) EndRun(ctx context.Context, res *engine.Result) error {
	runID := b.RunID()
	if runID == 0 {
		return ErrNoRun
	}
	if err := b.flush(ctx); err != nil {
		return err
	}

	aggregates := convert.ScopesToPlayerAggregates(runID, res.Aggregates)
	derived := convert.TableToDerivedStats(runID, res.Derived)
	scores := convert.HighScoresToModel(runID, res.HighScores)

	return b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(aggregates) > 0 {
			if err := tx.CreateInBatches(&aggregates, b.deps.BatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert player aggregates: %w", err)
			}
		}
		if len(derived) > 0 {
			if err := tx.CreateInBatches(&derived, b.deps.BatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert derived stats: %w", err)
			}
		}
		if len(scores) > 0 {
			if err := tx.Create(&scores).Error; err != nil {
				return fmt.Errorf("failed to insert high scores: %w", err)
			}
		}
		err := tx.Model(&model.Run{}).Where("id = ?", runID).Updates(map[string]any{
			"last_fight": res.LastFight,
			"sanitized":  res.Sanitized,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update run: %w", err)
		}
		return nil
	})
}

// writeQueue writes all items from a queue to the database, one transaction
// per batch. Items of a failed batch go back on the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, size int, log func(string, string, string)) error {
	if q.Empty() {
		return nil
	}
	return q.Batches(size, func(items []T) error {
		tx := db.Begin()
		if err := tx.Create(&items).Error; err != nil {
			log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
			tx.Rollback()
			return fmt.Errorf("failed to insert %s: %w", name, err)
		}
		return tx.Commit().Error
	})
}
