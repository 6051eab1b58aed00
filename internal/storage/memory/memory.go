// Package memory keeps a run in memory and exports it to files when the run
// ends.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/pkg/core"
)

// ErrNoRun is returned when fights arrive before StartRun.
var ErrNoRun = errors.New("no run started")

// Backend stores fight summaries in memory and exports the finalized run
type Backend struct {
	cfg config.MemoryConfig
	now func() time.Time

	run    *core.Run
	fights []core.FightSummary
	rows   int

	exported []string
	mu       sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
		now: time.Now,
	}
}

// Init validates the output settings
func (b *Backend) Init() error {
	switch b.cfg.Format {
	case "", FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unknown output format: %s", b.cfg.Format)
	}
	if b.cfg.CompressOutput {
		switch b.cfg.Compression {
		case "", CompressionGzip, CompressionLZ4:
		default:
			return fmt.Errorf("unknown compression: %s", b.cfg.Compression)
		}
	}
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run, dropping any previous one
func (b *Backend) StartRun(_ context.Context, run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.fights = nil
	b.rows = 0
	b.exported = nil
	return nil
}

// RecordFight keeps the summary of a folded fight
func (b *Backend) RecordFight(_ context.Context, f *engine.FightResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.fights = append(b.fights, f.Summary)
	b.rows += len(f.Rows)
	return nil
}

// EndRun writes the fight list and the full aggregate export
func (b *Backend) EndRun(_ context.Context, res *engine.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	return b.export(res)
}

// Fights returns the recorded fight summaries.
func (b *Backend) Fights() []core.FightSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.FightSummary, len(b.fights))
	copy(out, b.fights)
	return out
}

// ExportedFiles returns the paths written by the last EndRun.
func (b *Backend) ExportedFiles() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.exported))
	copy(out, b.exported)
	return out
}
