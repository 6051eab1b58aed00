// Package storage defines the output backends of a run.
package storage

import (
	"context"
	"errors"

	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/pkg/core"
)

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	Init() error
	Close() error

	// StartRun is called once before the first fight.
	StartRun(ctx context.Context, run *core.Run) error
	// RecordFight is called after each fight has been folded.
	RecordFight(ctx context.Context, fight *engine.FightResult) error
	// EndRun receives the finalized aggregates.
	EndRun(ctx context.Context, result *engine.Result) error
}

// Exporter is an optional interface for backends that write files.
type Exporter interface {
	ExportedFiles() []string
}

// Multi fans every call out to several backends. All backends are called
// even when one fails; the errors are joined.
type Multi struct {
	backends []Backend
}

// NewMulti wraps backends.
func NewMulti(backends ...Backend) *Multi {
	return &Multi{backends: backends}
}

// Backends returns the wrapped backends.
func (m *Multi) Backends() []Backend {
	return m.backends
}

func (m *Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m.backends {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Init() error {
	return m.each(func(b Backend) error { return b.Init() })
}

func (m *Multi) Close() error {
	return m.each(func(b Backend) error { return b.Close() })
}

func (m *Multi) StartRun(ctx context.Context, run *core.Run) error {
	return m.each(func(b Backend) error { return b.StartRun(ctx, run) })
}

func (m *Multi) RecordFight(ctx context.Context, fight *engine.FightResult) error {
	return m.each(func(b Backend) error { return b.RecordFight(ctx, fight) })
}

func (m *Multi) EndRun(ctx context.Context, result *engine.Result) error {
	return m.each(func(b Backend) error { return b.EndRun(ctx, result) })
}

// ExportedFiles collects the files of every wrapped Exporter.
func (m *Multi) ExportedFiles() []string {
	var out []string
	for _, b := range m.backends {
		if e, ok := b.(Exporter); ok {
			out = append(out, e.ExportedFiles()...)
		}
	}
	return out
}
