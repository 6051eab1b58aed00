// Package worker drives a run: it parses log files concurrently and feeds
// them, in file order, through the dispatcher into the engine and the
// storage backends.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/eitopstats/topstats/internal/dispatcher"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/storage"
	"github.com/eitopstats/topstats/pkg/core"
)

// CommandFight folds one parsed fight.
const CommandFight = ":FIGHT:"

const instrumentationName = "github.com/eitopstats/topstats/internal/worker"

// LogParser reads one log file.
type LogParser interface {
	ParseFile(path string) (*core.Log, error)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Engine *engine.Engine
	Parser LogParser
	Logger *slog.Logger
	// Workers bounds the number of files parsed ahead of the fold.
	Workers int
}

// Job is a parsed fight waiting to be folded.
type Job struct {
	File string
	Log  *core.Log
}

// Manager owns the parse pool and the fold handler.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	fightsProcessed  metric.Int64Counter
	playersProcessed metric.Int64Counter
	fightsFailed     metric.Int64Counter
	fightDuration    metric.Float64Histogram

	mu        sync.Mutex
	errs      []error
	lastWrite time.Duration
}

// NewManager creates a new worker manager. Instruments come from the
// global meter provider.
func NewManager(deps Dependencies, backend storage.Backend) (*Manager, error) {
	if deps.Workers < 1 {
		deps.Workers = 1
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	m := &Manager{deps: deps, backend: backend}

	meter := otel.Meter(instrumentationName)
	var err error
	if m.fightsProcessed, err = meter.Int64Counter("topstats.fights.processed",
		metric.WithDescription("Fights folded into the run")); err != nil {
		return nil, fmt.Errorf("creating fights counter: %w", err)
	}
	if m.playersProcessed, err = meter.Int64Counter("topstats.players.processed",
		metric.WithDescription("Squad player lines folded into the run")); err != nil {
		return nil, fmt.Errorf("creating players counter: %w", err)
	}
	if m.fightsFailed, err = meter.Int64Counter("topstats.fights.failed",
		metric.WithDescription("Fights that could not be folded or stored")); err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}
	if m.fightDuration, err = meter.Float64Histogram("topstats.fight.duration_ms",
		metric.WithDescription("Recorded fight length"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return m, nil
}

// RegisterHandlers registers the fold handler. Fights are queued and
// folded by a single goroutine so they keep their order.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CommandFight, m.handleFight,
		dispatcher.Buffered(m.deps.Workers),
		dispatcher.Blocking(),
		dispatcher.Logged(),
		dispatcher.OnError(m.recordError),
	)
}

func (m *Manager) handleFight(e dispatcher.Event) (any, error) {
	job, ok := e.Payload.(Job)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", e.Payload)
	}
	ctx := context.Background()

	res, err := m.deps.Engine.ProcessFight(job.File, job.Log)
	if err != nil {
		m.fightsFailed.Add(ctx, 1)
		return nil, fmt.Errorf("folding %s: %w", job.File, err)
	}
	m.fightsProcessed.Add(ctx, 1)
	m.playersProcessed.Add(ctx, int64(len(res.Rows)))
	m.fightDuration.Record(ctx, res.Summary.DurationMS)

	if m.backend != nil {
		start := time.Now()
		err := m.backend.RecordFight(ctx, res)
		m.mu.Lock()
		m.lastWrite = time.Since(start)
		m.mu.Unlock()
		if err != nil {
			m.fightsFailed.Add(ctx, 1)
			return nil, fmt.Errorf("storing %s: %w", job.File, err)
		}
	}
	return res, nil
}

func (m *Manager) recordError(e dispatcher.Event, err error) {
	m.mu.Lock()
	m.errs = append(m.errs, err)
	m.mu.Unlock()
}

// Errors returns the fold and storage errors collected so far.
func (m *Manager) Errors() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}

// GetLastDBWriteDuration returns how long the last RecordFight took.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastWrite
}

type parsed struct {
	job Job
	err error
}

// Run parses files with up to Workers goroutines and dispatches them in
// order. A file that cannot be parsed aborts the run. Run closes d and
// returns once every dispatched fight has been folded.
func (m *Manager) Run(ctx context.Context, d *dispatcher.Dispatcher, files []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan parsed, len(files))
	for i := range results {
		results[i] = make(chan parsed, 1)
	}
	sem := make(chan struct{}, m.deps.Workers)

	// Slots are taken in file order so the fold never waits on a file
	// that could not start.
	go func() {
		for i, file := range files {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go func(i int, file string) {
				l, err := m.deps.Parser.ParseFile(file)
				results[i] <- parsed{job: Job{File: file, Log: l}, err: err}
			}(i, file)
		}
	}()

	var runErr error
	for i := range files {
		var r parsed
		select {
		case r = <-results[i]:
		case <-ctx.Done():
			runErr = ctx.Err()
		}
		if runErr != nil {
			break
		}
		<-sem
		if r.err != nil {
			runErr = r.err
			break
		}
		if _, err := d.Dispatch(dispatcher.Event{Command: CommandFight, Payload: r.job}); err != nil {
			runErr = err
			break
		}
		m.deps.Logger.Debug("fight queued", "file", r.job.File, "index", i+1, "of", len(files))
	}

	d.Close()
	if runErr != nil {
		return runErr
	}
	return m.Errors()
}
