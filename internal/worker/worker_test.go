package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eitopstats/topstats/internal/dispatcher"
	"github.com/eitopstats/topstats/internal/dps"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/storage"
	"github.com/eitopstats/topstats/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) { l.add(msg) }
func (l *mockLogger) Info(msg string, keysAndValues ...any) { l.add(msg) }
func (l *mockLogger) Error(msg string, keysAndValues ...any) { l.add(msg) }

func (l *mockLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockParser returns canned logs. Files listed in slow are delayed so
// later files finish parsing first.
type mockParser struct {
	logs map[string]*core.Log
	fail map[string]error
	slow map[string]time.Duration
}

func (p *mockParser) ParseFile(path string) (*core.Log, error) {
	if d, ok := p.slow[path]; ok {
		time.Sleep(d)
	}
	if err, ok := p.fail[path]; ok {
		return nil, err
	}
	l, ok := p.logs[path]
	if !ok {
		return nil, fmt.Errorf("no such file %s", path)
	}
	return l, nil
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu     sync.Mutex
	fights []int
	files  []string
	fail   error
}

func (b *mockBackend) Init() error { return nil }
func (b *mockBackend) Close() error { return nil }
func (b *mockBackend) StartRun(context.Context, *core.Run) error { return nil }
func (b *mockBackend) EndRun(context.Context, *engine.Result) error { return nil }

func (b *mockBackend) RecordFight(_ context.Context, f *engine.FightResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fights = append(b.fights, f.Summary.Number)
	b.files = append(b.files, f.Summary.File)
	return b.fail
}

func fightLog(name string) *core.Log {
	return &core.Log{
		FightName:  "Detailed WvW - " + name,
		DurationMS: 5000,
		Players: []core.Player{{
			Name:        "Ayla",
			Profession:  "Firebrand",
			Group:       1,
			ActiveTimes: []float64{5000},
			DpsAll:      []core.Stats{{"damage": 100}},
		}},
	}
}

func newTestManager(t *testing.T, p LogParser, backend storage.Backend, workers int) (*Manager, *engine.Engine, *dispatcher.Dispatcher) {
	t.Helper()
	eng := engine.New(engine.Config{DPS: dps.Config{SplitByRole: true}}, slog.Default(), nil, nil)
	m, err := NewManager(Dependencies{Engine: eng, Parser: p, Workers: workers}, backend)
	require.NoError(t, err)
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	m.RegisterHandlers(d)
	return m, eng, d
}

func TestRun_FoldsInFileOrder(t *testing.T) {
	files := []string{"a.json", "b.json", "c.json", "d.json"}
	p := &mockParser{
		logs: map[string]*core.Log{},
		slow: map[string]time.Duration{"a.json": 30 * time.Millisecond, "b.json": 10 * time.Millisecond},
	}
	for _, f := range files {
		p.logs[f] = fightLog(f)
	}
	backend := &mockBackend{}
	m, eng, d := newTestManager(t, p, backend, 4)

	require.NoError(t, m.Run(context.Background(), d, files))

	assert.Equal(t, []int{1, 2, 3, 4}, backend.fights)
	assert.Equal(t, files, backend.files)
	assert.Equal(t, 4, eng.Fights())

	res, err := eng.Finalize()
	require.NoError(t, err)
	require.Len(t, res.Fights, 4)
	assert.Equal(t, "a.json", res.Fights[0].File)
}

func TestRun_ParseErrorAbortsRun(t *testing.T) {
	errBroken := errors.New("broken.json: invalid character")
	p := &mockParser{
		logs: map[string]*core.Log{"a.json": fightLog("a")},
		fail: map[string]error{"broken.json": errBroken},
	}
	m, eng, d := newTestManager(t, p, &mockBackend{}, 2)

	err := m.Run(context.Background(), d, []string{"a.json", "broken.json", "c.json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBroken))
	assert.Equal(t, 1, eng.Fights())
}

func TestRun_BackendErrorsAreCollected(t *testing.T) {
	errDown := errors.New("backend down")
	p := &mockParser{logs: map[string]*core.Log{"a.json": fightLog("a"), "b.json": fightLog("b")}}
	backend := &mockBackend{fail: errDown}
	m, eng, d := newTestManager(t, p, backend, 1)

	err := m.Run(context.Background(), d, []string{"a.json", "b.json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDown))
	assert.Contains(t, err.Error(), "storing a.json")
	assert.Equal(t, 2, eng.Fights())
}

func TestRun_Cancelled(t *testing.T) {
	p := &mockParser{
		logs: map[string]*core.Log{"a.json": fightLog("a")},
		slow: map[string]time.Duration{"a.json": 50 * time.Millisecond},
	}
	m, _, d := newTestManager(t, p, &mockBackend{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Run(ctx, d, []string{"a.json"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoFiles(t *testing.T) {
	m, eng, d := newTestManager(t, &mockParser{}, &mockBackend{}, 0)

	require.NoError(t, m.Run(context.Background(), d, nil))
	assert.Equal(t, 0, eng.Fights())
	assert.Equal(t, 1, m.deps.Workers)
}

func TestHandleFight_UnexpectedPayload(t *testing.T) {
	m, _, _ := newTestManager(t, &mockParser{}, nil, 1)

	_, err := m.handleFight(dispatcher.Event{Command: CommandFight, Payload: "not a job"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected payload")
}

func TestHandleFight_NilBackend(t *testing.T) {
	m, eng, _ := newTestManager(t, &mockParser{}, nil, 1)

	res, err := m.handleFight(dispatcher.Event{Payload: Job{File: "a.json", Log: fightLog("a")}})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, 1, eng.Fights())
	assert.Equal(t, time.Duration(0), m.GetLastDBWriteDuration())
}
