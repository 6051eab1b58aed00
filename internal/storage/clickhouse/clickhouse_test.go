package clickhousestorage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eitopstats/topstats/internal/classify"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/storage"
	"github.com/eitopstats/topstats/pkg/core"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*Backend)(nil)
	_ Conn            = (driver.Conn)(nil)
)

// fakeBatch overrides the methods the backend calls; the embedded nil
// interface panics on anything else.
type fakeBatch struct {
	driver.Batch
	conn    *fakeConn
	query   string
	rows    [][]any
	aborted bool
}

func (b *fakeBatch) Append(v ...any) error {
	if b.conn.appendErr != nil {
		return b.conn.appendErr
	}
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Abort() error {
	b.aborted = true
	return nil
}

func (b *fakeBatch) Send() error {
	b.conn.sent[b.query] = append(b.conn.sent[b.query], b.rows...)
	return nil
}

type fakeConn struct {
	pingErr   error
	appendErr error
	execs     []string
	sent      map[string][][]any
	batches   []*fakeBatch
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{sent: map[string][][]any{}}
}

func (c *fakeConn) Ping(context.Context) error { return c.pingErr }

func (c *fakeConn) Exec(_ context.Context, query string, _ ...any) error {
	c.execs = append(c.execs, query)
	return nil
}

func (c *fakeConn) PrepareBatch(_ context.Context, query string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	b := &fakeBatch{conn: c, query: query}
	c.batches = append(c.batches, b)
	return b, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

var run = &core.Run{ID: "r1", StartedAt: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)}

func TestInit(t *testing.T) {
	c := newFakeConn()
	require.NoError(t, NewWithConn(c).Init())
	require.Len(t, c.execs, len(Schema))
	assert.Contains(t, c.execs[0], "CREATE TABLE IF NOT EXISTS fights")
	assert.Contains(t, c.execs[1], "CREATE TABLE IF NOT EXISTS player_fights")
	assert.Contains(t, c.execs[2], "CREATE TABLE IF NOT EXISTS high_scores")
}

func TestInit_PingFails(t *testing.T) {
	c := newFakeConn()
	c.pingErr = errors.New("connection refused")
	assert.Error(t, NewWithConn(c).Init())
	assert.Empty(t, c.execs)
}

func TestRun(t *testing.T) {
	c := newFakeConn()
	b := NewWithConn(c)
	ctx := context.Background()

	require.NoError(t, b.StartRun(ctx, run))
	require.NoError(t, b.RecordFight(ctx, &engine.FightResult{
		Summary: core.FightSummary{Number: 1, TimeStart: "2024-03-01 21:15:00 +01:00"},
		Rows: []core.PlayerFight{
			{Fight: 1, Name: "Ayla", Profession: "Firebrand", Role: core.RoleSupport},
			{Fight: 1, Name: "Bram", Profession: "Reaper", Role: core.RoleDPS, Damage: 3000},
		},
	}))
	require.NoError(t, b.EndRun(ctx, &engine.Result{
		HighScores: map[string][]classify.Score{"dodgeCount": {{Key: "Ayla|Firebrand|1", Value: 0.5}, {Key: "Bram|Reaper|1", Value: 0.2}}},
	}))

	require.Len(t, c.sent[insertFight], 1)
	assert.Equal(t, time.Date(2024, 3, 1, 20, 15, 0, 0, time.UTC), c.sent[insertFight][0][5])

	players := c.sent[insertPlayerFight]
	require.Len(t, players, 2)
	assert.Equal(t, "Bram", players[1][2])
	assert.Equal(t, "DPS", players[1][5])
	assert.Equal(t, 3000.0, players[1][10])

	scores := c.sent[insertHighScore]
	require.Len(t, scores, 2)
	assert.Equal(t, uint8(1), scores[0][2])
	assert.Equal(t, uint8(2), scores[1][2])

	require.NoError(t, b.Close())
	assert.True(t, c.closed)
}

func TestRecordFight_AppendFailureAborts(t *testing.T) {
	c := newFakeConn()
	c.appendErr = errors.New("bad column")
	b := NewWithConn(c)
	require.NoError(t, b.StartRun(context.Background(), run))

	err := b.RecordFight(context.Background(), &engine.FightResult{Summary: core.FightSummary{Number: 1}})
	require.Error(t, err)
	require.Len(t, c.batches, 1)
	assert.True(t, c.batches[0].aborted)
}

func TestNoRun(t *testing.T) {
	b := NewWithConn(newFakeConn())
	assert.ErrorIs(t, b.RecordFight(context.Background(), &engine.FightResult{}), ErrNoRun)
	assert.ErrorIs(t, b.EndRun(context.Background(), &engine.Result{}), ErrNoRun)
}

func TestFightTime_Fallback(t *testing.T) {
	assert.Equal(t, run.StartedAt, fightTime(core.FightSummary{TimeStart: "soon"}, run))
}
