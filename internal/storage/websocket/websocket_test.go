package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eitopstats/topstats/internal/classify"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/storage"
	"github.com/eitopstats/topstats/pkg/core"
	"github.com/eitopstats/topstats/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_run/end_run.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			// Ack start_run and end_run.
			if env.Type == streaming.TypeStartRun || env.Type == streaming.TypeEndRun {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) getSecret() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secret
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndRun(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.StartRun(ctx, &core.Run{ID: "r1"}))
	require.NoError(t, b.EndRun(ctx, &engine.Result{LastFight: 0}))

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartRun, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndRun, msgs[len(msgs)-1].Type)
	assert.Equal(t, "test", ml.getSecret())
}

func TestFightsStreamBeforeEnd(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.StartRun(ctx, &core.Run{ID: "r1"}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, b.RecordFight(ctx, &engine.FightResult{
			Summary: core.FightSummary{Number: i},
			Rows:    []core.PlayerFight{{Fight: i, Name: "Ayla", Profession: "Firebrand"}},
		}))
	}
	require.NoError(t, b.EndRun(ctx, &engine.Result{
		LastFight:  3,
		HighScores: map[string][]classify.Score{"dodgeCount": {{Key: "Ayla|Firebrand|2", Value: 0.4}}},
	}))

	// Give a moment for all messages to arrive at server.
	time.Sleep(50 * time.Millisecond)

	msgs := ml.all()
	require.Len(t, msgs, 5)
	for i, m := range msgs[1:4] {
		assert.Equal(t, streaming.TypeFight, m.Type)
		var p streaming.FightPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		assert.Equal(t, "r1", p.RunID)
		assert.Equal(t, i+1, p.Summary.Number)
	}

	var end streaming.EndRunPayload
	require.NoError(t, json.Unmarshal(msgs[4].Payload, &end))
	assert.Equal(t, 3, end.LastFight)
	assert.Equal(t, 0.4, end.HighScores["dodgeCount"][0].Value)
}

func TestRecordFight_NoRun(t *testing.T) {
	b := New(Config{}, nil)
	assert.ErrorIs(t, b.RecordFight(context.Background(), &engine.FightResult{}), ErrNoRun)
	assert.ErrorIs(t, b.EndRun(context.Background(), &engine.Result{}), ErrNoRun)
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/stream"}, nil)
	assert.Error(t, b.Init())
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: &core.Run{ID: "r9"}})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeStartRun, decoded.Type)

	var p streaming.StartRunPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &p))
	assert.Equal(t, "r9", p.Run.ID)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, maxBackoff, backoff(6))
	assert.Equal(t, maxBackoff, backoff(80))
}

func TestJournal(t *testing.T) {
	s := newStream(slog.Default())
	s.remember(frame{kind: frameRunEvent, data: []byte("stale")})
	s.remember(frame{kind: frameRunStart, data: []byte("start")})
	s.remember(frame{kind: frameRunEvent, data: []byte("f1")})
	s.remember(frame{kind: frameOnce, data: []byte("end")})
	s.remember(frame{kind: frameRunEvent, data: []byte("f2")})
	assert.Equal(t, [][]byte{[]byte("start"), []byte("f1"), []byte("f2")}, s.journal)

	s.forget()
	assert.Empty(t, s.journal)
}
