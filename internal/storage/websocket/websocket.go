package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/pkg/core"
	"github.com/eitopstats/topstats/pkg/streaming"
)

// ErrNoRun is returned when fights arrive before StartRun.
var ErrNoRun = errors.New("no run started")

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams fights over WebSocket to a live leaderboard server.
type Backend struct {
	conn   *stream
	cfg    Config
	logger *slog.Logger
	runID  string
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn:   newStream(logger),
		cfg:    cfg,
		logger: logger,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartRun announces the run and waits for server ack.
func (b *Backend) StartRun(_ context.Context, run *core.Run) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	b.runID = run.ID
	return b.conn.request(frame{kind: frameRunStart, data: data}, streaming.TypeStartRun, ackTimeout)
}

// RecordFight queues the fight without waiting for the server.
func (b *Backend) RecordFight(_ context.Context, f *engine.FightResult) error {
	if b.runID == "" {
		return ErrNoRun
	}
	data, err := marshalEnvelope(streaming.TypeFight, streaming.FightPayload{
		RunID:   b.runID,
		Summary: f.Summary,
		Rows:    f.Rows,
	})
	if err != nil {
		return err
	}
	b.conn.enqueue(frame{kind: frameRunEvent, data: data})
	return nil
}

// EndRun sends the leaderboards and waits for server ack.
func (b *Backend) EndRun(_ context.Context, res *engine.Result) error {
	if b.runID == "" {
		return ErrNoRun
	}
	payload := streaming.EndRunPayload{
		RunID:      b.runID,
		LastFight:  res.LastFight,
		Players:    len(res.Players),
		HighScores: make(map[string][]streaming.LeaderboardEntry, len(res.HighScores)),
	}
	for metric, scores := range res.HighScores {
		entries := make([]streaming.LeaderboardEntry, 0, len(scores))
		for _, s := range scores {
			entries = append(entries, streaming.LeaderboardEntry{Key: s.Key, Value: s.Value})
		}
		payload.HighScores[metric] = entries
	}
	data, err := marshalEnvelope(streaming.TypeEndRun, payload)
	if err != nil {
		return err
	}
	if n := b.conn.pending(); n > 0 {
		b.logger.Debug("Waiting for queued fights before end_run", "pending", n)
	}
	err = b.conn.request(frame{kind: frameOnce, data: data}, streaming.TypeEndRun, ackTimeout)
	b.conn.forget()
	b.runID = ""

	return err
}
