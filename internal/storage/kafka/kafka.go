// Package kafkastorage publishes the run as a stream of events to a Kafka
// topic. Every message value is a streaming.Envelope keyed by run id, so all
// events of one run land on one partition in order.
package kafkastorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/queue"
	"github.com/eitopstats/topstats/pkg/core"
	"github.com/eitopstats/topstats/pkg/streaming"
)

// DefaultBatchSize is the number of queued messages that triggers a write.
const DefaultBatchSize = 50

var (
	ErrNoRun     = errors.New("no run started")
	ErrNoBrokers = errors.New("no kafka brokers configured")
)

// MessageWriter is the subset of *kafka.Writer the backend uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Backend implements storage.Backend over a Kafka writer.
type Backend struct {
	writer    MessageWriter
	logger    *slog.Logger
	batchSize int
	pending   *queue.Queue[kafka.Message]
	runID     string
	now       func() time.Time
}

// New creates a Kafka backend writing to cfg.Topic.
func New(cfg config.KafkaConfig, logger *slog.Logger) (*Backend, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return NewWithWriter(w, DefaultBatchSize, logger), nil
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w MessageWriter, batchSize int, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Backend{
		writer:    w,
		logger:    logger,
		batchSize: batchSize,
		pending:   queue.New[kafka.Message](),
		now:       time.Now,
	}
}

// Init is a no-op; kafka-go dials lazily on the first write.
func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return b.writer.Close()
}

func (b *Backend) message(msgType string, payload any) (kafka.Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	value, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return kafka.Message{
		Key:     []byte(b.runID),
		Value:   value,
		Time:    b.now(),
		Headers: []kafka.Header{{Key: "type", Value: []byte(msgType)}},
	}, nil
}

func (b *Backend) flush(ctx context.Context) error {
	return b.pending.Batches(b.batchSize, func(msgs []kafka.Message) error {
		if err := b.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write %d messages: %w", len(msgs), err)
		}
		b.logger.Debug("Published run events", "count", len(msgs))
		return nil
	})
}

// StartRun publishes the start event immediately.
func (b *Backend) StartRun(ctx context.Context, run *core.Run) error {
	b.runID = run.ID
	msg, err := b.message(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}
	b.pending.Push(msg)
	return b.flush(ctx)
}

// RecordFight queues the fight and writes once a batch is full.
func (b *Backend) RecordFight(ctx context.Context, f *engine.FightResult) error {
	if b.runID == "" {
		return ErrNoRun
	}
	msg, err := b.message(streaming.TypeFight, streaming.FightPayload{
		RunID:   b.runID,
		Summary: f.Summary,
		Rows:    f.Rows,
	})
	if err != nil {
		return err
	}
	b.pending.Push(msg)
	if b.pending.Len() >= b.batchSize {
		return b.flush(ctx)
	}
	return nil
}

// EndRun publishes the leaderboards after every queued fight.
func (b *Backend) EndRun(ctx context.Context, res *engine.Result) error {
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
	msg, err := b.message(streaming.TypeEndRun, payload)
	if err != nil {
		return err
	}
	b.pending.Push(msg)
	err = b.flush(ctx)
	b.runID = ""
	return err
}
