// Package streaming defines the messages a run streams to a live
// leaderboard server.
package streaming

import (
	"encoding/json"

	"github.com/eitopstats/topstats/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun = "start_run"
	TypeFight    = "fight"
	TypeEndRun   = "end_run"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload announces a run.
type StartRunPayload struct {
	Run *core.Run `json:"run"`
}

// FightPayload carries one folded fight.
type FightPayload struct {
	RunID   string             `json:"runId"`
	Summary core.FightSummary  `json:"summary"`
	Rows    []core.PlayerFight `json:"rows"`
}

// LeaderboardEntry is one high-score line.
type LeaderboardEntry struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// EndRunPayload closes a run with its leaderboards.
type EndRunPayload struct {
	RunID      string                        `json:"runId"`
	LastFight  int                           `json:"lastFight"`
	Players    int                           `json:"players"`
	HighScores map[string][]LeaderboardEntry `json:"highScores"`
}
