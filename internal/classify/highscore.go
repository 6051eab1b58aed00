package classify

import (
	"sort"
	"sync"
)

// TopN is the size of every leaderboard.
const TopN = 5

// Score is one leaderboard entry.
type Score struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// HighScores keeps the TopN highest values per metric.
type HighScores struct {
	mu     sync.Mutex
	boards map[string][]Score
}

// NewHighScores returns empty leaderboards.
func NewHighScores() *HighScores {
	return &HighScores{boards: make(map[string][]Score)}
}

// Update offers value for key on metric. When the board is full the value
// must beat the current minimum, which is then evicted. It reports whether
// the value was kept.
func (h *HighScores) Update(metric, key string, value float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	board := h.boards[metric]
	if len(board) < TopN {
		h.boards[metric] = append(board, Score{Key: key, Value: value})
		return true
	}

	low := 0
	for i := range board {
		if board[i].Value < board[low].Value {
			low = i
		}
	}
	if value <= board[low].Value {
		return false
	}
	board[low] = Score{Key: key, Value: value}
	return true
}

// Top returns metric's entries, highest first. Ties are ordered by key.
func (h *HighScores) Top(metric string) []Score {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := append([]Score(nil), h.boards[metric]...)
	sortScores(out)
	return out
}

// Metrics returns every metric with at least one entry, sorted.
func (h *HighScores) Metrics() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.boards))
	for m := range h.boards {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Snapshot copies every board, each sorted highest first.
func (h *HighScores) Snapshot() map[string][]Score {
	out := make(map[string][]Score)
	for _, m := range h.Metrics() {
		out[m] = h.Top(m)
	}
	return out
}

// Merge offers every entry of other to h.
func (h *HighScores) Merge(other *HighScores) {
	for metric, scores := range other.Snapshot() {
		for _, s := range scores {
			h.Update(metric, s.Key, s.Value)
		}
	}
}

func sortScores(s []Score) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Value != s[j].Value {
			return s[i].Value > s[j].Value
		}
		return s[i].Key < s[j].Key
	})
}
