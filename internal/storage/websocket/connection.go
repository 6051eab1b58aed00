package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/eitopstats/topstats/pkg/streaming"
)

const (
	outboxSize   = 10_000
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

type frameKind int

const (
	// frameOnce is written once and never replayed.
	frameOnce frameKind = iota
	// frameRunStart opens a new journal.
	frameRunStart
	// frameRunEvent is appended to the journal.
	frameRunEvent
)

type frame struct {
	kind frameKind
	data []byte
}

// stream owns one WebSocket connection. A single supervisor goroutine
// writes frames and redials on failure. Frames of the current run are
// journaled and replayed in order after a reconnect so the server never
// misses a fight.
type stream struct {
	rawURL string
	secret string
	logger *slog.Logger

	outbox   chan frame
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	conn    *ws.Conn
	journal [][]byte
	waiters map[string]chan struct{}
}

func newStream(logger *slog.Logger) *stream {
	return &stream{
		logger:  logger,
		outbox:  make(chan frame, outboxSize),
		done:    make(chan struct{}),
		waiters: make(map[string]chan struct{}),
	}
}

// open dials the server and starts the supervisor.
func (s *stream) open(rawURL, secret string) error {
	s.rawURL = rawURL
	s.secret = secret

	conn, err := s.dial()
	if err != nil {
		return err
	}
	s.setConn(conn)
	go s.supervise(conn)
	return nil
}

func (s *stream) dial() (*ws.Conn, error) {
	u, err := url.Parse(s.rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", s.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (s *stream) setConn(conn *ws.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *stream) supervise(conn *ws.Conn) {
	for {
		readErr := make(chan error, 1)
		go s.readAcks(conn, readErr)

		err := s.pump(conn, readErr)
		if err == nil {
			return
		}
		s.logger.Warn("WebSocket connection lost", "error", err)
		_ = conn.Close()

		if conn = s.redial(); conn == nil {
			return
		}
	}
}

// pump writes queued frames and idle pings until the connection fails or
// the stream is closed. A nil return means shutdown.
func (s *stream) pump(conn *ws.Conn, readErr <-chan error) error {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-s.done:
			return nil
		case err := <-readErr:
			return err
		case <-ping.C:
			if err := write(conn, ws.PingMessage, nil); err != nil {
				return err
			}
		case f := <-s.outbox:
			s.remember(f)
			if err := write(conn, ws.TextMessage, f.data); err != nil {
				return err
			}
		}
	}
}

func write(conn *ws.Conn, msgType int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(msgType, data)
}

// remember records a run frame before it is written, so a failed write is
// covered by the replay.
func (s *stream) remember(f frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch f.kind {
	case frameRunStart:
		s.journal = [][]byte{f.data}
	case frameRunEvent:
		s.journal = append(s.journal, f.data)
	}
}

// forget drops the journal once the run has ended.
func (s *stream) forget() {
	s.mu.Lock()
	s.journal = nil
	s.mu.Unlock()
}

func (s *stream) readAcks(conn *ws.Conn, errc chan<- error) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			s.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		s.mu.Lock()
		ch, ok := s.waiters[ack.For]
		s.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func backoff(attempt int) time.Duration {
	d := time.Second << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// redial reconnects with exponential backoff and replays the journal.
// It returns nil when the stream is closed or every attempt failed.
func (s *stream) redial() *ws.Conn {
	s.setConn(nil)
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		wait := backoff(attempt)
		s.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", wait)
		select {
		case <-s.done:
			return nil
		case <-time.After(wait):
		}

		conn, err := s.dial()
		if err != nil {
			s.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}
		n, err := s.replay(conn)
		if err != nil {
			s.logger.Warn("Journal replay failed", "attempt", attempt, "error", err)
			_ = conn.Close()
			continue
		}
		s.setConn(conn)
		s.logger.Info("WebSocket reconnected", "attempt", attempt, "replayed", n)
		return conn
	}
	s.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
	return nil
}

func (s *stream) replay(conn *ws.Conn) (int, error) {
	s.mu.Lock()
	frames := slices.Clone(s.journal)
	s.mu.Unlock()
	for _, data := range frames {
		if err := write(conn, ws.TextMessage, data); err != nil {
			return 0, err
		}
	}
	return len(frames), nil
}

// enqueue hands a frame to the supervisor. It never blocks; frames are
// dropped when the outbox is full.
func (s *stream) enqueue(f frame) {
	select {
	case s.outbox <- f:
	default:
		s.logger.Warn("WebSocket outbox full, dropping message")
	}
}

func (s *stream) pending() int {
	return len(s.outbox)
}

// request enqueues a frame and waits for the server to ack ackFor.
func (s *stream) request(f frame, ackFor string, timeout time.Duration) error {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.waiters[ackFor] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.waiters, ackFor)
		s.mu.Unlock()
	}()

	s.enqueue(f)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for ack of %q", ackFor)
	case <-s.done:
		return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
	}
}

// close stops the supervisor and sends a close frame.
func (s *stream) close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()
		if conn == nil {
			return
		}
		_ = conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = conn.Close()
	})
	return err
}
