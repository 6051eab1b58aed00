package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ContextProvider is a function that returns dynamic context attributes.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}

// FightContext tracks the fight currently being processed so every log
// line emitted while folding it carries the fight number and file.
type FightContext struct {
	mu   sync.RWMutex
	num  int
	file string
}

// Set marks fight num read from file as current.
func (c *FightContext) Set(num int, file string) {
	c.mu.Lock()
	c.num, c.file = num, file
	c.mu.Unlock()
}

// Clear drops the current fight.
func (c *FightContext) Clear() {
	c.Set(0, "")
}

// Attrs is a ContextProvider.
func (c *FightContext) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.file == "" {
		return nil
	}
	return []slog.Attr{slog.Int("fight", c.num), slog.String("file", c.file)}
}

// WithFightContext wraps logger so records carry the attributes of c.
func WithFightContext(logger *slog.Logger, c *FightContext) *slog.Logger {
	return slog.New(NewContextHandler(logger.Handler(), c.Attrs))
}
