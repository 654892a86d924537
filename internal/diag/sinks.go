package diag

import (
	"context"
	"log/slog"
	"sync"

	"github.com/specialistvlad/nodegraph/internal/ctxlog"
)

// LogSink writes diagnostics to the logger in the context, or to Logger
// when it is set.
type LogSink struct {
	Logger *slog.Logger
}

// Publish implements Sink.
func (s LogSink) Publish(ctx context.Context, ds ...Diagnostic) {
	logger := s.Logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}
	for _, d := range ds {
		level := slog.LevelInfo
		switch d.Severity {
		case Warning:
			level = slog.LevelWarn
		case Error:
			level = slog.LevelError
		}
		args := []any{"source", d.Source, "message", d.Message}
		if d.Code != "" {
			args = append(args, "code", d.Code)
		}
		if d.GraphID != "" {
			args = append(args, "graph", d.GraphID)
		}
		if d.NodeID.IsValid() {
			args = append(args, "nodeID", d.NodeID)
		}
		if d.File != "" {
			args = append(args, "file", d.File, "line", d.Line)
		}
		logger.Log(ctx, level, "Diagnostic reported.", args...)
	}
}

// Collector keeps the most recent diagnostics in memory. The zero value
// keeps everything.
type Collector struct {
	// Limit bounds the number of retained diagnostics; older ones are
	// dropped first.
	Limit int

	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector returns a collector retaining at most limit diagnostics.
func NewCollector(limit int) *Collector {
	return &Collector{Limit: limit}
}

// Publish implements Sink.
func (c *Collector) Publish(_ context.Context, ds ...Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, ds...)
	if c.Limit > 0 && len(c.items) > c.Limit {
		c.items = append([]Diagnostic(nil), c.items[len(c.items)-c.Limit:]...)
	}
}

// Items returns a copy of the retained diagnostics, oldest first.
func (c *Collector) Items() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.items...)
}

// Reset drops every retained diagnostic.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
