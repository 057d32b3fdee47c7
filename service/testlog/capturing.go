package testlog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// CapturedRecord is a log record, with the attributes inherited from the logger it was emitted by.
type CapturedRecord struct {
	slog.Record
	Inherited []slog.Attr
}

// AttrValue returns the value of the first attribute with the given key.
func (r *CapturedRecord) AttrValue(key string) (v slog.Value, ok bool) {
	r.Record.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			v, ok = a.Value, true
			return false
		}
		return true
	})
	if ok {
		return
	}
	for _, a := range r.Inherited {
		if a.Key == key {
			return a.Value, true
		}
	}
	return
}

type capturedLogs struct {
	mu   sync.Mutex
	recs []*CapturedRecord
}

// CapturingHandler captures all log records and forwards them to a delegate.
type CapturingHandler struct {
	handler slog.Handler
	logs    *capturedLogs
	attrs   []slog.Attr
}

func WrapCaptureLogger(h slog.Handler) slog.Handler {
	return &CapturingHandler{handler: h, logs: new(capturedLogs)}
}

// CaptureLogger returns a test logger, and the handler that records everything it logs.
func CaptureLogger(t Testing, level slog.Level) (log.Logger, *CapturingHandler) {
	var ch *CapturingHandler
	logger := LoggerWithHandlerMod(t, level, func(h slog.Handler) slog.Handler {
		ch = WrapCaptureLogger(h).(*CapturingHandler)
		return ch
	})
	return logger, ch
}

func (c *CapturingHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return c.handler.Enabled(ctx, lvl)
}

func (c *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	c.logs.mu.Lock()
	c.logs.recs = append(c.logs.recs, &CapturedRecord{Record: r.Clone(), Inherited: c.attrs})
	c.logs.mu.Unlock()
	return c.handler.Handle(ctx, r)
}

func (c *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	inherited := make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	inherited = append(inherited, c.attrs...)
	inherited = append(inherited, attrs...)
	return &CapturingHandler{handler: c.handler.WithAttrs(attrs), logs: c.logs, attrs: inherited}
}

func (c *CapturingHandler) WithGroup(name string) slog.Handler {
	return &CapturingHandler{handler: c.handler.WithGroup(name), logs: c.logs, attrs: c.attrs}
}

// FindLogs returns all captured records with the given message and level.
func (c *CapturingHandler) FindLogs(lvl slog.Level, msg string) []*CapturedRecord {
	c.logs.mu.Lock()
	defer c.logs.mu.Unlock()
	var out []*CapturedRecord
	for _, r := range c.logs.recs {
		if r.Level == lvl && r.Message == msg {
			out = append(out, r)
		}
	}
	return out
}

// Clear drops all captured records.
func (c *CapturingHandler) Clear() {
	c.logs.mu.Lock()
	defer c.logs.mu.Unlock()
	c.logs.recs = nil
}
