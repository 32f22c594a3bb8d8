package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log call with its attributes flattened.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordStore is shared by a handler and every handler derived from it with
// WithAttrs, so records logged through logger.With(...) are captured too.
type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler captures log records for assertions.
type BufferedSlogHandler struct {
	*recordStore
	attrs []slog.Attr
	t     *testing.T
}

// NewTestLogger returns a logger writing into a fresh BufferedSlogHandler.
// Records are echoed to t.Logf when t is not nil.
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	handler := &BufferedSlogHandler{recordStore: &recordStore{}, t: t}
	return slog.New(handler), handler
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	h.records = append(h.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// Enabled implements slog.Handler. Every level is captured.
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &BufferedSlogHandler{recordStore: h.recordStore, attrs: merged, t: h.t}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *BufferedSlogHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *BufferedSlogHandler) filter(keep func(LogRecord) bool) []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []LogRecord
	for _, r := range h.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// RecordsWithMessage returns the records whose message equals message.
func (h *BufferedSlogHandler) RecordsWithMessage(message string) []LogRecord {
	return h.filter(func(r LogRecord) bool { return r.Message == message })
}

// ContainsMessage reports whether any record message contains message.
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	return len(h.filter(func(r LogRecord) bool { return strings.Contains(r.Message, message) })) > 0
}

// AssertLogAttr fails t unless some record carries key=value.
func AssertLogAttr(t *testing.T, handler *BufferedSlogHandler, key string, value any) {
	t.Helper()

	matches := handler.filter(func(r LogRecord) bool {
		v, ok := r.Attrs[key]
		return ok && v == value
	})
	if len(matches) == 0 {
		t.Errorf("Expected log attribute not found: %s=%v", key, value)
	}
}

// AssertNoErrors fails t for every error-level record.
func AssertNoErrors(t *testing.T, handler *BufferedSlogHandler) {
	t.Helper()

	for _, r := range handler.filter(func(r LogRecord) bool { return r.Level >= slog.LevelError }) {
		t.Errorf("Unexpected error log: %s %v", r.Message, r.Attrs)
	}
}
