// Package hooks provides production-ready Hook and Logger implementations.
package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.  A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{log: l}
}

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, toAttrs(fields)...)
}

func toAttrs(fields []interface{}) []any { return fields }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each bridge call.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeCall(_ context.Context, info core.CallInfo) {
	h.logger.Debug("bridge.call.start",
		"op", info.Op,
		"backend", info.Backend,
		"input_bytes", info.InputBytes,
	)
}

func (h *LoggingHook) AfterCall(_ context.Context, info core.CallInfo, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("bridge.call.error",
			"op", info.Op,
			"backend", info.Backend,
			"duration_ms", d.Milliseconds(),
			"status", apperrors.StatusOf(err).String(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("bridge.call.done",
		"op", info.Op,
		"backend", info.Backend,
		"duration_ms", d.Milliseconds(),
		"width", info.Width,
		"height", info.Height,
		"output_bytes", info.OutputBytes,
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	callDurationsMs map[string]int64 // cumulative ms per op
	calls           map[string]int64 // call count per op
	errors          map[string]int64 // keyed by op and error kind

	bytesIn  int64
	bytesOut int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		callDurationsMs: make(map[string]int64),
		calls:           make(map[string]int64),
		errors:          make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordCallTime(op string, d interface{ Seconds() float64 }) {
	ms := int64(d.Seconds() * 1000)
	m.mu.Lock()
	m.callDurationsMs[op] += ms
	m.calls[op]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(_ string, in, out int64) {
	atomic.AddInt64(&m.bytesIn, in)
	atomic.AddInt64(&m.bytesOut, out)
}

func (m *InMemoryMetrics) RecordError(op string, kind string) {
	m.mu.Lock()
	m.errors[op+"."+kind]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		CallDurationsMs: make(map[string]int64, len(m.callDurationsMs)),
		Calls:           make(map[string]int64, len(m.calls)),
		Errors:          make(map[string]int64, len(m.errors)),
		BytesIn:         atomic.LoadInt64(&m.bytesIn),
		BytesOut:        atomic.LoadInt64(&m.bytesOut),
	}
	for k, v := range m.callDurationsMs {
		snap.CallDurationsMs[k] = v
	}
	for k, v := range m.calls {
		snap.Calls[k] = v
	}
	for k, v := range m.errors {
		snap.Errors[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	CallDurationsMs map[string]int64
	Calls           map[string]int64
	Errors          map[string]int64 // "<op>.<kind>"
	BytesIn         int64
	BytesOut        int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds bridge calls into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeCall(context.Context, core.CallInfo) {}

func (h *MetricsHook) AfterCall(_ context.Context, info core.CallInfo, d time.Duration, err error) {
	h.collector.RecordCallTime(info.Op, d)
	if err != nil {
		h.collector.RecordError(info.Op, string(apperrors.KindOf(err)))
		return
	}
	h.collector.RecordThroughput(info.Op, int64(info.InputBytes), int64(info.OutputBytes))
}

var (
	_ core.Logger           = (*SlogLogger)(nil)
	_ core.Hook             = (*LoggingHook)(nil)
	_ core.Hook             = (*MetricsHook)(nil)
	_ core.MetricsCollector = (*InMemoryMetrics)(nil)
)
