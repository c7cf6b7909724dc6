package callmon

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// NoopRecorder discards every event.
type NoopRecorder struct{}

// Record implements EventRecorder.
func (NoopRecorder) Record(context.Context, Event) {}

// ChannelRecorder hands events off to a buffered channel without ever
// blocking the recording caller. Overflow is dropped and counted.
type ChannelRecorder struct {
	events  chan Event
	dropped atomic.Uint64
}

// NewChannelRecorder creates a ChannelRecorder with the given buffer size.
// Sizes below 1 default to 1.
func NewChannelRecorder(buffer int) *ChannelRecorder {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelRecorder{events: make(chan Event, buffer)}
}

// Record implements EventRecorder. A full buffer drops the event.
func (r *ChannelRecorder) Record(_ context.Context, event Event) {
	select {
	case r.events <- event:
	default:
		r.dropped.Inc()
	}
}

// Events returns the receive side of the hand-off channel.
func (r *ChannelRecorder) Events() <-chan Event { return r.events }

// Dropped returns the number of events dropped due to a full buffer.
func (r *ChannelRecorder) Dropped() uint64 { return r.dropped.Load() }

// LogRecorder writes events as structured log lines.
type LogRecorder struct {
	logger zerolog.Logger
}

// NewLogRecorder creates a LogRecorder writing through the given logger.
func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// auditPayload is the serialized form of an audit event's maps.
type auditPayload struct {
	Tags map[string]string `json:"tags,omitempty"`
	Data map[string]string `json:"data,omitempty"`
}

// Record implements EventRecorder.
func (r *LogRecorder) Record(_ context.Context, event Event) {
	switch ev := event.(type) {
	case CounterEvent:
		r.logger.Info().
			Str("source", ev.Source).
			Str("metric", ev.Metric).
			Msg("counter")
	case TimerEvent:
		r.logger.Info().
			Str("source", ev.Source).
			Str("metric", ev.Metric).
			Dur("duration", ev.Duration).
			Msg("timer")
	case AuditEvent:
		entry := r.logger.Info().
			Str("source", ev.Source).
			Str("component", ev.Component)
		if payload, err := sonic.Marshal(auditPayload{Tags: ev.Tags, Data: ev.Data}); err == nil {
			entry = entry.RawJSON("audit", payload)
		}
		entry.Msg("audit")
	}
}
