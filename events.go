package callmon

import (
	"context"
	"strings"
	"time"
)

// Suffixes for derived metric names.
const (
	counterSuffix = "count"
	timerSuffix   = "time"
)

// Event is a single observation emitted by a Monitor: a counter increment,
// a latency sample, or an audit entry.
type Event interface {
	event()
}

// CounterEvent counts one settled call under its derived metric name.
type CounterEvent struct {
	// Source identifies the owning application.
	Source string
	// Metric is the dot-joined name component.service.userAgent.status.count.
	Metric string
}

func (CounterEvent) event() {}

// TimerEvent carries the elapsed duration of one settled call. The metric
// name follows the counter's format with a .time suffix.
type TimerEvent struct {
	Source   string
	Metric   string
	Duration time.Duration
}

func (TimerEvent) event() {}

// AuditEvent carries business data for the audit trail. A Monitor only
// emits one when the call's audit strategy produces non-empty data.
type AuditEvent struct {
	Source    string
	Component string
	Tags      map[string]string
	Data      map[string]string
}

func (AuditEvent) event() {}

// EventRecorder is a pluggable receiver for emitted events. Implementations
// must be non-blocking or very fast; the Monitor records best-effort and
// does not wait for completion. Must be safe for concurrent use.
type EventRecorder interface {
	Record(ctx context.Context, event Event)
}

// metricName joins the name parts with dots. The derivation is
// deterministic and case-preserving; callers own the ASCII hygiene of the
// parts they pass in.
func metricName(component, service, userAgent, status, suffix string) string {
	return strings.Join([]string{component, service, userAgent, status, suffix}, ".")
}
