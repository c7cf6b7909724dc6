// Package callmon instruments outbound calls to third-party services with
// latency timing, outcome counting, and conditional audit emission. The
// wrapper is transparent: a monitored operation resolves to the exact same
// value or error as the unmonitored one, and instrumentation failures
// never reach the business caller.
package callmon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// defaultSource is the application identity stamped on events when no
// explicit source is configured. Resolved once at startup.
var defaultSource = filepath.Base(os.Args[0])

// Operation is a pending unit of work against a remote service.
type Operation[T any] func(ctx context.Context) (T, error)

// Monitor observes calls from one component to one target service and
// emits events through an injected recorder. A Monitor holds no per-call
// state and is safe for concurrent use.
type Monitor struct {
	component string
	service   string

	source   string
	recorder EventRecorder
	clock    Clock
	logger   zerolog.Logger
}

// Option is a functional option for the Monitor.
type Option func(*Monitor)

// WithRecorder sets the event recorder. Defaults to NoopRecorder.
func WithRecorder(recorder EventRecorder) Option {
	return func(m *Monitor) {
		if recorder != nil {
			m.recorder = recorder
		}
	}
}

// WithClock sets the clock used for timing samples. Defaults to the
// system clock.
func WithClock(clock Clock) Option {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithSource sets the application identity stamped as Source on every
// emitted event. Defaults to the process name.
func WithSource(source string) Option {
	return func(m *Monitor) {
		if source != "" {
			m.source = source
		}
	}
}

// WithLogger sets the logger for instrumentation-path failures. Defaults
// to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// New creates a Monitor for calls from the named component to the named
// target service.
func New(component, service string, opts ...Option) (*Monitor, error) {
	if component == "" {
		return nil, errors.New("component name is empty")
	}
	if service == "" {
		return nil, errors.New("target service name is empty")
	}

	m := &Monitor{
		component: component,
		service:   service,
		source:    defaultSource,
		recorder:  NoopRecorder{},
		clock:     SystemClock(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Component returns the caller-side component name.
func (m *Monitor) Component() string { return m.component }

// Service returns the target service name.
func (m *Monitor) Service() string { return m.service }

// Observe wraps op so that each invocation is counted, timed, and audited
// per the strategy. The returned operation resolves to the same value and
// error as op. Request info is read from the invocation context; without
// it the user agent label falls back to "undefined".
func Observe[T any](m *Monitor, strategy AuditStrategy[T], op Operation[T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		info, _ := RequestInfoFrom(ctx)

		start := m.clock.Now()
		value, err := op(ctx)
		elapsed := m.clock.Now().Sub(start)

		status, shouldTime := Classify(err)

		var auditData, auditTags map[string]string
		if err == nil {
			auditData = strategy.successData(value)
			auditTags = strategy.successTags(value)
		} else {
			auditData = strategy.failureData(err)
			auditTags = strategy.failureTags(err)
		}

		m.emit(ctx, settlement{
			callID:     xid.New(),
			info:       info,
			status:     status,
			shouldTime: shouldTime,
			elapsed:    elapsed,
			auditData:  auditData,
			auditTags:  auditTags,
		})

		return value, err
	}
}

// settlement captures everything the Monitor emits about one settled call.
type settlement struct {
	callID     xid.ID
	info       RequestInfo
	status     string
	shouldTime bool
	elapsed    time.Duration
	auditData  map[string]string
	auditTags  map[string]string
}

// emit records the settlement events in order: counter, then timer when
// applicable, then audit when the strategy produced data. Emissions are
// independent; one failing recorder call never suppresses the others.
func (m *Monitor) emit(ctx context.Context, s settlement) {
	userAgent := s.info.UserAgent()

	m.record(ctx, CounterEvent{
		Source: m.source,
		Metric: metricName(m.component, m.service, userAgent, s.status, counterSuffix),
	})

	if s.shouldTime {
		m.record(ctx, TimerEvent{
			Source:   m.source,
			Metric:   metricName(m.component, m.service, userAgent, s.status, timerSuffix),
			Duration: s.elapsed,
		})
	}

	if len(s.auditData) == 0 {
		return
	}
	tags := BaselineAuditTags(m.service, s.info.URI)
	tags["call_id"] = s.callID.String()
	for key, value := range s.auditTags {
		tags[key] = value
	}
	m.record(ctx, AuditEvent{
		Source:    m.source,
		Component: m.component,
		Tags:      tags,
		Data:      s.auditData,
	})
}

// record invokes the recorder, containing any panic so instrumentation
// failures never disturb the caller's outcome.
func (m *Monitor) record(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Debug().
				Interface("panic", r).
				Str("service", m.service).
				Msg("event recorder panicked")
		}
	}()
	m.recorder.Record(ctx, event)
}
