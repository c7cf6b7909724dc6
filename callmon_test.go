package callmon

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesNames(t *testing.T) {
	_, err := New("", "svc")
	require.Error(t, err)

	_, err = New("comp", "")
	require.Error(t, err)

	m, err := New("comp", "svc")
	require.NoError(t, err)
	assert.Equal(t, "comp", m.Component())
	assert.Equal(t, "svc", m.Service())
}

func TestObserveSuccessEmitsCounterThenTimer(t *testing.T) {
	rec := &stubRecorder{}
	clock := newStepClock(time.Unix(1000, 0), 250*time.Millisecond)
	m := mustMonitor(t, WithRecorder(rec), WithClock(clock), WithSource("app"))

	op := Observe(m, NoAudit[string](), func(context.Context) (string, error) {
		return "payload", nil
	})

	value, err := op(context.Background())
	require.NoError(t, err)
	require.Equal(t, "payload", value)

	events := rec.recorded()
	require.Len(t, events, 2)

	counter, ok := events[0].(CounterEvent)
	require.True(t, ok, "first event must be the counter")
	assert.Equal(t, "app", counter.Source)
	assert.Equal(t, "comp.svc.undefined.success.count", counter.Metric)

	timer, ok := events[1].(TimerEvent)
	require.True(t, ok, "second event must be the timer")
	assert.Equal(t, "comp.svc.undefined.success.time", timer.Metric)
	assert.Equal(t, 250*time.Millisecond, timer.Duration)
}

func TestObserveIsTransparent(t *testing.T) {
	m := mustMonitor(t)

	opErr := errors.New("boom")
	failing := Observe(m, NoAudit[int](), func(context.Context) (int, error) {
		return 0, opErr
	})
	value, err := failing(context.Background())
	assert.Zero(t, value)
	require.Same(t, opErr, err, "the original error must propagate unchanged")

	type result struct{ n int }
	want := &result{n: 42}
	succeeding := Observe(m, NoAudit[*result](), func(context.Context) (*result, error) {
		return want, nil
	})
	got, err := succeeding(context.Background())
	require.NoError(t, err)
	require.Same(t, want, got)
}

func TestObserveGatewayTimeoutSkipsTimer(t *testing.T) {
	rec := &stubRecorder{}
	m := mustMonitor(t, WithRecorder(rec))

	op := Observe(m, NoAudit[string](), func(context.Context) (string, error) {
		return "", NewUpstreamError(KindGatewayTimeout, "edge timeout")
	})

	_, err := op(context.Background())
	require.Error(t, err)

	events := rec.recorded()
	require.Len(t, events, 1)
	counter, ok := events[0].(CounterEvent)
	require.True(t, ok)
	assert.Equal(t, "comp.svc.undefined.GatewayTimeoutError.count", counter.Metric)
}

func TestObserveFailureWithResponseCode(t *testing.T) {
	rec := &stubRecorder{}
	m := mustMonitor(t, WithRecorder(rec))

	op := Observe(m, NoAudit[string](), func(context.Context) (string, error) {
		return "", UpstreamFromStatusCode(503, "downstream unavailable")
	})

	_, err := op(context.Background())
	require.Error(t, err)

	events := rec.recorded()
	require.Len(t, events, 1, "503 is an untimed failure")
	counter, ok := events[0].(CounterEvent)
	require.True(t, ok)
	assert.Equal(t, "comp.svc.undefined.503.count", counter.Metric)
}

func TestObserveTimedFailureEmitsCounterAndTimer(t *testing.T) {
	rec := &stubRecorder{}
	clock := newStepClock(time.Unix(1000, 0), 10*time.Millisecond)
	m := mustMonitor(t, WithRecorder(rec), WithClock(clock))

	op := Observe(m, NoAudit[string](), func(context.Context) (string, error) {
		return "", UpstreamFromStatusCode(404, "missing")
	})

	_, err := op(context.Background())
	require.Error(t, err)

	events := rec.recorded()
	require.Len(t, events, 2)
	assert.Equal(t, "comp.svc.undefined.404.count", events[0].(CounterEvent).Metric)

	timer := events[1].(TimerEvent)
	assert.Equal(t, "comp.svc.undefined.404.time", timer.Metric)
	assert.Equal(t, 10*time.Millisecond, timer.Duration)
}

func TestObserveAuditOnSuccess(t *testing.T) {
	rec := &stubRecorder{}
	m := mustMonitor(t, WithRecorder(rec), WithSource("app"))

	strategy := AuditStrategy[string]{
		DataOnSuccess: func(value string) map[string]string {
			return map[string]string{"outcome": "ok", "value": value}
		},
		TagsOnSuccess: func(string) map[string]string {
			return map[string]string{"flow": "checkout"}
		},
	}

	header := http.Header{}
	header.Set("User-Agent", "mobile-app/2.1")
	ctx := WithRequestInfo(context.Background(), RequestInfo{
		Header: header,
		URI:    "/v1/orders/123",
	})

	op := Observe(m, strategy, func(context.Context) (string, error) {
		return "order-123", nil
	})
	_, err := op(ctx)
	require.NoError(t, err)

	events := rec.recorded()
	require.Len(t, events, 3)

	assert.Equal(t, "comp.svc.mobile-app/2.1.success.count", events[0].(CounterEvent).Metric)
	assert.Equal(t, "comp.svc.mobile-app/2.1.success.time", events[1].(TimerEvent).Metric)

	audit, ok := events[2].(AuditEvent)
	require.True(t, ok, "audit must be emitted last")
	assert.Equal(t, "app", audit.Source)
	assert.Equal(t, "comp", audit.Component)
	assert.Equal(t, map[string]string{"outcome": "ok", "value": "order-123"}, audit.Data)

	assert.Equal(t, "svc", audit.Tags["service"])
	assert.Equal(t, "/v1/orders/123", audit.Tags["uri"])
	assert.Equal(t, "checkout", audit.Tags["flow"])
	assert.NotEmpty(t, audit.Tags["call_id"])
}

func TestObserveEmptyAuditDataSuppressesAudit(t *testing.T) {
	rec := &stubRecorder{}
	m := mustMonitor(t, WithRecorder(rec))

	strategy := AuditStrategy[string]{
		DataOnSuccess: func(string) map[string]string { return map[string]string{} },
		TagsOnSuccess: func(string) map[string]string {
			return map[string]string{"flow": "checkout"}
		},
	}

	op := Observe(m, strategy, func(context.Context) (string, error) {
		return "ok", nil
	})
	_, err := op(context.Background())
	require.NoError(t, err)

	events := rec.recorded()
	require.Len(t, events, 2, "empty data must suppress the audit event")
	for _, ev := range events {
		_, isAudit := ev.(AuditEvent)
		assert.False(t, isAudit)
	}
}

func TestObserveAuditOnFailure(t *testing.T) {
	rec := &stubRecorder{}
	m := mustMonitor(t, WithRecorder(rec))

	strategy := AuditStrategy[string]{
		DataOnFailure: func(err error) map[string]string {
			return map[string]string{"error": err.Error()}
		},
		TagsOnFailure: func(error) map[string]string {
			return map[string]string{"severity": "high"}
		},
	}

	op := Observe(m, strategy, func(context.Context) (string, error) {
		return "", NewUpstreamError(KindServiceUnavailable, "maintenance")
	})
	_, err := op(context.Background())
	require.Error(t, err)

	events := rec.recorded()
	require.Len(t, events, 2, "untimed failure emits counter and audit only")

	assert.Equal(t, "comp.svc.undefined.ServiceUnavailableError.count", events[0].(CounterEvent).Metric)

	audit, ok := events[1].(AuditEvent)
	require.True(t, ok)
	assert.Contains(t, audit.Data["error"], "maintenance")
	assert.Equal(t, "high", audit.Tags["severity"])
}

func TestObserveStrategyTagsOverrideBaseline(t *testing.T) {
	rec := &stubRecorder{}
	m := mustMonitor(t, WithRecorder(rec))

	strategy := AuditStrategy[string]{
		DataOnSuccess: func(string) map[string]string {
			return map[string]string{"outcome": "ok"}
		},
		TagsOnSuccess: func(string) map[string]string {
			return map[string]string{"service": "renamed"}
		},
	}

	op := Observe(m, strategy, func(context.Context) (string, error) { return "", nil })
	_, err := op(context.Background())
	require.NoError(t, err)

	events := rec.recorded()
	require.Len(t, events, 3)
	audit := events[2].(AuditEvent)
	assert.Equal(t, "renamed", audit.Tags["service"], "strategy tags win on collision")
}

// panickyRecorder panics for the configured event kinds and forwards the
// rest to the wrapped stub.
type panickyRecorder struct {
	stub      *stubRecorder
	onCounter bool
	onTimer   bool
	onAudit   bool
}

func (r *panickyRecorder) Record(ctx context.Context, event Event) {
	switch event.(type) {
	case CounterEvent:
		if r.onCounter {
			panic("counter rejected")
		}
	case TimerEvent:
		if r.onTimer {
			panic("timer rejected")
		}
	case AuditEvent:
		if r.onAudit {
			panic("audit rejected")
		}
	}
	r.stub.Record(ctx, event)
}

func TestObserveRecorderPanicDoesNotSpread(t *testing.T) {
	stub := &stubRecorder{}
	rec := &panickyRecorder{stub: stub, onCounter: true}
	m := mustMonitor(t, WithRecorder(rec))

	strategy := AuditStrategy[string]{
		DataOnSuccess: func(string) map[string]string {
			return map[string]string{"outcome": "ok"}
		},
	}

	op := Observe(m, strategy, func(context.Context) (string, error) {
		return "value", nil
	})

	value, err := op(context.Background())
	require.NoError(t, err, "recorder failure must not surface to the caller")
	require.Equal(t, "value", value)

	events := stub.recorded()
	require.Len(t, events, 2, "timer and audit still emitted after counter panic")
	_, isTimer := events[0].(TimerEvent)
	assert.True(t, isTimer)
	_, isAudit := events[1].(AuditEvent)
	assert.True(t, isAudit)
}

func TestObserveConcurrentCalls(t *testing.T) {
	rec := &stubRecorder{}
	m := mustMonitor(t, WithRecorder(rec))

	op := Observe(m, NoAudit[int](), func(context.Context) (int, error) {
		return 1, nil
	})

	const calls = 32
	var wg sync.WaitGroup
	wg.Add(calls)
	for range calls {
		go func() {
			defer wg.Done()
			_, _ = op(context.Background())
		}()
	}
	wg.Wait()

	require.Len(t, rec.recorded(), 2*calls)
}
