package callmon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubRecorder collects events in emission order for assertions.
type stubRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *stubRecorder) Record(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *stubRecorder) recorded() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// stepClock advances a fixed step on every Now call, making elapsed
// durations deterministic.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{now: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

// mustMonitor creates a Monitor for the canonical test names.
func mustMonitor(t *testing.T, opts ...Option) *Monitor {
	t.Helper()

	m, err := New("comp", "svc", opts...)
	require.NoError(t, err)
	return m
}
