package callmon

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// Dispatcher decouples event recording from the calling goroutine by
// queueing events to a single worker that forwards them to the wrapped
// recorder. Use it when the downstream recorder cannot guarantee
// non-blocking Record calls.
type Dispatcher struct {
	next EventRecorder

	events    chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher creates a Dispatcher forwarding to next with the given
// queue size. Sizes below 1 default to 64; a nil next discards events.
func NewDispatcher(next EventRecorder, buffer int) *Dispatcher {
	if next == nil {
		next = NoopRecorder{}
	}
	if buffer <= 0 {
		buffer = 64
	}

	d := &Dispatcher{
		next:   next,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.events:
			d.next.Record(context.Background(), event)
		case <-d.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case event := <-d.events:
					d.next.Record(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Record implements EventRecorder. Never blocks; a full queue drops the
// event.
func (d *Dispatcher) Record(_ context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.events <- event:
	default:
		d.dropped.Inc()
	}
}

// Dropped returns the number of events dropped due to a full queue.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Close drains the queue and stops the worker. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
