// Package notify delivers transition events to external sinks without
// blocking the normalization pass.
package notify

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

// DefaultQueueSize is the number of events buffered before new ones are dropped.
const DefaultQueueSize = 256

// Sink receives transition events. Errors are logged and dropped.
type Sink interface {
	Publish(ev logic.TransitionEvent) error
}

// NamedSink is a sink with a name for log lines.
type NamedSink struct {
	Name string
	Sink Sink
}

// Stats reports dispatcher counters since startup.
type Stats struct {
	Queued    uint64
	Delivered uint64
	Dropped   uint64
	Failed    uint64
}

// Dispatcher queues events and delivers them from a single goroutine.
type Dispatcher struct {
	queue chan logic.TransitionEvent
	sinks []NamedSink

	queued    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// New creates a dispatcher with the given queue size and sinks.
func New(queueSize int, sinks ...NamedSink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queue: make(chan logic.TransitionEvent, queueSize),
		sinks: sinks,
	}
}

// Notify enqueues an event. It never blocks; when the queue is full the
// event is dropped.
func (d *Dispatcher) Notify(ev logic.TransitionEvent) {
	select {
	case d.queue <- ev:
		d.queued.Add(1)
	default:
		d.dropped.Add(1)
		log.Printf("notify: queue full, dropping %s %s->%s", ev.DeviceID, ev.From, ev.To)
	}
}

// Run delivers queued events until ctx is done, then delivers whatever is
// still queued and returns.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case ev := <-d.queue:
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev logic.TransitionEvent) {
	for _, s := range d.sinks {
		if err := s.Sink.Publish(ev); err != nil {
			d.failed.Add(1)
			log.Printf("notify: %s delivery failed for %s: %v", s.Name, ev.DeviceID, err)
		}
	}
	d.delivered.Add(1)
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:    d.queued.Load(),
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Failed:    d.failed.Load(),
	}
}
