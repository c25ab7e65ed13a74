package mqtt

import (
	"context"
	"sync/atomic"
)

// Event is one inbound broker message: a concrete topic and its raw payload.
//
// Breezer payloads are short ASCII decimals, so the payload is carried as a
// string rather than raw bytes.
type Event struct {
	Topic   string
	Payload string
}

// Relay is the bounded, ordered hand-off queue between the paho network
// callback (producer) and the application consumer loop.
//
// The producer must never block: when the queue is at capacity, Push drops
// the incoming event and counts it. Arrival order of accepted events is
// preserved by the underlying channel.
//
// Concurrency contract: exactly one producer (the network callback) and one
// consumer (Run) may operate concurrently. Dropped and Len are safe from
// any goroutine.
type Relay struct {
	events  chan Event
	dropped atomic.Uint64
	done    chan struct{}
}

// NewRelay creates a relay with the given queue capacity.
func NewRelay(buffer int) *Relay {
	if buffer < 1 {
		buffer = 1
	}
	return &Relay{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Push enqueues an event without blocking.
//
// Returns false if the queue was at capacity and the event was dropped.
// There is no redelivery for dropped events; the device's next retained or
// periodic publish is the recovery path.
func (r *Relay) Push(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Run consumes events in arrival order and hands each to dispatch.
//
// It exits when ctx is cancelled: the event currently being dispatched is
// allowed to finish, but no new event is started. Run closes Done() on
// exit and must be called at most once.
func (r *Relay) Run(ctx context.Context, dispatch func(Event)) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			// Re-check cancellation so a buffered backlog cannot delay exit.
			select {
			case <-ctx.Done():
				return
			default:
			}
			dispatch(ev)
		}
	}
}

// Done returns a channel that is closed when the consumer loop has exited.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

// Dropped returns the number of events rejected because the queue was full.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}

// Len returns the number of events currently queued.
func (r *Relay) Len() int {
	return len(r.events)
}
