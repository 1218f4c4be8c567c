// Package eventbus implements the in-process, single-threaded,
// synchronous publish/subscribe bus of spec component 4.
package eventbus

import (
	"github.com/rs/zerolog/log"

	"wayfarer/internal/entity"
)

// Handler receives a dispatched event. A handler that panics is caught,
// logged, and does not prevent remaining handlers from running
// (spec §4.4).
type Handler func(entity.Event)

// wildcardKey is the registry key for handlers subscribed to every event.
const wildcardKey = "*"

// Bus is a FIFO, synchronous event bus. Publish enqueues; Drain pops events
// in order and invokes each matching handler. Nested Publish calls made
// from within a handler enqueue at the tail rather than recursing
// (spec §4.4).
type Bus struct {
	handlers map[string][]Handler
	wildcard []Handler
	queue    []entity.Event
	draining bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Subscribe registers h for events of the given kind.
func (b *Bus) Subscribe(kind string, h Handler) {
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every event kind (checked after exact-match
// handlers, per spec §9 "wildcards are a second registry").
func (b *Bus) SubscribeAll(h Handler) {
	b.wildcard = append(b.wildcard, h)
}

// Publish appends event to the queue. If a Drain is already in progress
// (i.e. Publish was called from inside a handler), the event is still
// appended to the tail and will be processed before Drain returns.
func (b *Bus) Publish(e entity.Event) {
	b.queue = append(b.queue, e.Clone())
}

// Drain pops events in FIFO order and invokes their handlers, including any
// events enqueued by handlers during this same Drain call.
func (b *Bus) Drain() {
	if b.draining {
		// A nested Drain call would re-enter the loop below and process the
		// same tail twice; the outer call already owns draining.
		return
	}
	b.draining = true
	defer func() { b.draining = false }()

	for len(b.queue) > 0 {
		e := b.queue[0]
		b.queue = b.queue[1:]
		b.dispatch(e)
	}
}

func (b *Bus) dispatch(e entity.Event) {
	for _, h := range b.handlers[e.Kind] {
		b.invoke(h, e)
	}
	for _, h := range b.wildcard {
		b.invoke(h, e)
	}
}

func (b *Bus) invoke(h Handler, e entity.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", e.Kind).Msg("event handler panicked")
		}
	}()
	h(e)
}

// Pending reports the number of events still queued.
func (b *Bus) Pending() int { return len(b.queue) }
