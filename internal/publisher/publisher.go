// Package publisher implements the State Publisher (spec component 14): a
// registry of passive observers that receive state snapshots and game
// events. Observers never drive the game; they only subscribe.
package publisher

import (
	"github.com/rs/zerolog/log"

	"wayfarer/internal/entity"
)

// HistoryLimit bounds the retained event history (spec §4.14 "default
// 1000").
const HistoryLimit = 1000

// StateHandler receives a state snapshot alongside the event type and
// metadata that produced it. snapshot is an opaque value (normally a
// game.StateSnapshot); the publisher does not interpret it.
type StateHandler func(snapshot any, eventType string, metadata map[string]any)

// EventHandler receives a raw engine event.
type EventHandler func(entity.Event)

type subscriber struct {
	id    string
	state StateHandler
	event EventHandler
}

// Publisher is the single registry of spec §4.14, keyed by opaque
// subscriber id so callers can Unsubscribe.
type Publisher struct {
	subs    []subscriber
	history []entity.Event
}

// New creates an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Subscribe registers a subscriber. Either handler may be nil.
func (p *Publisher) Subscribe(id string, state StateHandler, event EventHandler) {
	p.subs = append(p.subs, subscriber{id: id, state: state, event: event})
}

// Unsubscribe removes a subscriber by id.
func (p *Publisher) Unsubscribe(id string) {
	for i, s := range p.subs {
		if s.id == id {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every registered state handler in registration order
// (spec §4.14). Handler panics are caught and logged; the game continues
// regardless.
func (p *Publisher) Publish(snapshot any, eventType string, metadata map[string]any) {
	for _, s := range p.subs {
		if s.state == nil {
			continue
		}
		p.invokeState(s, snapshot, eventType, metadata)
	}
}

func (p *Publisher) invokeState(s subscriber, snapshot any, eventType string, metadata map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("subscriber", s.id).Str("event_type", eventType).Msg("state handler panicked")
		}
	}()
	s.state(snapshot, eventType, metadata)
}

// Broadcast calls every registered event handler and appends e to the
// bounded history.
func (p *Publisher) Broadcast(e entity.Event) {
	p.history = append(p.history, e)
	if len(p.history) > HistoryLimit {
		p.history = p.history[len(p.history)-HistoryLimit:]
	}
	for _, s := range p.subs {
		if s.event == nil {
			continue
		}
		p.invokeEvent(s, e)
	}
}

func (p *Publisher) invokeEvent(s subscriber, e entity.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("subscriber", s.id).Str("event", e.Kind).Msg("event handler panicked")
		}
	}()
	s.event(e)
}

// History returns the retained event history, oldest first.
func (p *Publisher) History() []entity.Event {
	out := make([]entity.Event, len(p.history))
	copy(out, p.history)
	return out
}
