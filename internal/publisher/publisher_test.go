package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wayfarer/internal/entity"
)

func TestPublisher_Publish_CallsStateHandlersInOrder(t *testing.T) {
	t.Parallel()
	p := New()
	var order []string
	p.Subscribe("a", func(snapshot any, eventType string, metadata map[string]any) { order = append(order, "a") }, nil)
	p.Subscribe("b", func(snapshot any, eventType string, metadata map[string]any) { order = append(order, "b") }, nil)

	p.Publish("snap", "frame_update", nil)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestPublisher_Publish_SkipsNilStateHandlers(t *testing.T) {
	t.Parallel()
	p := New()
	p.Subscribe("a", nil, func(e entity.Event) {})
	assert.NotPanics(t, func() { p.Publish("snap", "frame_update", nil) })
}

func TestPublisher_Publish_RecoversFromPanic(t *testing.T) {
	t.Parallel()
	p := New()
	var ranAfter bool
	p.Subscribe("boom", func(snapshot any, eventType string, metadata map[string]any) { panic("oops") }, nil)
	p.Subscribe("after", func(snapshot any, eventType string, metadata map[string]any) { ranAfter = true }, nil)

	assert.NotPanics(t, func() { p.Publish("snap", "frame_update", nil) })
	assert.True(t, ranAfter)
}

func TestPublisher_Broadcast_CallsEventHandlersAndRecoversPanic(t *testing.T) {
	t.Parallel()
	p := New()
	var received entity.Event
	p.Subscribe("boom", nil, func(e entity.Event) { panic("nope") })
	p.Subscribe("watch", nil, func(e entity.Event) { received = e })

	assert.NotPanics(t, func() { p.Broadcast(entity.Event{Kind: "test_event", Frame: 3}) })
	assert.Equal(t, "test_event", received.Kind)
}

func TestPublisher_Unsubscribe_RemovesSubscriber(t *testing.T) {
	t.Parallel()
	p := New()
	var calls int
	p.Subscribe("a", func(snapshot any, eventType string, metadata map[string]any) { calls++ }, nil)
	p.Unsubscribe("a")
	p.Publish("snap", "frame_update", nil)
	assert.Equal(t, 0, calls)
}

func TestPublisher_History_BoundedAndOrdered(t *testing.T) {
	t.Parallel()
	p := New()
	for i := 0; i < HistoryLimit+10; i++ {
		p.Broadcast(entity.Event{Frame: i, Kind: "tick"})
	}
	hist := p.History()
	assert.Len(t, hist, HistoryLimit)
	assert.Equal(t, 10, hist[0].Frame)
	assert.Equal(t, HistoryLimit+9, hist[len(hist)-1].Frame)
}

func TestPublisher_History_ReturnsCopy(t *testing.T) {
	t.Parallel()
	p := New()
	p.Broadcast(entity.Event{Frame: 1, Kind: "tick"})
	hist := p.History()
	hist[0].Kind = "mutated"
	assert.Equal(t, "tick", p.History()[0].Kind)
}
