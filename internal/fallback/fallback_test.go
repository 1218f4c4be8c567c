package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/entity"
	"wayfarer/internal/eventbus"
	"wayfarer/internal/llm"
)

func TestLogger_LogFallback_TracksCounts(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	l := New(bus)

	l.LogFallback(llm.FallbackEntry{Subsystem: "Dialogue", Reason: llm.ReasonTimeout, Frame: 1})
	l.LogFallback(llm.FallbackEntry{Subsystem: "Dialogue", Reason: llm.ReasonUnavailable, Frame: 2})
	l.LogFallback(llm.FallbackEntry{Subsystem: "Combat", Reason: llm.ReasonTimeout, Frame: 3})

	assert.Equal(t, 2, l.CountBySubsystem("Dialogue"))
	assert.Equal(t, 1, l.CountBySubsystem("Combat"))
	assert.Equal(t, 2, l.CountByReason(llm.ReasonTimeout))
}

func TestLogger_LogFallback_PublishesEvent(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	l := New(bus)
	var published entity.Event
	bus.Subscribe(entity.EventFallbackUsed, func(e entity.Event) { published = e })

	l.LogFallback(llm.FallbackEntry{Subsystem: "Quest", Reason: llm.ReasonParseError, FallbackText: "canned", Frame: 5})
	bus.Drain()

	assert.Equal(t, "Quest", published.Payload["subsystem"])
	assert.Equal(t, "canned", published.Payload["text"])
}

func TestLogger_Recent_BoundedAndOrdered(t *testing.T) {
	t.Parallel()
	l := New(nil)
	for i := 0; i < ringCapacity+10; i++ {
		l.LogFallback(llm.FallbackEntry{Subsystem: "S", Frame: i})
	}
	recent := l.Recent(0)
	require.Len(t, recent, ringCapacity)
	assert.Equal(t, ringCapacity+9, recent[len(recent)-1].Frame)
}

func TestLogger_Recent_NRequested(t *testing.T) {
	t.Parallel()
	l := New(nil)
	for i := 0; i < 5; i++ {
		l.LogFallback(llm.FallbackEntry{Subsystem: "S", Frame: i})
	}
	recent := l.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Frame)
	assert.Equal(t, 4, recent[1].Frame)
}

func TestLogger_RateSinceFrame(t *testing.T) {
	t.Parallel()
	l := New(nil)
	l.LogFallback(llm.FallbackEntry{Subsystem: "Dialogue", Frame: 1})
	l.LogFallback(llm.FallbackEntry{Subsystem: "Dialogue", Frame: 10})
	l.LogFallback(llm.FallbackEntry{Subsystem: "Combat", Frame: 11})

	assert.Equal(t, 1, l.RateSinceFrame("Dialogue", 5))
	assert.Equal(t, 2, l.RateSinceFrame("", 10))
}

func TestLogger_FirstLast(t *testing.T) {
	t.Parallel()
	l := New(nil)
	first, last := l.FirstLast()
	assert.True(t, first.IsZero())
	assert.True(t, last.IsZero())

	l.LogFallback(llm.FallbackEntry{Subsystem: "Dialogue", Frame: 1})
	first, last = l.FirstLast()
	assert.False(t, first.IsZero())
	assert.False(t, last.IsZero())
}
