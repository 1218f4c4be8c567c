// Package fallback implements the Fallback Logger (spec component 6):
// process-wide counters, a bounded ring buffer of recent fallbacks, and
// publication of fallback:used events.
package fallback

import (
	"sync"
	"time"

	"wayfarer/internal/entity"
	"wayfarer/internal/eventbus"
	"wayfarer/internal/llm"
)

// ringCapacity bounds the recent-fallbacks ring buffer.
const ringCapacity = 200

// Logger is owned by the session (one per Session, never a singleton;
// see Design Notes §9 "Global mutable state").
type Logger struct {
	mu sync.Mutex

	bus *eventbus.Bus

	countsBySubsystem map[string]int
	countsByReason    map[llm.ReasonCode]int
	ring              []llm.FallbackEntry
	first             time.Time
	last              time.Time
}

// New constructs a Logger that publishes fallback:used events onto bus.
func New(bus *eventbus.Bus) *Logger {
	return &Logger{
		bus:               bus,
		countsBySubsystem: map[string]int{},
		countsByReason:    map[llm.ReasonCode]int{},
	}
}

// LogFallback implements llm.FallbackRecorder.
func (l *Logger) LogFallback(entry llm.FallbackEntry) {
	l.mu.Lock()
	now := time.Now()
	if l.first.IsZero() {
		l.first = now
	}
	l.last = now
	l.countsBySubsystem[entry.Subsystem]++
	l.countsByReason[entry.Reason]++
	l.ring = append(l.ring, entry)
	if len(l.ring) > ringCapacity {
		l.ring = l.ring[len(l.ring)-ringCapacity:]
	}
	l.mu.Unlock()

	if l.bus != nil {
		l.bus.Publish(entity.Event{
			Frame: entry.Frame,
			Kind:  entity.EventFallbackUsed,
			Payload: map[string]any{
				"subsystem": entry.Subsystem,
				"operation": entry.Operation,
				"reason":    string(entry.Reason),
				"text":      entry.FallbackText,
			},
		})
	}
}

// CountBySubsystem returns the total fallback count for subsystem.
func (l *Logger) CountBySubsystem(subsystem string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countsBySubsystem[subsystem]
}

// CountByReason returns the total fallback count for reason.
func (l *Logger) CountByReason(reason llm.ReasonCode) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countsByReason[reason]
}

// Recent returns up to n of the most recent fallback entries, oldest first.
func (l *Logger) Recent(n int) []llm.FallbackEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n >= len(l.ring) {
		out := make([]llm.FallbackEntry, len(l.ring))
		copy(out, l.ring)
		return out
	}
	out := make([]llm.FallbackEntry, n)
	copy(out, l.ring[len(l.ring)-n:])
	return out
}

// RateSinceFrame returns the number of fallbacks for subsystem logged at or
// after sinceFrame, supporting per-window rate queries (spec §4.6). Pass an
// empty subsystem to count across all subsystems.
func (l *Logger) RateSinceFrame(subsystem string, sinceFrame int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, e := range l.ring {
		if subsystem != "" && e.Subsystem != subsystem {
			continue
		}
		if e.Frame < sinceFrame {
			continue
		}
		count++
	}
	return count
}

// FirstLast returns the first and last fallback timestamps recorded.
func (l *Logger) FirstLast() (time.Time, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.first, l.last
}
