// Package loop implements the Autonomous Loop (spec component 13): the
// frame scheduler that alternates Decider -> Action Executor -> publish at
// a configurable frame rate, honoring pause, stop and maxFrames.
package loop

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wayfarer/internal/decider"
	"wayfarer/internal/entity"
	"wayfarer/internal/game"
	"wayfarer/internal/observability"
)

var tracer = otel.Tracer("wayfarer/loop")

// MinFrameRate and MaxFrameRate bound the configurable frame rate (spec
// §4.13 "range 0.5-60").
const (
	MinFrameRate     = 0.5
	MaxFrameRate     = 60.0
	DefaultFrameRate = 2.0
)

// Loop owns the ticker and runs frames against a Session until stopped.
type Loop struct {
	Session   *game.Session
	Decider   *decider.Decider
	FrameRate float64
	MaxFrames int

	stop chan struct{}
}

// New constructs a Loop. A frameRate outside [MinFrameRate, MaxFrameRate]
// is clamped.
func New(session *game.Session, dec *decider.Decider, frameRate float64, maxFrames int) *Loop {
	if frameRate < MinFrameRate {
		frameRate = MinFrameRate
	}
	if frameRate > MaxFrameRate {
		frameRate = MaxFrameRate
	}
	return &Loop{Session: session, Decider: dec, FrameRate: frameRate, MaxFrames: maxFrames, stop: make(chan struct{})}
}

// Stop requests termination; observed at the next frame boundary (spec
// §5 "Cancellation").
func (l *Loop) Stop() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

// Run drives frames until maxFrames is reached, the protagonist dies, Stop
// is called, or ctx is cancelled. It blocks the calling goroutine.
func (l *Loop) Run(ctx context.Context) {
	interval := time.Duration(float64(time.Second) / l.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			if l.Session.Paused {
				continue
			}
			if !l.runFrame(ctx, interval) {
				return
			}
		}
	}
}

// runFrame executes one frame: Decider picks an action, Executor runs it,
// Tick advances the clock, and the frame_update broadcast fires (spec
// §4.13 steps 1-5). It returns false if the loop should terminate.
func (l *Loop) runFrame(ctx context.Context, interval time.Duration) bool {
	world := l.Session.World
	world.Frame++

	ctx, span := tracer.Start(ctx, "loop.frame", trace.WithAttributes(attribute.Int("frame", world.Frame)))
	defer span.End()
	flog := observability.LoggerWithTrace(ctx)

	protagonist := world.Protagonist()
	if protagonist == nil || protagonist.IsDead() {
		l.Session.Bus.Publish(entity.Event{Frame: world.Frame, Kind: entity.EventGameEnded, Payload: map[string]any{"reason": "protagonist_dead"}})
		l.Session.Bus.Drain()
		flog.Debug().Msg("frame_ended_protagonist_dead")
		return false
	}

	recent := l.Session.Pub.History()
	choice := l.Decider.Decide(ctx, recent)

	result, err := l.Session.ExecuteAction(ctx, choice.Action)
	if err != nil {
		span.RecordError(err)
		flog.Debug().Str("action", string(choice.Action.Kind)).Err(err).Msg("frame_action_failed")
	}

	delta := result.MinutesCost
	if delta == 0 {
		delta = 1 // spec §8 "Zero-cost action still advances the clock by one minute"
	}
	l.Session.Tick(delta)
	l.Session.AddRealSeconds(interval.Seconds())

	if l.MaxFrames > 0 && world.Frame >= l.MaxFrames {
		l.Session.Bus.Publish(entity.Event{Frame: world.Frame, Kind: entity.EventGameEnded, Payload: map[string]any{"reason": "max_frames"}})
		l.Session.Bus.Drain()
		flog.Debug().Msg("frame_ended_max_frames")
		return false
	}
	return true
}
