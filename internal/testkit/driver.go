package testkit

import (
	"context"

	"wayfarer/internal/action"
	"wayfarer/internal/decider"
	"wayfarer/internal/game"
)

// RunFrames drives n frames of the Decider -> Execute -> Tick cycle
// directly against a Session, without a real-time loop.Loop ticker —
// useful for deterministic scenario tests that need exact frame counts.
// It mirrors internal/loop.Loop.runFrame's step order (spec §4.13).
func RunFrames(ctx context.Context, sess *game.Session, dec *decider.Decider, n int) []action.Result {
	results := make([]action.Result, 0, n)
	for i := 0; i < n; i++ {
		if sess.Paused {
			continue
		}
		protagonist := sess.World.Protagonist()
		if protagonist == nil || protagonist.IsDead() {
			break
		}
		sess.World.Frame++
		recent := sess.Pub.History()
		choice := dec.Decide(ctx, recent)
		res, _ := sess.ExecuteAction(ctx, choice.Action)
		delta := res.MinutesCost
		if delta == 0 {
			delta = 1
		}
		sess.Tick(delta)
		results = append(results, res)
	}
	return results
}
