package replay

import (
	"errors"
	"fmt"

	"wayfarer/internal/clock"
	"wayfarer/internal/entity"
	"wayfarer/internal/game"
)

// ErrCorrupt is returned when a replay file cannot be decompressed or
// parsed (spec §7 "ReplayCorruption").
var ErrCorrupt = errors.New("replay file is corrupt")

// Continuation is the result of reconstructing a session from a replay
// file's terminal checkpoint (spec §4.16).
type Continuation struct {
	World    *entity.World
	NewSeed  int64
	FromFile File
}

// Resume loads path, reconstructs the entity graph from its last
// checkpoint (or the initial state if there are no checkpoints), and
// installs newSeed as the master seed for the resumed session. It does not
// itself start the Autonomous Loop; callers wire the returned World into a
// fresh game.Session and loop.Loop.
func Resume(path string, newSeed int64) (*Continuation, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	world, err := rebuildWorld(doc, newSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return &Continuation{World: world, NewSeed: newSeed, FromFile: *doc}, nil
}

// rebuildWorld reconstructs a World from a replay's last checkpoint (or the
// initial state, if no checkpoint was ever written). Only the fields
// present in a StateSnapshot can be restored; structural validity (spec §3
// invariants) is what must hold, not bit-for-bit equality with the
// original live World.
func rebuildWorld(doc *File, newSeed int64) (*entity.World, error) {
	snap := doc.InitialState
	if len(doc.Checkpoints) > 0 {
		snap = doc.Checkpoints[len(doc.Checkpoints)-1].StateSnapshot
	}

	world := entity.NewWorld(snap.SessionID, newSeed)
	world.Frame = snap.Frame

	world.Clock = clock.New()
	world.Clock.Minutes = snap.Time.GameTime
	world.Clock.Day = snap.Time.Day
	world.Clock.Year = snap.Time.Year
	world.Clock.Season = clock.Season(snap.Time.Season)
	world.Clock.Weather = clock.Weather(snap.Time.Weather)
	world.Clock.Advance(0, nil) // recompute the time-of-day band for the restored minute

	for id, loc := range snap.Location.Database {
		world.Locations[id] = loc
	}

	if snap.Characters.Protagonist != nil {
		world.ProtagonistID = snap.Characters.Protagonist.ID
		world.Characters[snap.Characters.Protagonist.ID] = snap.Characters.Protagonist
	}
	for _, npc := range snap.Characters.NPCs {
		world.Characters[npc.ID] = npc
	}
	for _, c := range snap.Characters.AtLocation {
		world.Characters[c.ID] = c
	}

	for _, q := range snap.Quests.Active {
		world.ActiveQuests[q.ID] = q
	}

	for _, conv := range snap.Dialogue.ActiveConversations {
		world.Conversations[conv.ID] = conv
	}

	if world.ProtagonistID == "" {
		return nil, fmt.Errorf("replay has no protagonist in its terminal state")
	}
	return world, nil
}

// NewContinuationLogger starts a brand new Logger for the resumed session,
// so it produces its own replay file rather than appending to the one it
// was loaded from.
func NewContinuationLogger(c *Continuation, model string) *Logger {
	l := New("", model, c.FromFile.Header.Theme, c.NewSeed)
	l.SetInitialState(snapshotFromWorld(c.World))
	return l
}

func snapshotFromWorld(w *entity.World) game.StateSnapshot {
	var npcs []*entity.Character
	for _, c := range w.Characters {
		if c.Role == entity.RoleNPC {
			npcs = append(npcs, c)
		}
	}
	return game.StateSnapshot{
		SessionID: w.SessionID,
		Seed:      w.Seed,
		Frame:     w.Frame,
		Time: game.TimeSnapshot{
			GameTime:       w.Clock.Minutes,
			GameTimeString: w.Clock.TimeString(),
			TimeOfDay:      string(w.Clock.TimeOfDay()),
			Day:            w.Clock.Day,
			Season:         string(w.Clock.Season),
			Year:           w.Clock.Year,
			Weather:        string(w.Clock.Weather),
		},
		Characters: game.CharactersSnapshot{Protagonist: w.Protagonist(), NPCs: npcs},
	}
}
