// Package game implements the Game Service (spec component 12): the
// façade over session state that every other layer (CLI, loop, replay,
// tests) talks to. The Session is the sole owner and mutator of the World;
// every mutating method publishes the matching event so the State
// Publisher and replay logger see the change (Design Notes §9).
package game

import (
	"context"
	"fmt"

	"wayfarer/internal/action"
	"wayfarer/internal/combat"
	"wayfarer/internal/dialogue"
	"wayfarer/internal/entity"
	"wayfarer/internal/eventbus"
	"wayfarer/internal/fallback"
	"wayfarer/internal/llm"
	"wayfarer/internal/publisher"
	"wayfarer/internal/quest"
	"wayfarer/internal/rng"
)

// EventRecorder is implemented by the Replay Logger (spec §4.15); Session
// is agnostic to how events are persisted.
type EventRecorder interface {
	LogEvent(frame int, kind string, payload map[string]any, actorID string)
}

// CheckpointRecorder is implemented by the Replay Logger.
type CheckpointRecorder interface {
	LogCheckpoint(frame int, snapshot StateSnapshot)
}

// Session is the explicit, single owner of engine state (spec §9 "Global
// mutable state"). It is created once at bootstrap and passed by reference
// into every subsystem; there are no singletons.
type Session struct {
	World    *entity.World
	Bus      *eventbus.Bus
	Pub      *publisher.Publisher
	Fallback *fallback.Logger
	LLM      *llm.Client
	RNG      *rng.Source

	Dialogue *dialogue.Subsystem
	Quest    *quest.Progression
	Combat   *combat.Subsystem
	Action   *action.Executor

	Replay     EventRecorder
	Checkpoint CheckpointRecorder

	Paused           bool
	AutoDetectQuests bool
	realSecondsElapsed float64
}

// NewSession wires a fully-constructed World and subsystems into a Session.
// Callers (the bootstrap in cmd/wayfarer) are responsible for constructing the
// subsystems in the dependency order of spec §2.
func NewSession(world *entity.World, bus *eventbus.Bus, pub *publisher.Publisher, fb *fallback.Logger, client *llm.Client, source *rng.Source, dlg *dialogue.Subsystem, qst *quest.Progression, cbt *combat.Subsystem, act *action.Executor) *Session {
	return &Session{
		World: world, Bus: bus, Pub: pub, Fallback: fb, LLM: client, RNG: source,
		Dialogue: dlg, Quest: qst, Combat: cbt, Action: act,
		AutoDetectQuests: true,
	}
}

// Initialize publishes game_started and wires the quest progression
// listener onto the bus (spec §4.12, §4.17).
func (s *Session) Initialize() {
	s.Bus.SubscribeAll(func(e entity.Event) {
		if s.Quest != nil {
			s.Quest.HandleEvent(e)
		}
	})
	s.publishEvent(entity.EventGameStarted, "", map[string]any{"session_id": s.World.SessionID, "seed": s.World.Seed})
}

// Tick advances the clock by delta minutes and publishes time_changed if
// the band actually changed (spec §4.2, §4.13 step 3/4).
func (s *Session) Tick(delta int) {
	res := s.World.Clock.Advance(delta, s.RNG.Stream(rng.StreamWeather))
	if res.BandChanged {
		s.publishEvent(entity.EventTimeChanged, "", map[string]any{
			"delta":        res.DeltaMinutes,
			"time_of_day":  string(s.World.Clock.TimeOfDay()),
			"day":          s.World.Clock.Day,
			"weather":      string(s.World.Clock.Weather),
			"band_changed": res.BandChanged,
		})
	}
	s.broadcastFrame(res.DeltaMinutes)
}

// Pause stops the autonomous loop from advancing, publishing pause_toggled
// exactly once per transition (spec §4.13, §8 S6).
func (s *Session) Pause() {
	if s.Paused {
		return
	}
	s.Paused = true
	s.publishEvent(entity.EventPauseToggled, "", map[string]any{"paused": true})
}

// Resume clears the pause flag, publishing pause_toggled once.
func (s *Session) Resume() {
	if !s.Paused {
		return
	}
	s.Paused = false
	s.publishEvent(entity.EventPauseToggled, "", map[string]any{"paused": false})
}

// ExecuteAction runs act through the Action Executor.
func (s *Session) ExecuteAction(ctx context.Context, act action.Action) (action.Result, error) {
	res, err := s.Action.Execute(ctx, act)
	s.recordCheckpointIfDue()
	return res, err
}

// StartConversation begins a conversation via the Dialogue Subsystem.
func (s *Session) StartConversation(id string, participants []string, topicHint string) (*entity.Conversation, error) {
	return s.Dialogue.Start(id, participants, topicHint)
}

// AddConversationTurn adds one turn via the Dialogue Subsystem.
func (s *Session) AddConversationTurn(ctx context.Context, convID, speakerID, playerText string) (string, error) {
	return s.Dialogue.AddTurn(ctx, convID, speakerID, playerText)
}

// EndConversation ends a conversation via the Dialogue Subsystem.
func (s *Session) EndConversation(convID string) {
	s.Dialogue.End(convID)
}

// DiscoverLocation marks a location discovered and publishes
// location_discovered, used by world generation / investigation hooks that
// reveal a location without the protagonist traveling there.
func (s *Session) DiscoverLocation(locationID string) error {
	loc, ok := s.World.Locations[locationID]
	if !ok {
		return fmt.Errorf("unknown location %q", locationID)
	}
	if loc.Discovered {
		return nil
	}
	loc.Discovered = true
	s.publishEvent(entity.EventLocationDiscovered, "", map[string]any{"location_id": locationID})
	return nil
}

// Character returns a character by id, or nil.
func (s *Session) Character(id string) *entity.Character { return s.World.Characters[id] }

// Location returns a location by id, or nil.
func (s *Session) Location(id string) *entity.Location { return s.World.Locations[id] }

// QuestByID returns an active or completed quest by id, or nil.
func (s *Session) QuestByID(id string) *entity.Quest {
	if q, ok := s.World.ActiveQuests[id]; ok {
		return q
	}
	return s.World.CompletedQuests[id]
}

// GetGameState builds the plain StateSnapshot of spec §6.
func (s *Session) GetGameState() StateSnapshot {
	w := s.World
	c := w.Clock

	var npcs, atLocation []*entity.Character
	protagonist := w.Protagonist()
	currentLocation := ""
	if protagonist != nil {
		currentLocation = protagonist.CurrentLocation
	}
	for _, ch := range w.Characters {
		if ch.Role == entity.RoleNPC {
			npcs = append(npcs, ch.Clone())
		}
		if protagonist != nil && ch.CurrentLocation == protagonist.CurrentLocation && ch.ID != protagonist.ID {
			atLocation = append(atLocation, ch.Clone())
		}
	}

	var discovered, visited []string
	database := make(map[string]*entity.Location, len(w.Locations))
	for id, loc := range w.Locations {
		database[id] = loc.Clone()
		if loc.Discovered {
			discovered = append(discovered, id)
		}
		if loc.Visited {
			visited = append(visited, id)
		}
	}

	var activeQuests []*entity.Quest
	for _, q := range w.ActiveQuests {
		activeQuests = append(activeQuests, q.Clone())
	}

	var activeConvs []*entity.Conversation
	totalConvs := len(w.Conversations)
	for _, conv := range w.Conversations {
		if conv.Active {
			activeConvs = append(activeConvs, conv.Clone())
		}
	}

	return StateSnapshot{
		SessionID: w.SessionID,
		Seed:      w.Seed,
		Frame:     w.Frame,
		Time: TimeSnapshot{
			GameTime:       c.Minutes,
			GameTimeString: c.TimeString(),
			TimeOfDay:      string(c.TimeOfDay()),
			Day:            c.Day,
			Season:         string(c.Season),
			Year:           c.Year,
			Weather:        string(c.Weather),
		},
		Characters: CharactersSnapshot{Protagonist: protagonist.Clone(), NPCs: npcs, AtLocation: atLocation},
		Location: LocationSnapshot{
			Current:    currentLocation,
			Discovered: discovered,
			Visited:    visited,
			Database:   database,
		},
		Quests: QuestsSnapshot{
			Active: activeQuests,
			Stats:  QuestStats{ActiveCount: len(w.ActiveQuests), CompletedCount: len(w.CompletedQuests)},
		},
		Dialogue: DialogueSnapshot{
			Stats:               DialogueStats{TotalConversations: totalConvs, ActiveCount: len(activeConvs)},
			ActiveConversations: activeConvs,
		},
		System: SystemSnapshot{
			Paused:           s.Paused,
			AutoDetectQuests: s.AutoDetectQuests,
			RealTimePlayed:   s.realSecondsElapsed,
		},
	}
}

// ExportState returns the full World for save/replay purposes (spec §4.12
// "exportState"). Replay Logger is responsible for serialization.
func (s *Session) ExportState() *entity.World {
	return s.World
}

// AddRealSeconds accumulates wall-clock playtime for the snapshot's
// system.realTimePlayed field (spec §6). The Autonomous Loop calls this
// once per real tick.
func (s *Session) AddRealSeconds(seconds float64) {
	s.realSecondsElapsed += seconds
}

func (s *Session) publishEvent(kind, actorID string, payload map[string]any) {
	s.Bus.Publish(entity.Event{Frame: s.World.Frame, Kind: kind, ActorID: actorID, Payload: payload})
	s.Bus.Drain()
	if s.Replay != nil {
		s.Replay.LogEvent(s.World.Frame, kind, payload, actorID)
	}
}

func (s *Session) broadcastFrame(delta int) {
	snapshot := s.GetGameState()
	s.Pub.Publish(snapshot, entity.EventFrameUpdate, map[string]any{"delta": delta})
	s.Pub.Broadcast(entity.Event{Frame: s.World.Frame, Kind: entity.EventFrameUpdate, Payload: map[string]any{"delta": delta}})
}

// recordCheckpointIfDue asks the Checkpoint recorder (if present) to decide
// whether this frame warrants a checkpoint; Session has no opinion on
// cadence, matching the teacher's separation of concerns between session
// state and persistence.
func (s *Session) recordCheckpointIfDue() {
	if s.Checkpoint == nil {
		return
	}
	s.Checkpoint.LogCheckpoint(s.World.Frame, s.GetGameState())
}
