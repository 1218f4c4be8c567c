// Package entity holds the plain-record data model of spec §3: characters,
// locations, quests, conversations, combat encounters and world state. All
// cross-references are id-only; the session (internal/game) owns the
// id→record maps and is the sole mutator.
package entity

// Predefined event-type tags (spec §6), exact spelling required by
// observers and the replay format.
const (
	EventFrameUpdate            = "frame_update"
	EventActionExecuted         = "action_executed"
	EventDialogueStarted        = "dialogue_started"
	EventDialogueTurn           = "dialogue_turn"
	EventDialogueLine           = "dialogue_line"
	EventDialogueEnded          = "dialogue_ended"
	EventCombatStarted          = "combat_started"
	EventCombatTurn             = "combat_turn"
	EventCombatEnded            = "combat_ended"
	EventQuestCreated           = "quest_created"
	EventQuestUpdated           = "quest_updated"
	EventQuestObjectiveComplete = "quest_objective_completed"
	EventQuestCompleted         = "quest_completed"
	EventLocationDiscovered     = "location_discovered"
	EventLocationChanged        = "location_changed"
	EventCharacterDied          = "character_died"
	EventPauseToggled           = "pause_toggled"
	EventGameStarted            = "game_started"
	EventGameEnded              = "game_ended"
	EventTimeChanged            = "time_changed"
	EventGoldChanged            = "gold_changed"
	EventLootObtained           = "loot_obtained"
	EventLevelUp                = "level_up"
	EventFallbackUsed           = "fallback:used"
	EventError                  = "error"
)

// Event is the immutable unit the bus dispatches and the replay logger
// records (spec §3 "Event (bus and replay)").
type Event struct {
	Frame   int
	Kind    string
	Payload map[string]any
	ActorID string
}

// Clone returns a shallow copy of the event with a freshly-allocated payload
// map, so a handler cannot accidentally mutate the published event through
// its map reference (events are immutable once published, spec §3).
func (e Event) Clone() Event {
	p := make(map[string]any, len(e.Payload))
	for k, v := range e.Payload {
		p[k] = v
	}
	return Event{Frame: e.Frame, Kind: e.Kind, Payload: p, ActorID: e.ActorID}
}
