package entity

import "wayfarer/internal/clock"

// GossipEntry records rumor propagation between characters, used for the
// "rumor/gossip propagation log" of spec §3 World state.
type GossipEntry struct {
	Frame      int    `json:"frame"`
	FromID     string `json:"from_id"`
	ToID       string `json:"to_id"`
	RumorText  string `json:"rumor_text"`
}

// World is the full session state of spec §3 "World state". The session
// (internal/game) is the sole owner and mutator; every other subsystem
// holds only a reference passed in by the session.
type World struct {
	SessionID string `json:"session_id"`
	Seed      int64  `json:"seed"`
	Frame     int    `json:"frame"`

	Characters map[string]*Character `json:"characters"`
	Locations  map[string]*Location  `json:"locations"`

	ActiveQuests    map[string]*Quest `json:"active_quests"`
	CompletedQuests map[string]*Quest `json:"completed_quests"`

	Conversations map[string]*Conversation    `json:"conversations"`
	Combats       map[string]*CombatEncounter `json:"combats"`

	Clock *clock.Clock `json:"-"`

	Gossip []GossipEntry `json:"gossip,omitempty"`

	ProtagonistID string `json:"protagonist_id"`
}

// NewWorld returns an empty World ready for bootstrap population.
func NewWorld(sessionID string, seed int64) *World {
	return &World{
		SessionID:       sessionID,
		Seed:            seed,
		Characters:      map[string]*Character{},
		Locations:       map[string]*Location{},
		ActiveQuests:    map[string]*Quest{},
		CompletedQuests: map[string]*Quest{},
		Conversations:   map[string]*Conversation{},
		Combats:         map[string]*CombatEncounter{},
		Clock:           clock.New(),
	}
}

// Protagonist returns the protagonist character, or nil if unset.
func (w *World) Protagonist() *Character {
	return w.Characters[w.ProtagonistID]
}

// MoveCharacter updates a character's currentLocation and the presence sets
// of the old and new locations, preserving the invariant that a character's
// currentLocation appears in exactly one location's presence set
// (spec §3, §8 item 1).
func (w *World) MoveCharacter(characterID, newLocationID string) {
	c, ok := w.Characters[characterID]
	if !ok {
		return
	}
	if old, ok := w.Locations[c.CurrentLocation]; ok {
		old.RemovePresence(characterID)
	}
	c.CurrentLocation = newLocationID
	if loc, ok := w.Locations[newLocationID]; ok {
		loc.AddPresence(characterID)
	}
}

// NPCsAt returns the non-dead NPC characters present at a location.
func (w *World) NPCsAt(locationID string) []*Character {
	loc, ok := w.Locations[locationID]
	if !ok {
		return nil
	}
	var out []*Character
	for id := range loc.Presence {
		if c, ok := w.Characters[id]; ok && c.Role == RoleNPC && !c.IsDead() {
			out = append(out, c)
		}
	}
	return out
}

// ActiveQuestsInvolving returns active quests whose giver, objective
// targets, reference the given character id — used by dialogue context
// assembly (spec §4.7).
func (w *World) ActiveQuestsInvolving(characterID string) []*Quest {
	var out []*Quest
	for _, q := range w.ActiveQuests {
		if q.GiverID == characterID {
			out = append(out, q)
			continue
		}
		for _, o := range q.Objectives {
			if o.TargetID == characterID {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

// CompleteQuest moves a quest from active to completed.
func (w *World) CompleteQuest(questID string) {
	q, ok := w.ActiveQuests[questID]
	if !ok {
		return
	}
	delete(w.ActiveQuests, questID)
	w.CompletedQuests[questID] = q
}
