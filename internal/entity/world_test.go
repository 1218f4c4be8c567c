package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld() *World {
	w := NewWorld("sess-1", 42)
	w.Locations["town"] = &Location{ID: "town", Presence: map[string]bool{}}
	w.Locations["forest"] = &Location{ID: "forest", Presence: map[string]bool{}}
	return w
}

func TestWorld_MoveCharacter_MaintainsPresenceInvariant(t *testing.T) {
	t.Parallel()
	w := newTestWorld()
	w.Characters["p"] = &Character{ID: "p"}
	w.MoveCharacter("p", "town")
	assert.True(t, w.Locations["town"].Presence["p"])

	w.MoveCharacter("p", "forest")
	assert.False(t, w.Locations["town"].Presence["p"])
	assert.True(t, w.Locations["forest"].Presence["p"])
	assert.Equal(t, "forest", w.Characters["p"].CurrentLocation)
}

func TestWorld_MoveCharacter_UnknownCharacterIsNoOp(t *testing.T) {
	t.Parallel()
	w := newTestWorld()
	w.MoveCharacter("ghost", "town")
	assert.False(t, w.Locations["town"].Presence["ghost"])
}

func TestWorld_Protagonist(t *testing.T) {
	t.Parallel()
	w := newTestWorld()
	assert.Nil(t, w.Protagonist())

	w.Characters["p"] = &Character{ID: "p"}
	w.ProtagonistID = "p"
	require.NotNil(t, w.Protagonist())
	assert.Equal(t, "p", w.Protagonist().ID)
}

func TestWorld_NPCsAt_ExcludesDeadAndNonNPCs(t *testing.T) {
	t.Parallel()
	w := newTestWorld()
	w.Characters["npc1"] = &Character{ID: "npc1", Role: RoleNPC}
	w.Characters["npc2"] = &Character{ID: "npc2", Role: RoleNPC, Dead: true}
	w.Characters["enemy1"] = &Character{ID: "enemy1", Role: RoleEnemy}
	for _, id := range []string{"npc1", "npc2", "enemy1"} {
		w.MoveCharacter(id, "town")
	}

	npcs := w.NPCsAt("town")
	require.Len(t, npcs, 1)
	assert.Equal(t, "npc1", npcs[0].ID)
}

func TestWorld_ActiveQuestsInvolving(t *testing.T) {
	t.Parallel()
	w := newTestWorld()
	w.ActiveQuests["q1"] = &Quest{ID: "q1", GiverID: "gareth"}
	w.ActiveQuests["q2"] = &Quest{ID: "q2", Objectives: []Objective{{TargetID: "gareth"}}}
	w.ActiveQuests["q3"] = &Quest{ID: "q3", GiverID: "other"}

	involved := w.ActiveQuestsInvolving("gareth")
	require.Len(t, involved, 2)
}

func TestWorld_CompleteQuest_MovesToCompleted(t *testing.T) {
	t.Parallel()
	w := newTestWorld()
	w.ActiveQuests["q1"] = &Quest{ID: "q1"}
	w.CompleteQuest("q1")
	_, stillActive := w.ActiveQuests["q1"]
	assert.False(t, stillActive)
	_, completed := w.CompletedQuests["q1"]
	assert.True(t, completed)
}

func TestWorld_CompleteQuest_UnknownIsNoOp(t *testing.T) {
	t.Parallel()
	w := newTestWorld()
	w.CompleteQuest("nope")
	assert.Empty(t, w.CompletedQuests)
}
