package worldgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/entity"
)

func TestPopulate_NilRecordIsError(t *testing.T) {
	t.Parallel()
	world := entity.NewWorld("s", 1)
	err := Populate(world, &entity.Character{ID: "protag"}, nil)
	assert.Error(t, err)
}

func TestPopulate_NoLocationsIsError(t *testing.T) {
	t.Parallel()
	world := entity.NewWorld("s", 1)
	err := Populate(world, &entity.Character{ID: "protag"}, &Record{})
	assert.Error(t, err)
}

func TestPopulate_RegistersLocationsNPCsAndQuest(t *testing.T) {
	t.Parallel()
	world := entity.NewWorld("s", 1)
	protag := &entity.Character{ID: "protag", Role: entity.RoleProtagonist}

	rec, err := Static(1, "fantasy", "Wayfarer")
	require.NoError(t, err)

	require.NoError(t, Populate(world, protag, rec))

	assert.NotNil(t, world.Locations["town"])
	assert.NotNil(t, world.Locations["dark_forest"])
	assert.NotNil(t, world.Characters["gareth"])
	assert.NotNil(t, world.Characters["forest_wolf"])
	assert.Equal(t, "protag", world.ProtagonistID)
	assert.Equal(t, "town", world.Characters["protag"].CurrentLocation)
	assert.True(t, world.Locations["town"].Presence["protag"])
	assert.True(t, world.Locations["town"].Discovered)
	assert.True(t, world.Locations["town"].Visited)
	assert.NotNil(t, world.ActiveQuests["quest-grain"])
	assert.True(t, world.Locations["town"].Presence["gareth"])
}

func TestPopulate_FallsBackToFirstLocationWhenStartingTownMissing(t *testing.T) {
	t.Parallel()
	world := entity.NewWorld("s", 1)
	protag := &entity.Character{ID: "protag"}
	loc := &entity.Location{ID: "only", Name: "Only", Presence: map[string]bool{}}

	rec := &Record{StartingTown: "nonexistent", Locations: []*entity.Location{loc}}
	require.NoError(t, Populate(world, protag, rec))
	assert.Equal(t, "only", world.Characters["protag"].CurrentLocation)
}

func TestPopulate_AssignsTownRumorsToNPCsByIndex(t *testing.T) {
	t.Parallel()
	world := entity.NewWorld("s", 1)
	protag := &entity.Character{ID: "protag"}
	loc := &entity.Location{ID: "town", Name: "Town", Presence: map[string]bool{}}
	npc1 := &entity.Character{ID: "n1", Role: entity.RoleNPC, CurrentLocation: "town"}
	npc2 := &entity.Character{ID: "n2", Role: entity.RoleNPC, CurrentLocation: "town"}

	rec := &Record{StartingTown: "town", Locations: []*entity.Location{loc}, NPCs: []*entity.Character{npc1, npc2}, TownRumors: []string{"rumor one"}}
	require.NoError(t, Populate(world, protag, rec))

	assert.Equal(t, []string{"rumor one"}, npc1.Knowledge.Rumors)
	assert.Empty(t, npc2.Knowledge.Rumors)
}

func TestStatic_IsDeterministicAcrossCalls(t *testing.T) {
	t.Parallel()
	a, err := Static(1, "fantasy", "Wayfarer")
	require.NoError(t, err)
	b, err := Static(1, "fantasy", "Wayfarer")
	require.NoError(t, err)

	assert.Equal(t, a.StartingTown, b.StartingTown)
	assert.Equal(t, a.MainQuest.ID, b.MainQuest.ID)
	assert.Equal(t, len(a.Locations), len(b.Locations))
}

func TestStatic_MainQuestGuidanceIsRefreshed(t *testing.T) {
	t.Parallel()
	rec, err := Static(1, "fantasy", "Wayfarer")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.MainQuest.Guidance.CurrentStep)
	assert.Equal(t, entity.QuestActive, rec.MainQuest.State)
}

func TestStaticCollaborator_GenerateWorld_DelegatesToStatic(t *testing.T) {
	t.Parallel()
	var c StaticCollaborator
	rec, err := c.GenerateWorld(context.Background(), Request{Seed: 1, Theme: "fantasy", PlayerName: "Wayfarer"})
	require.NoError(t, err)
	assert.Equal(t, "town", rec.StartingTown)
}
