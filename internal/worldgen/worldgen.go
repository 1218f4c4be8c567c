// Package worldgen defines the content-collaborator contract (spec §6):
// the external, LLM-backed authoring module that produces a starting world
// once at bootstrap. Its internals (how locations, NPCs, quests and rumors
// are actually written) are out of core scope; this package only fixes the
// interface and provides a minimal deterministic implementation so
// cmd/wayfarer can boot a session without a real collaborator wired in.
package worldgen

import (
	"context"
	"fmt"

	"wayfarer/internal/entity"
)

// Request is the collaborator's input (spec §6 `generateWorld({seed, theme, playerName})`).
type Request struct {
	Seed       int64
	Theme      string
	PlayerName string
}

// Record is the collaborator's output, consumed once at bootstrap (spec §6
// "The core consumes this record once at bootstrap; during play it only
// reads").
type Record struct {
	StartingTown string
	Locations    []*entity.Location
	NPCs         []*entity.Character
	MainQuest    *entity.Quest
	TownRumors   []string
}

// Collaborator is implemented by any content-authoring module, in-process
// or remote.
type Collaborator interface {
	GenerateWorld(ctx context.Context, req Request) (*Record, error)
}

// Populate installs a generated Record into a freshly-constructed World:
// registers locations and NPCs, places the protagonist and NPCs in their
// starting locations, and activates the main quest. Called once by
// Config/Bootstrap (spec component 17) after the handshake.
func Populate(world *entity.World, protagonist *entity.Character, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("worldgen: nil record")
	}
	if len(rec.Locations) == 0 {
		return fmt.Errorf("worldgen: record has no locations")
	}

	for _, loc := range rec.Locations {
		world.Locations[loc.ID] = loc
	}
	for _, npc := range rec.NPCs {
		world.Characters[npc.ID] = npc
		if loc, ok := world.Locations[npc.CurrentLocation]; ok {
			loc.AddPresence(npc.ID)
		}
	}

	startTownID := rec.StartingTown
	if _, ok := world.Locations[startTownID]; !ok {
		startTownID = rec.Locations[0].ID
	}
	world.Characters[protagonist.ID] = protagonist
	world.ProtagonistID = protagonist.ID
	world.MoveCharacter(protagonist.ID, startTownID)
	if loc := world.Locations[startTownID]; loc != nil {
		loc.Discovered = true
		loc.Visited = true
	}

	if rec.MainQuest != nil {
		world.ActiveQuests[rec.MainQuest.ID] = rec.MainQuest
	}

	for i, text := range rec.TownRumors {
		if i >= len(rec.NPCs) {
			break
		}
		rec.NPCs[i].Knowledge.Rumors = append(rec.NPCs[i].Knowledge.Rumors, text)
	}
	return nil
}

// StaticCollaborator is a minimal, deterministic Collaborator implementation: one
// starting town, one nearby wilderness location, two NPCs, and a single
// talk-type main quest. It exists so cmd/wayfarer can boot and play a
// session without a real LLM-backed authoring module wired in; a richer
// collaborator (out of core scope, per spec §1) can replace it without any
// change to the core engine, since both speak the same Collaborator
// interface.
type StaticCollaborator struct{}

// GenerateWorld implements Collaborator.
func (StaticCollaborator) GenerateWorld(ctx context.Context, req Request) (*Record, error) {
	return Static(req.Seed, req.Theme, req.PlayerName)
}

// Static builds the fixed starting Record directly, without going through
// the Collaborator interface — convenient for bootstrap call sites that
// don't need to swap in a different collaborator.
func Static(seed int64, theme, playerName string) (*Record, error) {
	town := &entity.Location{
		ID: "town", Name: "Millhaven", Type: "town", Scale: entity.ScaleTown,
		DescSparse: "A quiet market town.", DescPartial: "Millhaven's square hums with trade and gossip.",
		DescFull:   "Millhaven's cobbled square hums with trade and gossip, the grain hall at its center.",
		Detail:     entity.DetailSparse,
		Exits:      map[string]string{"north": "dark_forest"},
		Environment: entity.EnvironmentFlags{Indoor: false, Lit: true, Safe: true, Temperature: "mild"},
		GridWidth:  20, GridHeight: 20,
		Presence: map[string]bool{},
		ChildIDs: nil,
	}
	forest := &entity.Location{
		ID: "dark_forest", Name: "Dark Forest", Type: "forest", Scale: entity.ScaleRegion,
		DescSparse: "A tangled wood north of town.", DescPartial: "The Dark Forest presses close, roots and shadow.",
		DescFull:   "The Dark Forest presses close, roots and shadow, old paths long since swallowed.",
		Detail:     entity.DetailSparse,
		X:          0, Y: 10,
		Exits:       map[string]string{"south": "town"},
		Environment: entity.EnvironmentFlags{Indoor: false, Lit: false, Safe: false, Temperature: "cool", Hazards: []string{"wolves"}},
		GridWidth:   30, GridHeight: 30,
		Presence: map[string]bool{},
	}

	gareth := &entity.Character{
		ID: "gareth", Name: "Gareth", Role: entity.RoleNPC,
		Personality:     entity.Personality{Openness: 40, Conscientiousness: 70, Extraversion: 50, Agreeableness: 60, Neuroticism: 30, Courage: 40},
		Stats:           entity.Stats{Level: 3, HP: 40, MaxHP: 40, Attack: 6, Defense: 4, Attributes: entity.Attributes{Strength: 8, Dexterity: 8, Constitution: 9, Intelligence: 10, Wisdom: 10, Charisma: 12}},
		Inventory:       entity.Inventory{Capacity: 20},
		Equipment:       map[entity.EquipSlot]*entity.Item{},
		Knowledge:       entity.Knowledge{Specialties: []string{"grain", "harvest"}},
		Relationships:   map[string]int{},
		CurrentLocation: town.ID,
		Mood:            "worried",
		Backstory:       "Runs the grain hall; the last shipment never arrived.",
	}
	wolf := &entity.Character{
		ID: "forest_wolf", Name: "Forest Wolf", Role: entity.RoleEnemy,
		Stats:           entity.Stats{Level: 2, HP: 25, MaxHP: 25, Attack: 7, Defense: 2, Attributes: entity.Attributes{Strength: 9, Dexterity: 14, Constitution: 8, Intelligence: 3, Wisdom: 6, Charisma: 2}},
		Inventory:       entity.Inventory{},
		Equipment:       map[entity.EquipSlot]*entity.Item{},
		Relationships:   map[string]int{},
		CurrentLocation: forest.ID,
	}

	mainQuest := &entity.Quest{
		ID: "quest-grain", Title: "The Missing Grain", Description: "Gareth's grain shipment from the north road never arrived.",
		GiverID: gareth.ID, Type: "main",
		Objectives: []entity.Objective{
			{ID: "obj-1", Description: "Talk to Gareth about the missing grain", Type: entity.ObjectiveTalk, TargetID: gareth.ID},
			{ID: "obj-2", Description: "Search the Dark Forest for the lost wagon", Type: entity.ObjectiveVisit, TargetID: forest.ID},
		},
		State:   entity.QuestActive,
		Rewards: entity.Rewards{Gold: 100, Experience: 200, Narrative: "Millhaven breathes easier."},
	}
	mainQuest.RefreshGuidance()

	return &Record{
		StartingTown: town.ID,
		Locations:    []*entity.Location{town, forest},
		NPCs:         []*entity.Character{gareth, wolf},
		MainQuest:    mainQuest,
		TownRumors:   []string{"Wolves have been seen closer to the road than usual."},
	}, nil
}
