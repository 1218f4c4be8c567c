// Package action implements the Action Executor (spec component 10):
// dispatch of the protagonist's chosen action and its in-game time cost.
package action

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"wayfarer/internal/combat"
	"wayfarer/internal/dialogue"
	"wayfarer/internal/entity"
	"wayfarer/internal/eventbus"
	"wayfarer/internal/llm"
	"wayfarer/internal/rng"
)

// Kind enumerates the supported action kinds (spec §4.10).
type Kind string

const (
	KindTravel           Kind = "travel"
	KindInvestigate      Kind = "investigate"
	KindRest             Kind = "rest"
	KindSearch           Kind = "search"
	KindTrade            Kind = "trade"
	KindUseItem          Kind = "use_item"
	KindEquip            Kind = "equip"
	KindUnequip          Kind = "unequip"
	KindConversation     Kind = "conversation"
	KindGroupConversation Kind = "group_conversation"
)

// ErrUserInput wraps the UserInputError kind of spec §7: no state mutation,
// reported to the caller, the loop continues.
var ErrUserInput = errors.New("user input error")

// Action is the tagged-value request the Autonomous Decider (or a human
// caller) submits, dispatched via a table keyed by Kind (spec §9 "Dynamic
// dispatch across action kinds").
type Action struct {
	Kind     Kind
	ActorID  string
	Target   string
	Params   map[string]any
}

// Result reports what happened, for action_executed metadata.
type Result struct {
	Success     bool
	MinutesCost int
	Reason      string
	Payload     map[string]any
}

// terrainModifiers back the travel cost formula (spec §4.10).
var terrainModifiers = map[string]float64{
	"flat":    1.0,
	"forest":  1.5,
	"mountain": 2.0,
	"swamp":   2.5,
}

// rarityMultipliers back the trade price formula (spec §4.10).
var rarityMultipliers = map[string]float64{
	"common":    1.0,
	"uncommon":  1.5,
	"rare":      2.5,
	"epic":      5.0,
	"legendary": 10.0,
}

// Executor dispatches actions against the shared World.
type Executor struct {
	World    *entity.World
	Bus      *eventbus.Bus
	LLM      *llm.Client
	Dialogue *dialogue.Subsystem
	Combat   *combat.Subsystem
	RNG      *rng.Source

	// EncounterChance is the probability (per travel) of rolling into combat
	// (spec §4.10 "roll for combat encounter").
	EncounterChance float64
	// MovementSpeed divides travel cost (spec §4.10); 1.0 is baseline.
	MovementSpeed float64

	dispatch map[Kind]func(context.Context, Action) (Result, error)
}

// New constructs an Executor with the dispatch table wired (spec §9).
func New(world *entity.World, bus *eventbus.Bus, client *llm.Client, dlg *dialogue.Subsystem, cbt *combat.Subsystem, source *rng.Source) *Executor {
	e := &Executor{
		World: world, Bus: bus, LLM: client, Dialogue: dlg, Combat: cbt, RNG: source,
		EncounterChance: 0.25,
		MovementSpeed:   1.0,
	}
	e.dispatch = map[Kind]func(context.Context, Action) (Result, error){
		KindTravel:            e.travel,
		KindInvestigate:       e.investigate,
		KindRest:              e.rest,
		KindSearch:            e.search,
		KindTrade:             e.trade,
		KindUseItem:           e.useItem,
		KindEquip:             e.equip,
		KindUnequip:           e.unequip,
		KindConversation:      e.conversation,
		KindGroupConversation: e.groupConversation,
	}
	return e
}

// Execute dispatches action to its handler and publishes action_executed.
// It does not advance the clock: the returned Result carries the minute
// cost, which the Game Service applies (spec §4.10 "On failure the action
// is not partially applied").
func (e *Executor) Execute(ctx context.Context, act Action) (Result, error) {
	handler, ok := e.dispatch[act.Kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown action kind %q", ErrUserInput, act.Kind)
	}

	res, err := handler(ctx, act)
	success := err == nil && res.Success

	// Clock advancement for the action's minute cost is the Game Service's
	// job (spec §4.13 step 3), not the executor's: Execute only computes and
	// reports the cost here.

	reason := res.Reason
	if err != nil {
		reason = err.Error()
	}
	e.Bus.Publish(entity.Event{
		Frame:   e.World.Frame,
		Kind:    entity.EventActionExecuted,
		ActorID: act.ActorID,
		Payload: map[string]any{
			"action_kind": string(act.Kind),
			"target":      act.Target,
			"success":     success,
			"reason":      reason,
			"time_spent":  res.MinutesCost,
		},
	})
	e.Bus.Drain()

	return res, err
}

func (e *Executor) travel(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	if protagonist == nil {
		return Result{}, fmt.Errorf("%w: no protagonist", ErrUserInput)
	}
	dest := e.resolveLocation(act.Target)
	if dest == nil {
		return Result{}, fmt.Errorf("%w: unknown destination %q", ErrUserInput, act.Target)
	}
	if !dest.Discovered {
		return Result{}, fmt.Errorf("%w: %q has not been discovered", ErrUserInput, dest.Name)
	}
	if dest.ID == protagonist.CurrentLocation {
		return Result{}, fmt.Errorf("%w: already at %q", ErrUserInput, dest.Name)
	}

	originID := protagonist.CurrentLocation
	origin := e.World.Locations[originID]
	cost := e.travelCost(origin, dest)

	e.World.MoveCharacter(protagonist.ID, dest.ID)
	dest.Visited = true
	dest.ExpandDetail()

	e.Bus.Publish(entity.Event{
		Frame:   e.World.Frame,
		Kind:    entity.EventLocationChanged,
		Payload: map[string]any{"to": dest.ID, "from": originID},
	})
	if !dest.Discovered {
		dest.Discovered = true
		e.Bus.Publish(entity.Event{Frame: e.World.Frame, Kind: entity.EventLocationDiscovered, Payload: map[string]any{"location_id": dest.ID}})
	}
	e.Bus.Drain()

	e.maybeTriggerCombat(ctx, dest)

	return Result{Success: true, MinutesCost: cost, Payload: map[string]any{"destination": dest.ID}}, nil
}

func (e *Executor) resolveLocation(target string) *entity.Location {
	if loc, ok := e.World.Locations[target]; ok {
		return loc
	}
	lower := strings.ToLower(target)
	for _, loc := range e.World.Locations {
		if strings.Contains(strings.ToLower(loc.Name), lower) {
			return loc
		}
	}
	return nil
}

// travelCost implements spec §4.10's formula: coarse Euclidean grid
// distance * 5 minutes * terrain modifier * (1 + 0.5*|dz|) / movement-speed.
func (e *Executor) travelCost(origin, dest *entity.Location) int {
	if origin == nil || dest == nil {
		return 5
	}
	dx := float64(dest.X - origin.X)
	dy := float64(dest.Y - origin.Y)
	dz := math.Abs(float64(dest.Z - origin.Z))
	dist := math.Sqrt(dx*dx + dy*dy)

	modifier := terrainModifiers["flat"]
	if m, ok := terrainModifiers[dest.Type]; ok {
		modifier = m
	}

	speed := e.MovementSpeed
	if speed <= 0 {
		speed = 1.0
	}

	cost := dist * 5 * modifier * (1 + 0.5*dz) / speed
	if cost < 1 {
		cost = 1
	}
	return int(math.Round(cost))
}

// maybeTriggerCombat rolls the encounter chance on arrival (spec §4.10
// "then roll for combat encounter"). Enemies are drawn from RoleEnemy
// characters already present at the destination (populated by world
// generation); a location with none present never starts combat even on a
// successful roll.
func (e *Executor) maybeTriggerCombat(ctx context.Context, dest *entity.Location) {
	if e.Combat == nil || dest.Environment.Safe {
		return
	}
	stream := e.RNG.Stream(rng.StreamEncounter)
	if stream.Float64() >= e.EncounterChance {
		return
	}

	var enemyIDs []string
	for id := range dest.Presence {
		if c := e.World.Characters[id]; c != nil && c.Role == entity.RoleEnemy && !c.IsDead() {
			enemyIDs = append(enemyIDs, id)
		}
	}
	if len(enemyIDs) == 0 {
		return
	}

	danger := "medium"
	if len(dest.Environment.Hazards) > 0 {
		danger = "high"
	}

	protagonist := e.World.Protagonist()
	encID := fmt.Sprintf("combat-%d-%s", e.World.Frame, dest.ID)
	enc := e.Combat.Start(encID, protagonist.ID, enemyIDs, danger)
	e.Bus.Publish(entity.Event{
		Frame:   e.World.Frame,
		Kind:    entity.EventCombatStarted,
		Payload: map[string]any{"combat_id": enc.ID, "enemy_ids": enemyIDs, "location_id": dest.ID},
	})
	e.Bus.Drain()

	e.runCombatToResolution(ctx, enc, protagonist.ID)
}

// runCombatToResolution drives the encounter round by round until it
// resolves or hits maxRounds (spec §4.9), using the built-in tactical AI
// for the protagonist and each enemy's behavior template for enemies.
func (e *Executor) runCombatToResolution(ctx context.Context, enc *entity.CombatEncounter, protagonistID string) {
	for !enc.Resolved {
		e.Combat.RunRound(ctx, enc, func(actorID string) combat.Action {
			if actorID == protagonistID {
				return e.Combat.ChooseProtagonistAction(enc, protagonistID)
			}
			behavior := e.Combat.Behaviors[actorID]
			if behavior == "" {
				behavior = combat.BehaviorBalanced
			}
			return e.Combat.ChooseEnemyAction(enc, actorID, behavior, protagonistID)
		})
	}
}

func (e *Executor) investigate(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	loc := e.World.Locations[protagonist.CurrentLocation]
	if loc == nil {
		return Result{}, fmt.Errorf("%w: protagonist is nowhere", ErrUserInput)
	}
	cost := 15 + e.RNG.Stream(rng.StreamEncounter).Intn(16) // 15-30 minutes

	req := llm.Request{
		Frame:     e.World.Frame,
		Subsystem: "ActionExecutor",
		Operation: "investigate",
		Prompt:    fmt.Sprintf("Describe a brief discovery while investigating %s.", loc.Name),
		Fallback:  func() string { return "Nothing new catches your eye." },
	}
	res, _ := e.LLM.Generate(ctx, req)

	return Result{Success: true, MinutesCost: cost, Payload: map[string]any{"narration": res.Text}}, nil
}

func (e *Executor) search(ctx context.Context, act Action) (Result, error) {
	return e.investigate(ctx, act)
}

func (e *Executor) rest(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	duration, _ := act.Params["duration"].(int)
	if duration <= 0 {
		duration = 60
	}
	ratio := float64(duration) / 480.0 // full rest over 8 hours
	if ratio > 1 {
		ratio = 1
	}
	protagonist.Stats.HP += int(float64(protagonist.Stats.MaxHP) * ratio)
	if protagonist.Stats.HP > protagonist.Stats.MaxHP {
		protagonist.Stats.HP = protagonist.Stats.MaxHP
	}
	protagonist.Stats.Stamina += int(float64(protagonist.Stats.MaxStamina) * ratio)
	if protagonist.Stats.Stamina > protagonist.Stats.MaxStamina {
		protagonist.Stats.Stamina = protagonist.Stats.MaxStamina
	}
	return Result{Success: true, MinutesCost: duration}, nil
}

func (e *Executor) trade(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	merchant := e.World.Characters[act.Target]
	if merchant == nil {
		return Result{}, fmt.Errorf("%w: unknown merchant %q", ErrUserInput, act.Target)
	}
	itemID, _ := act.Params["item_id"].(string)
	var item *entity.Item
	for i := range merchant.Inventory.Slots {
		if merchant.Inventory.Slots[i].ID == itemID {
			item = &merchant.Inventory.Slots[i]
			break
		}
	}
	if item == nil {
		return Result{}, fmt.Errorf("%w: merchant does not have %q", ErrUserInput, itemID)
	}

	rarityMul := rarityMultipliers[item.Rarity]
	if rarityMul == 0 {
		rarityMul = 1.0
	}
	relationship := float64(protagonist.Relationships[merchant.ID])
	discount := 1.0 - math.Max(0, relationship)/100.0*0.5
	price := int(item.BaseGold * rarityMul * discount)

	if protagonist.Inventory.Gold < price {
		return Result{}, fmt.Errorf("%w: insufficient gold (need %d, have %d)", ErrUserInput, price, protagonist.Inventory.Gold)
	}
	if len(protagonist.Inventory.Slots) >= protagonist.Inventory.Capacity {
		return Result{}, fmt.Errorf("%w: inventory full", ErrUserInput)
	}

	protagonist.Inventory.Gold -= price
	protagonist.Inventory.Slots = append(protagonist.Inventory.Slots, *item)
	merchant.Inventory.Gold += price

	e.Bus.Publish(entity.Event{Frame: e.World.Frame, Kind: entity.EventGoldChanged, Payload: map[string]any{"amount": -price, "new_total": protagonist.Inventory.Gold}})
	e.Bus.Publish(entity.Event{Frame: e.World.Frame, Kind: entity.EventLootObtained, Payload: map[string]any{"items": []entity.Item{*item}}})
	e.Bus.Drain()

	return Result{Success: true, MinutesCost: 5, Payload: map[string]any{"price": price}}, nil
}

func (e *Executor) useItem(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	itemID, _ := act.Params["item_id"].(string)
	for i, it := range protagonist.Inventory.Slots {
		if it.ID == itemID {
			protagonist.Inventory.Slots = append(protagonist.Inventory.Slots[:i], protagonist.Inventory.Slots[i+1:]...)
			return Result{Success: true, MinutesCost: 1, Payload: map[string]any{"used": itemID}}, nil
		}
	}
	return Result{}, fmt.Errorf("%w: item %q not in inventory", ErrUserInput, itemID)
}

func (e *Executor) equip(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	itemID, _ := act.Params["item_id"].(string)
	slot, _ := act.Params["slot"].(string)
	for i, it := range protagonist.Inventory.Slots {
		if it.ID == itemID {
			if protagonist.Equipment == nil {
				protagonist.Equipment = map[entity.EquipSlot]*entity.Item{}
			}
			itemCopy := it
			protagonist.Equipment[entity.EquipSlot(slot)] = &itemCopy
			protagonist.Inventory.Slots = append(protagonist.Inventory.Slots[:i], protagonist.Inventory.Slots[i+1:]...)
			return Result{Success: true, MinutesCost: 1}, nil
		}
	}
	return Result{}, fmt.Errorf("%w: item %q not in inventory", ErrUserInput, itemID)
}

func (e *Executor) unequip(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	slot := entity.EquipSlot(act.Target)
	item, ok := protagonist.Equipment[slot]
	if !ok || item == nil {
		return Result{}, fmt.Errorf("%w: nothing equipped in %q", ErrUserInput, slot)
	}
	protagonist.Inventory.Slots = append(protagonist.Inventory.Slots, *item)
	delete(protagonist.Equipment, slot)
	return Result{Success: true, MinutesCost: 1}, nil
}

func (e *Executor) conversation(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	npc := e.World.Characters[act.Target]
	if npc == nil {
		return Result{}, fmt.Errorf("%w: unknown npc %q", ErrUserInput, act.Target)
	}
	convID := fmt.Sprintf("conv-%d-%s", e.World.Frame, npc.ID)
	_, err := e.Dialogue.Start(convID, []string{protagonist.ID, npc.ID}, "")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUserInput, err)
	}
	text, _ := e.Dialogue.AddTurn(ctx, convID, npc.ID, "")
	return Result{Success: true, MinutesCost: 10, Payload: map[string]any{"conversation_id": convID, "line": text}}, nil
}

func (e *Executor) groupConversation(ctx context.Context, act Action) (Result, error) {
	protagonist := e.World.Protagonist()
	participantsRaw, _ := act.Params["participants"].([]string)
	participants := append([]string{protagonist.ID}, participantsRaw...)
	convID := fmt.Sprintf("conv-%d-group", e.World.Frame)
	_, err := e.Dialogue.Start(convID, participants, "")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUserInput, err)
	}
	return Result{Success: true, MinutesCost: 15, Payload: map[string]any{"conversation_id": convID}}, nil
}
